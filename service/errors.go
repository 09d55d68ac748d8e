package service

import "errors"

// ErrNotFound covers both a missing Material and one owned by another
// organization. The two are deliberately indistinguishable so existence never
// leaks across tenants.
var ErrNotFound = errors.New("material not found")

// ValidationError carries the first offending field's message; later checks
// are not evaluated.
type ValidationError struct {
	msg string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

func (e *ValidationError) Error() string {
	return e.msg
}

// IsValidation reports whether err is a request-validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
