package middleware

import (
	"net/http"
	"strings"

	"github.com/24rabbit/material-service/service"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const callerKey = "caller"

// SessionClaims is the session token payload issued by the auth provider.
// The org claim carries the caller's active organization selection and may be
// absent when none is selected.
type SessionClaims struct {
	OrganizationID string `json:"org,omitempty"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// SessionAuth extracts the Bearer token, validates it and injects the caller
// identity into the request context. Authorization of the active organization
// is left to the handlers; only authentication is enforced here.
func (a *Authenticator) SessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			unauthorized(c, "missing Authorization header")
			return
		}
		token := header
		if after, ok := strings.CutPrefix(header, "Bearer "); ok {
			token = after
		}
		if token == "" {
			unauthorized(c, "empty bearer token")
			return
		}

		caller, err := a.parseToken(token)
		if err != nil {
			unauthorized(c, "invalid token")
			return
		}

		c.Set(callerKey, caller)
		c.Next()
	}
}

func (a *Authenticator) parseToken(token string) (service.Caller, error) {
	var claims SessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return service.Caller{}, jwt.ErrTokenInvalidClaims
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return service.Caller{}, err
	}

	caller := service.Caller{UserID: userID}
	if claims.OrganizationID != "" {
		orgID, err := uuid.Parse(claims.OrganizationID)
		if err != nil {
			return service.Caller{}, err
		}
		caller.OrganizationID = orgID
	}
	return caller, nil
}

// CallerFromContext returns the authenticated caller injected by SessionAuth.
func CallerFromContext(c *gin.Context) (service.Caller, bool) {
	v, exists := c.Get(callerKey)
	if !exists {
		return service.Caller{}, false
	}
	caller, ok := v.(service.Caller)
	return caller, ok
}

func unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
	c.Abort()
}
