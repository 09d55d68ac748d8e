package models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Material is an uploaded asset staged for the content-generation pipeline.
// Every row belongs to exactly one organization; all access is scoped to it.
type Material struct {
	Base
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null;index" json:"organization_id"`
	BrandProfileID *uuid.UUID     `gorm:"type:uuid" json:"brand_profile_id,omitempty"`
	Type           string         `gorm:"type:varchar(20);not null" json:"type"`
	Name           string         `gorm:"not null" json:"name"`
	FileKey        string         `gorm:"size:512;uniqueIndex;not null" json:"file_key"`
	FileSize       int64          `gorm:"not null" json:"file_size"`
	MimeType       string         `gorm:"size:120;not null" json:"mime_type"`
	URL            string         `gorm:"not null" json:"url"`
	Status         string         `gorm:"type:varchar(20);not null;index;default:'UPLOADED'" json:"status"`
	Metadata       datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
}

func (Material) TableName() string {
	return "materials"
}

// Status lifecycle: UPLOADED -> PROCESSING -> READY | USED.
// FAILED is terminal and only ever set by the pipeline result consumer.
const (
	StatusUploaded   = "UPLOADED"
	StatusProcessing = "PROCESSING"
	StatusReady      = "READY"
	StatusUsed       = "USED"
	StatusFailed     = "FAILED"
)

const (
	TypeImage    = "image"
	TypeVideo    = "video"
	TypeDocument = "document"
)

// ClassifyType maps a declared MIME type onto the material type, fixed at
// creation time.
func ClassifyType(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return TypeImage
	case strings.HasPrefix(mimeType, "video/"):
		return TypeVideo
	default:
		return TypeDocument
	}
}
