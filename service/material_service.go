package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/24rabbit/material-service/config"
	"github.com/24rabbit/material-service/models"
	"github.com/24rabbit/material-service/repository"
	"github.com/24rabbit/material-service/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Caller is the authenticated identity resolved once at the HTTP boundary and
// passed explicitly into every operation. OrganizationID is the active
// organization selected in the caller's session; uuid.Nil means none selected.
type Caller struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
}

type StageUploadRequest struct {
	Filename       string
	ContentType    string
	FileSize       int64
	BrandProfileID *uuid.UUID
}

type StageUploadResult struct {
	UploadURL string
	FileKey   string
	PublicURL string
	Material  *models.Material
}

type MaterialService interface {
	// StageUpload validates the declared file, inserts a Material with status
	// UPLOADED and issues a time-limited write credential for it. The row is
	// written before the credential so a failed issuance can be compensated by
	// deleting the row; no orphaned credential is ever left behind.
	StageUpload(ctx context.Context, caller Caller, req StageUploadRequest) (*StageUploadResult, error)

	// ConfirmUpload transitions the Material to PROCESSING if and only if it
	// belongs to the caller's active organization and is still UPLOADED. The
	// uploaded byte stream is not verified against the declared size or MIME
	// type; the client's claim is trusted.
	ConfirmUpload(ctx context.Context, caller Caller, materialID uuid.UUID) (*models.Material, error)

	GetByID(ctx context.Context, caller Caller, materialID uuid.UUID) (*models.Material, error)
	ListByOrganization(ctx context.Context, caller Caller, status string, page, pageSize int32) ([]*models.Material, int64, error)
	Delete(ctx context.Context, caller Caller, materialID uuid.UUID) error
	DownloadURL(ctx context.Context, caller Caller, materialID uuid.UUID) (string, error)
}

type MaterialServiceImpl struct {
	repo      repository.MaterialRepository
	presigner storage.Presigner
	upload    config.UploadConfig
}

func NewMaterialService(repo repository.MaterialRepository, presigner storage.Presigner, upload config.UploadConfig) MaterialService {
	return &MaterialServiceImpl{
		repo:      repo,
		presigner: presigner,
		upload:    upload,
	}
}

func (s *MaterialServiceImpl) StageUpload(ctx context.Context, caller Caller, req StageUploadRequest) (*StageUploadResult, error) {
	if err := s.validateStageUpload(req); err != nil {
		return nil, err
	}

	fileKey := storage.ObjectKey(caller.OrganizationID, req.Filename)

	material := &models.Material{
		OrganizationID: caller.OrganizationID,
		BrandProfileID: req.BrandProfileID,
		Type:           models.ClassifyType(req.ContentType),
		Name:           req.Filename,
		FileKey:        fileKey,
		FileSize:       req.FileSize,
		MimeType:       req.ContentType,
		URL:            s.presigner.PublicURL(fileKey),
		Status:         models.StatusUploaded,
	}

	if err := s.repo.Create(material); err != nil {
		return nil, fmt.Errorf("failed to create material record: %w", err)
	}

	uploadURL, err := s.presigner.PresignUpload(ctx, fileKey, s.upload.PresignExpiry)
	if err != nil {
		// roll the row back so a credential failure leaves no pending entry
		if delErr := s.repo.Delete(material.ID); delErr != nil {
			return nil, fmt.Errorf("failed to issue upload credential: %w (rollback failed: %v)", err, delErr)
		}
		return nil, fmt.Errorf("failed to issue upload credential: %w", err)
	}

	return &StageUploadResult{
		UploadURL: uploadURL,
		FileKey:   fileKey,
		PublicURL: material.URL,
		Material:  material,
	}, nil
}

// validateStageUpload checks declared fields in a fixed order, surfacing only
// the first failure.
func (s *MaterialServiceImpl) validateStageUpload(req StageUploadRequest) error {
	if req.Filename == "" {
		return NewValidationError("Filename is required")
	}
	if !slices.Contains(s.upload.AllowedMimeTypes, req.ContentType) {
		return NewValidationError("Unsupported file type")
	}
	if req.FileSize <= 0 {
		return NewValidationError("File size must be positive")
	}
	if req.FileSize > s.upload.MaxFileSize {
		return NewValidationError(fmt.Sprintf("File size exceeds the maximum of %dMB", s.upload.MaxFileSize>>20))
	}
	return nil
}

func (s *MaterialServiceImpl) ConfirmUpload(ctx context.Context, caller Caller, materialID uuid.UUID) (*models.Material, error) {
	material, err := s.repo.ConfirmUpload(materialID, caller.OrganizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to confirm upload: %w", err)
	}
	return material, nil
}

func (s *MaterialServiceImpl) GetByID(ctx context.Context, caller Caller, materialID uuid.UUID) (*models.Material, error) {
	material, err := s.repo.GetByIDForOrganization(materialID, caller.OrganizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get material: %w", err)
	}
	return material, nil
}

func (s *MaterialServiceImpl) ListByOrganization(ctx context.Context, caller Caller, status string, page, pageSize int32) ([]*models.Material, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	materials, total, err := s.repo.ListByOrganization(caller.OrganizationID, status, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list materials: %w", err)
	}
	return materials, total, nil
}

func (s *MaterialServiceImpl) Delete(ctx context.Context, caller Caller, materialID uuid.UUID) error {
	material, err := s.repo.GetByIDForOrganization(materialID, caller.OrganizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get material: %w", err)
	}

	if err := s.presigner.Remove(ctx, material.FileKey); err != nil {
		return fmt.Errorf("failed to remove stored object: %w", err)
	}

	if err := s.repo.DeleteForOrganization(materialID, caller.OrganizationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete material: %w", err)
	}
	return nil
}

func (s *MaterialServiceImpl) DownloadURL(ctx context.Context, caller Caller, materialID uuid.UUID) (string, error) {
	material, err := s.repo.GetByIDForOrganization(materialID, caller.OrganizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to get material: %w", err)
	}
	url, err := s.presigner.PresignDownload(ctx, material.FileKey, s.upload.PresignExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}
	return url, nil
}
