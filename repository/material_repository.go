package repository

import (
	"github.com/24rabbit/material-service/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type MaterialRepository interface {
	BaseRepository[models.Material]
	GetByIDForOrganization(id, organizationID uuid.UUID) (*models.Material, error)
	ListByOrganization(organizationID uuid.UUID, status string, page, pageSize int32) ([]*models.Material, int64, error)
	ConfirmUpload(id, organizationID uuid.UUID) (*models.Material, error)
	MarkProcessed(id uuid.UUID, status string, metadata datatypes.JSON) error
	DeleteForOrganization(id, organizationID uuid.UUID) error
}

type MaterialRepositoryImpl struct {
	*BaseRepositoryImpl[models.Material]
}

func NewMaterialRepository(db *gorm.DB) MaterialRepository {
	return &MaterialRepositoryImpl{
		BaseRepositoryImpl: NewBaseRepository[models.Material](db),
	}
}

func (r *MaterialRepositoryImpl) GetByIDForOrganization(id, organizationID uuid.UUID) (*models.Material, error) {
	var material models.Material
	err := r.db.First(&material, "id = ? AND organization_id = ?", id, organizationID).Error
	if err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *MaterialRepositoryImpl) ListByOrganization(organizationID uuid.UUID, status string, page, pageSize int32) ([]*models.Material, int64, error) {
	var materials []*models.Material
	var total int64

	offset := (page - 1) * pageSize

	query := r.db.Model(&models.Material{}).Where("organization_id = ?", organizationID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Limit(int(pageSize)).
		Offset(int(offset)).
		Order("created_at DESC").
		Find(&materials).Error
	if err != nil {
		return nil, 0, err
	}

	return materials, total, nil
}

// ConfirmUpload transitions UPLOADED -> PROCESSING as a single conditional
// update. The id+organization+status predicate is the tenant-isolation
// enforcement point; zero affected rows means wrong id, wrong organization or
// an already-transitioned row, all reported as gorm.ErrRecordNotFound.
func (r *MaterialRepositoryImpl) ConfirmUpload(id, organizationID uuid.UUID) (*models.Material, error) {
	tx := r.db.Model(&models.Material{}).
		Where("id = ? AND organization_id = ? AND status = ?", id, organizationID, models.StatusUploaded).
		Update("status", models.StatusProcessing)
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetByIDForOrganization(id, organizationID)
}

// MarkProcessed records the pipeline outcome for a PROCESSING row.
func (r *MaterialRepositoryImpl) MarkProcessed(id uuid.UUID, status string, metadata datatypes.JSON) error {
	updates := map[string]interface{}{
		"status": status,
	}
	if metadata != nil {
		updates["metadata"] = metadata
	}
	tx := r.db.Model(&models.Material{}).
		Where("id = ? AND status = ?", id, models.StatusProcessing).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *MaterialRepositoryImpl) DeleteForOrganization(id, organizationID uuid.UUID) error {
	tx := r.db.Delete(&models.Material{}, "id = ? AND organization_id = ?", id, organizationID)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
