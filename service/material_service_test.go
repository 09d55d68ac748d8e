package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/24rabbit/material-service/config"
	"github.com/24rabbit/material-service/models"
	"github.com/24rabbit/material-service/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fakePresigner struct {
	presignErr   error
	uploadCalls  int
	removedKeys  []string
	downloadURLs int
}

func (p *fakePresigner) PresignUpload(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	p.uploadCalls++
	if p.presignErr != nil {
		return "", p.presignErr
	}
	return "https://minio.test/upload/" + objectKey, nil
}

func (p *fakePresigner) PresignDownload(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	p.downloadURLs++
	return "https://minio.test/download/" + objectKey, nil
}

func (p *fakePresigner) PublicURL(objectKey string) string {
	return "https://cdn.test/" + objectKey
}

func (p *fakePresigner) Remove(ctx context.Context, objectKey string) error {
	p.removedKeys = append(p.removedKeys, objectKey)
	return nil
}

type fakeRepo struct {
	materials map[uuid.UUID]*models.Material
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{materials: make(map[uuid.UUID]*models.Material)}
}

func (r *fakeRepo) Create(m *models.Material) error {
	if r.createErr != nil {
		return r.createErr
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	cp := *m
	r.materials[m.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(id uuid.UUID) (*models.Material, error) {
	m, ok := r.materials[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeRepo) Update(m *models.Material) error {
	cp := *m
	r.materials[m.ID] = &cp
	return nil
}

func (r *fakeRepo) Delete(id uuid.UUID) error {
	delete(r.materials, id)
	return nil
}

func (r *fakeRepo) List(limit, offset int) ([]*models.Material, error) {
	var out []*models.Material
	for _, m := range r.materials {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeRepo) Count() (int64, error) {
	return int64(len(r.materials)), nil
}

func (r *fakeRepo) GetByIDForOrganization(id, organizationID uuid.UUID) (*models.Material, error) {
	m, ok := r.materials[id]
	if !ok || m.OrganizationID != organizationID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeRepo) ListByOrganization(organizationID uuid.UUID, status string, page, pageSize int32) ([]*models.Material, int64, error) {
	var out []*models.Material
	for _, m := range r.materials {
		if m.OrganizationID != organizationID {
			continue
		}
		if status != "" && m.Status != status {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (r *fakeRepo) ConfirmUpload(id, organizationID uuid.UUID) (*models.Material, error) {
	m, ok := r.materials[id]
	if !ok || m.OrganizationID != organizationID || m.Status != models.StatusUploaded {
		return nil, gorm.ErrRecordNotFound
	}
	m.Status = models.StatusProcessing
	m.UpdatedAt = time.Now()
	cp := *m
	return &cp, nil
}

func (r *fakeRepo) MarkProcessed(id uuid.UUID, status string, metadata datatypes.JSON) error {
	m, ok := r.materials[id]
	if !ok || m.Status != models.StatusProcessing {
		return gorm.ErrRecordNotFound
	}
	m.Status = status
	if metadata != nil {
		m.Metadata = metadata
	}
	m.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRepo) DeleteForOrganization(id, organizationID uuid.UUID) error {
	m, ok := r.materials[id]
	if !ok || m.OrganizationID != organizationID {
		return gorm.ErrRecordNotFound
	}
	delete(r.materials, id)
	return nil
}

func testUploadConfig() config.UploadConfig {
	return config.UploadConfig{
		MaxFileSize:      50 << 20,
		AllowedMimeTypes: config.DefaultAllowedMimeTypes,
		PresignExpiry:    15 * time.Minute,
	}
}

func testCaller() service.Caller {
	return service.Caller{
		UserID:         uuid.New(),
		OrganizationID: uuid.New(),
	}
}

func TestStageUpload_Success(t *testing.T) {
	repo := newFakeRepo()
	presigner := &fakePresigner{}
	svc := service.NewMaterialService(repo, presigner, testUploadConfig())
	caller := testCaller()

	result, err := svc.StageUpload(context.Background(), caller, service.StageUploadRequest{
		Filename:    "logo.png",
		ContentType: "image/png",
		FileSize:    1024,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.UploadURL)
	assert.NotEmpty(t, result.FileKey)
	assert.Equal(t, "https://cdn.test/"+result.FileKey, result.PublicURL)

	stored, err := repo.GetByIDForOrganization(result.Material.ID, caller.OrganizationID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUploaded, stored.Status)
	assert.Equal(t, caller.OrganizationID, stored.OrganizationID)
	assert.Equal(t, models.TypeImage, stored.Type)
	assert.Equal(t, "logo.png", stored.Name)
	assert.Equal(t, int64(1024), stored.FileSize)
	assert.Equal(t, "image/png", stored.MimeType)
}

func TestStageUpload_UniqueFileKeys(t *testing.T) {
	repo := newFakeRepo()
	svc := service.NewMaterialService(repo, &fakePresigner{}, testUploadConfig())
	caller := testCaller()

	req := service.StageUploadRequest{Filename: "logo.png", ContentType: "image/png", FileSize: 1024}
	first, err := svc.StageUpload(context.Background(), caller, req)
	require.NoError(t, err)
	second, err := svc.StageUpload(context.Background(), caller, req)
	require.NoError(t, err)

	assert.NotEqual(t, first.FileKey, second.FileKey)
}

func TestStageUpload_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     service.StageUploadRequest
		wantErr string
	}{
		{
			name:    "empty filename",
			req:     service.StageUploadRequest{ContentType: "image/png", FileSize: 1024},
			wantErr: "Filename is required",
		},
		{
			name:    "unsupported content type",
			req:     service.StageUploadRequest{Filename: "tool.exe", ContentType: "application/x-msdownload", FileSize: 1024},
			wantErr: "Unsupported file type",
		},
		{
			name:    "zero size",
			req:     service.StageUploadRequest{Filename: "logo.png", ContentType: "image/png", FileSize: 0},
			wantErr: "File size must be positive",
		},
		{
			name:    "negative size",
			req:     service.StageUploadRequest{Filename: "logo.png", ContentType: "image/png", FileSize: -1},
			wantErr: "File size must be positive",
		},
		{
			name:    "one byte over the limit",
			req:     service.StageUploadRequest{Filename: "clip.mp4", ContentType: "video/mp4", FileSize: 50<<20 + 1},
			wantErr: "File size exceeds the maximum of 50MB",
		},
		{
			name:    "filename checked before content type",
			req:     service.StageUploadRequest{ContentType: "application/x-msdownload", FileSize: -1},
			wantErr: "Filename is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			presigner := &fakePresigner{}
			svc := service.NewMaterialService(repo, presigner, testUploadConfig())

			_, err := svc.StageUpload(context.Background(), testCaller(), tt.req)
			require.Error(t, err)
			assert.True(t, service.IsValidation(err))
			assert.Equal(t, tt.wantErr, err.Error())

			// early rejection must have no side effects
			assert.Equal(t, 0, presigner.uploadCalls)
			assert.Empty(t, repo.materials)
		})
	}
}

func TestStageUpload_SizeAtLimitAccepted(t *testing.T) {
	svc := service.NewMaterialService(newFakeRepo(), &fakePresigner{}, testUploadConfig())

	_, err := svc.StageUpload(context.Background(), testCaller(), service.StageUploadRequest{
		Filename:    "clip.mp4",
		ContentType: "video/mp4",
		FileSize:    50 << 20,
	})
	assert.NoError(t, err)
}

func TestStageUpload_PresignFailureRollsBackRow(t *testing.T) {
	repo := newFakeRepo()
	presigner := &fakePresigner{presignErr: errors.New("issuer down")}
	svc := service.NewMaterialService(repo, presigner, testUploadConfig())

	_, err := svc.StageUpload(context.Background(), testCaller(), service.StageUploadRequest{
		Filename:    "logo.png",
		ContentType: "image/png",
		FileSize:    1024,
	})
	require.Error(t, err)
	assert.False(t, service.IsValidation(err))
	assert.Empty(t, repo.materials, "failed credential issuance must not leave a pending row")
}

func TestConfirmUpload_Transition(t *testing.T) {
	repo := newFakeRepo()
	svc := service.NewMaterialService(repo, &fakePresigner{}, testUploadConfig())
	caller := testCaller()

	staged, err := svc.StageUpload(context.Background(), caller, service.StageUploadRequest{
		Filename:    "logo.png",
		ContentType: "image/png",
		FileSize:    1024,
	})
	require.NoError(t, err)

	material, err := svc.ConfirmUpload(context.Background(), caller, staged.Material.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, material.Status)

	// second confirmation finds no UPLOADED row
	_, err = svc.ConfirmUpload(context.Background(), caller, staged.Material.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestConfirmUpload_ForeignOrganization(t *testing.T) {
	repo := newFakeRepo()
	svc := service.NewMaterialService(repo, &fakePresigner{}, testUploadConfig())
	owner := testCaller()

	staged, err := svc.StageUpload(context.Background(), owner, service.StageUploadRequest{
		Filename:    "logo.png",
		ContentType: "image/png",
		FileSize:    1024,
	})
	require.NoError(t, err)

	intruder := testCaller()
	_, err = svc.ConfirmUpload(context.Background(), intruder, staged.Material.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	stored, err := repo.GetByIDForOrganization(staged.Material.ID, owner.OrganizationID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUploaded, stored.Status, "foreign confirmation must not change the row")
}

func TestConfirmUpload_UnknownID(t *testing.T) {
	svc := service.NewMaterialService(newFakeRepo(), &fakePresigner{}, testUploadConfig())

	_, err := svc.ConfirmUpload(context.Background(), testCaller(), uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestGetByID_ScopedToOrganization(t *testing.T) {
	repo := newFakeRepo()
	svc := service.NewMaterialService(repo, &fakePresigner{}, testUploadConfig())
	owner := testCaller()

	staged, err := svc.StageUpload(context.Background(), owner, service.StageUploadRequest{
		Filename:    "deck.pdf",
		ContentType: "application/pdf",
		FileSize:    2048,
	})
	require.NoError(t, err)

	got, err := svc.GetByID(context.Background(), owner, staged.Material.ID)
	require.NoError(t, err)
	assert.Equal(t, staged.Material.ID, got.ID)

	_, err = svc.GetByID(context.Background(), testCaller(), staged.Material.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestDelete_RemovesObjectAndRow(t *testing.T) {
	repo := newFakeRepo()
	presigner := &fakePresigner{}
	svc := service.NewMaterialService(repo, presigner, testUploadConfig())
	caller := testCaller()

	staged, err := svc.StageUpload(context.Background(), caller, service.StageUploadRequest{
		Filename:    "logo.png",
		ContentType: "image/png",
		FileSize:    1024,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), caller, staged.Material.ID))
	assert.Equal(t, []string{staged.FileKey}, presigner.removedKeys)
	assert.Empty(t, repo.materials)

	assert.ErrorIs(t, svc.Delete(context.Background(), caller, staged.Material.ID), service.ErrNotFound)
}

func TestDownloadURL(t *testing.T) {
	repo := newFakeRepo()
	svc := service.NewMaterialService(repo, &fakePresigner{}, testUploadConfig())
	caller := testCaller()

	staged, err := svc.StageUpload(context.Background(), caller, service.StageUploadRequest{
		Filename:    "logo.png",
		ContentType: "image/png",
		FileSize:    1024,
	})
	require.NoError(t, err)

	url, err := svc.DownloadURL(context.Background(), caller, staged.Material.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://minio.test/download/"+staged.FileKey, url)

	_, err = svc.DownloadURL(context.Background(), testCaller(), staged.Material.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}
