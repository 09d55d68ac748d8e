package storage

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/24rabbit/material-service/config"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Presigner issues time-limited credentials against the object store. The
// service only supplies inputs and stores outputs; credential semantics belong
// to the backend.
type Presigner interface {
	PresignUpload(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
	PresignDownload(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
	PublicURL(objectKey string) string
	Remove(ctx context.Context, objectKey string) error
}

type MinIOPresigner struct {
	client *minio.Client
	cfg    config.MinIOConfig
}

func NewMinIOPresigner(cfg config.MinIOConfig) (*MinIOPresigner, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOPresigner{client: client, cfg: cfg}, nil
}

func (p *MinIOPresigner) PresignUpload(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := p.client.PresignedPutObject(ctx, p.cfg.BucketName, objectKey, expiry)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned upload URL: %w", err)
	}
	return u.String(), nil
}

func (p *MinIOPresigner) PresignDownload(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := p.client.PresignedGetObject(ctx, p.cfg.BucketName, objectKey, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned download URL: %w", err)
	}
	return u.String(), nil
}

// PublicURL derives the retrieval URL for an object key. A configured public
// base (CDN origin) wins over the raw endpoint.
func (p *MinIOPresigner) PublicURL(objectKey string) string {
	if p.cfg.PublicBaseURL != "" {
		return strings.TrimRight(p.cfg.PublicBaseURL, "/") + "/" + objectKey
	}
	return p.client.EndpointURL().String() + "/" + p.cfg.BucketName + "/" + objectKey
}

func (p *MinIOPresigner) Remove(ctx context.Context, objectKey string) error {
	if err := p.client.RemoveObject(ctx, p.cfg.BucketName, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}

// ObjectKey allocates a storage key for a new upload, unique per object and
// scoped under the owning organization.
func ObjectKey(organizationID uuid.UUID, filename string) string {
	ext := filepath.Ext(filename)
	return fmt.Sprintf("%s/%s%s", organizationID.String(), uuid.New().String(), ext)
}
