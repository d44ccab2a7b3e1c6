package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/passportpix/passportpix/internal/id"
)

type Config struct {
	Endpoint string
	Access   string
	Secret   string
	Bucket   string
	UseSSL   bool
}

// Vault is the durable photo store. Deliverables are written once
// under an opaque photo ID and fetched only through time-limited
// presigned URLs, gated on payment re-verification by the caller.
type Vault struct {
	minio  *minio.Client
	bucket string
}

func NewVault(cfg Config) (*Vault, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Access, cfg.Secret, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	return &Vault{
		minio:  mc,
		bucket: cfg.Bucket,
	}, nil
}

func (v *Vault) Bucket() string {
	return v.bucket
}

func (v *Vault) EnsureBucket(ctx context.Context) error {
	exists, err := v.minio.BucketExists(ctx, v.bucket)
	if err != nil {
		return fmt.Errorf("check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := v.minio.MakeBucket(ctx, v.bucket, minio.MakeBucketOptions{}); err != nil {
		exists, checkErr := v.minio.BucketExists(ctx, v.bucket)
		if checkErr == nil && exists {
			return nil
		}
		return fmt.Errorf("create bucket %s: %w", v.bucket, err)
	}

	return nil
}

// StorePhoto writes the full-fidelity JPEG and returns the issued
// photo ID.
func (v *Vault) StorePhoto(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("photo payload is empty")
	}

	photoID := id.New()
	_, err := v.minio.PutObject(
		ctx,
		v.bucket,
		photoObjectKey(photoID),
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: "image/jpeg"},
	)
	if err != nil {
		return "", fmt.Errorf("put photo %s: %w", photoID, err)
	}
	return photoID, nil
}

// ReadPhoto fetches the stored deliverable, mainly for the delivery
// worker's integrity check.
func (v *Vault) ReadPhoto(ctx context.Context, photoID string) ([]byte, error) {
	obj, err := v.minio.GetObject(ctx, v.bucket, photoObjectKey(photoID), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get photo %s: %w", photoID, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read photo %s: %w", photoID, err)
	}
	return data, nil
}

// PhotoExists reports whether a photo ID refers to a stored object.
func (v *Vault) PhotoExists(ctx context.Context, photoID string) (bool, error) {
	_, err := v.minio.StatObject(ctx, v.bucket, photoObjectKey(photoID), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}

	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject" {
		return false, nil
	}
	return false, fmt.Errorf("stat photo %s: %w", photoID, err)
}

// PresignedDownloadURL issues the time-limited link handed out after
// payment verification.
func (v *Vault) PresignedDownloadURL(ctx context.Context, photoID string, expiry time.Duration) (string, error) {
	u, err := v.minio.PresignedGetObject(ctx, v.bucket, photoObjectKey(photoID), expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign photo %s: %w", photoID, err)
	}
	return u.String(), nil
}

func photoObjectKey(photoID string) string {
	return "photos/" + photoID + "/full.jpeg"
}
