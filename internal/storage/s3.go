package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mfenderov/pageocr/pkg/models"
)

// S3 stores artifacts in an S3/MinIO bucket.
type S3 struct {
	minioClient *minio.Client
	bucket      string
	root        string
}

// NewS3 creates a new S3/MinIO store.
func NewS3(config Config) (*S3, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	minioClient, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &S3{
		minioClient: minioClient,
		bucket:      config.Bucket,
		root:        config.Root,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *S3) EnsureBucket(ctx context.Context) error {
	exists, err := s.minioClient.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}

	err = s.minioClient.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Put uploads data at key. The handle's ExternalID is the object's version
// id when versioning is enabled, its ETag otherwise.
func (s *S3) Put(ctx context.Context, key string, data []byte, contentType string) (models.FileHandle, error) {
	objectName := s.objectName(key)
	info, err := s.minioClient.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return models.FileHandle{}, fmt.Errorf("failed to put %s: %w", objectName, err)
	}

	id := info.VersionID
	if id == "" {
		id = info.ETag
	}
	return models.FileHandle{Path: s.Location(key), ExternalID: id}, nil
}

// Location returns the s3:// URL of key.
func (s *S3) Location(key string) string {
	return "s3://" + s.bucket + "/" + s.objectName(key)
}

func (s *S3) objectName(key string) string {
	return path.Join(s.root, key)
}
