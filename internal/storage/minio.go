// Package storage wraps MinIO object access for PDF retrieval.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hsn0918/plagiarism/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	ETag        string `json:"etag"`
}

// ObjectStore reads objects from buckets. Writes happen out of band;
// this service only consumes what other systems upload.
type ObjectStore interface {
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Stat(ctx context.Context, bucket, key string) (*ObjectInfo, error)
	GetBytes(ctx context.Context, bucket, key string) ([]byte, error)
	GetToTempFile(ctx context.Context, bucket, key string) (string, error)
	List(ctx context.Context, bucket, prefix string, recursive bool) ([]ObjectInfo, error)
	Health(ctx context.Context) error
}

// MinIOStore implements ObjectStore on minio-go.
type MinIOStore struct {
	client        *minio.Client
	defaultBucket string
}

// NewMinIOStore connects to MinIO and verifies the default bucket is
// reachable.
func NewMinIOStore(ctx context.Context, cfg *config.Config) (*MinIOStore, error) {
	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKeyID, cfg.MinIO.SecretAccessKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	if _, err := client.BucketExists(ctx, cfg.MinIO.BucketName); err != nil {
		return nil, fmt.Errorf("failed to reach minio: %w", err)
	}

	return &MinIOStore{
		client:        client,
		defaultBucket: cfg.MinIO.BucketName,
	}, nil
}

func (s *MinIOStore) bucketOrDefault(bucket string) string {
	if bucket == "" {
		return s.defaultBucket
	}
	return bucket
}

// Exists reports whether the object is present.
func (s *MinIOStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucketOrDefault(bucket), key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// Stat returns object metadata.
func (s *MinIOStore) Stat(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	bucket = s.bucketOrDefault(bucket)
	info, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to stat object %s/%s: %w", bucket, key, err)
	}
	return &ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Size:        info.Size,
		ContentType: info.ContentType,
		ETag:        info.ETag,
	}, nil
}

// GetBytes downloads the whole object into memory.
func (s *MinIOStore) GetBytes(ctx context.Context, bucket, key string) ([]byte, error) {
	bucket = s.bucketOrDefault(bucket)
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s/%s: %w", bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// GetToTempFile downloads the object to a temp file and returns its
// path. The caller removes the file.
func (s *MinIOStore) GetToTempFile(ctx context.Context, bucket, key string) (string, error) {
	bucket = s.bucketOrDefault(bucket)
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get object %s/%s: %w", bucket, key, err)
	}
	defer obj.Close()

	tmp, err := os.CreateTemp("", "object-*"+filepath.Ext(key))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, obj); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	return tmp.Name(), nil
}

// List enumerates objects under a prefix.
func (s *MinIOStore) List(ctx context.Context, bucket, prefix string, recursive bool) ([]ObjectInfo, error) {
	bucket = s.bucketOrDefault(bucket)

	var out []ObjectInfo
	for obj := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects in %s: %w", bucket, obj.Err)
		}
		out = append(out, ObjectInfo{
			Bucket: bucket,
			Key:    obj.Key,
			Size:   obj.Size,
			ETag:   obj.ETag,
		})
	}
	return out, nil
}

// Health checks that the default bucket is reachable.
func (s *MinIOStore) Health(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.defaultBucket); err != nil {
		return fmt.Errorf("minio health check failed: %w", err)
	}
	return nil
}
