package infra

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"fotolio/internal/config"
)

// ObjectStore is the slice of S3 behavior the reaper needs: paged listing
// under a prefix and batched deletes. Pages and batches are capped at 1000
// keys to match the S3 API limits.
type ObjectStore interface {
	ListPage(ctx context.Context, prefix string, startAfter string, max int) ([]string, error)
	DeleteBatch(ctx context.Context, keys []string) (int, error)
}

type minioStore struct {
	client *minio.Client
	bucket string
}

func NewObjectStore(cfg config.ObjectStoreConfig) (ObjectStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("object store endpoint is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	return &minioStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *minioStore) ListPage(ctx context.Context, prefix string, startAfter string, max int) ([]string, error) {
	if max <= 0 || max > 1000 {
		max = 1000
	}
	keys := make([]string, 0, max)
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:     prefix,
		Recursive:  true,
		StartAfter: startAfter,
		MaxKeys:    max,
	}) {
		if object.Err != nil {
			return nil, object.Err
		}
		keys = append(keys, object.Key)
		if len(keys) >= max {
			break
		}
	}
	return keys, nil
}

func (s *minioStore) DeleteBatch(ctx context.Context, keys []string) (int, error) {
	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objectsCh <- minio.ObjectInfo{Key: key}
	}
	close(objectsCh)

	deleted := len(keys)
	var firstErr error
	for removeErr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		deleted--
		if firstErr == nil {
			firstErr = fmt.Errorf("remove %s: %w", removeErr.ObjectName, removeErr.Err)
		}
	}
	return deleted, firstErr
}
