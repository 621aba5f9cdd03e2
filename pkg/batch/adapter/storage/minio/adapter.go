// Package minio provides a MinIO / S3-compatible implementation of the storage adapter interfaces.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	storageAdapter "github.com/tigerroll/chunkbatch/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// ProviderType defines the type identifier for this storage adapter.
const ProviderType = "minio"

func init() {
	storageAdapter.RegisterFactory(ProviderType, func(name string, cfg storageConfig.StorageConfig) (storageAdapter.StorageConnection, error) {
		return NewMinioAdapter(cfg, name)
	})
}

// minioAdapter implements storage.StorageConnection over a minio.Client.
type minioAdapter struct {
	client *minio.Client
	cfg    storageConfig.StorageConfig
	name   string
}

var _ storageAdapter.StorageConnection = (*minioAdapter)(nil)

// NewMinioAdapter creates a MinIO client. No request is made until the first operation.
func NewMinioAdapter(cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio storage adapter '%s': endpoint must be specified", name)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio storage adapter '%s': %w", name, err)
	}
	return &minioAdapter{client: client, cfg: cfg, name: name}, nil
}

func (a *minioAdapter) Close() error          { return nil }
func (a *minioAdapter) Type() string          { return ProviderType }
func (a *minioAdapter) Name() string          { return a.name }
func (a *minioAdapter) DefaultBucket() string { return a.cfg.BucketName }

func (a *minioAdapter) bucket(bucket string) (string, error) {
	if bucket == "" {
		bucket = a.cfg.BucketName
	}
	if bucket == "" {
		return "", errors.New("no bucket given and no default bucket configured")
	}
	return bucket, nil
}

// ensureBucket creates bucket when it does not exist yet.
func (a *minioAdapter) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := a.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket '%s': %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: a.cfg.Region}); err != nil {
		return fmt.Errorf("failed to create bucket '%s': %w", bucket, err)
	}
	logger.Infof("Created bucket '%s' (minio adapter '%s').", bucket, a.name)
	return nil
}

// Upload streams data to bucket/objectName. The size is unknown, so the client uses multipart upload.
func (a *minioAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	bucket, err := a.bucket(bucket)
	if err != nil {
		return err
	}
	if err := a.ensureBucket(ctx, bucket); err != nil {
		return err
	}
	info, err := a.client.PutObject(ctx, bucket, objectName, data, -1, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload '%s/%s': %w", bucket, objectName, err)
	}
	logger.Debugf("Uploaded %d bytes to '%s/%s' (minio adapter '%s').", info.Size, bucket, objectName, a.name)
	return nil
}

// Download returns a reader over bucket/objectName. The caller closes it.
func (a *minioAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	bucket, err := a.bucket(bucket)
	if err != nil {
		return nil, err
	}
	obj, err := a.client.GetObject(ctx, bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to download '%s/%s': %w", bucket, objectName, err)
	}
	return obj, nil
}

// ListObjects reports every object under prefix, recursively.
func (a *minioAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	bucket, err := a.bucket(bucket)
	if err != nil {
		return err
	}
	for obj := range a.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return fmt.Errorf("failed to list '%s/%s': %w", bucket, prefix, obj.Err)
		}
		if err := fn(obj.Key); err != nil {
			return err
		}
	}
	return nil
}

// DeleteObject removes bucket/objectName.
func (a *minioAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	bucket, err := a.bucket(bucket)
	if err != nil {
		return err
	}
	if err := a.client.RemoveObject(ctx, bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete '%s/%s': %w", bucket, objectName, err)
	}
	return nil
}
