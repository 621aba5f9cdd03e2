// Package storage defines the common interfaces for storage adapters (local
// file system, MinIO/S3, GCS) and a provider that opens them by name.
package storage

import (
	"context"
	"io"
)

// StorageExecutor defines generic storage operations.
type StorageExecutor interface {
	// Upload uploads data to the specified bucket and object name.
	// 'data' is the stream of data to upload. 'contentType' is the MIME type of the data.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download downloads data from the specified bucket and object name.
	// It returns a ReadCloser which must be closed by the caller after use.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for every object under prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject deletes the specified object from the bucket.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is an open connection to one storage backend.
type StorageConnection interface {
	StorageExecutor

	// Name returns the configured connection name.
	Name() string
	// Type returns the backend type (e.g., "local", "minio", "gcs").
	Type() string
	// DefaultBucket returns the bucket used when callers pass an empty bucket.
	DefaultBucket() string
	// Close releases the connection.
	Close() error
}
