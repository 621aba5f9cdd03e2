package minio_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageConfig "github.com/tigerroll/chunkbatch/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/storage/minio"
)

func TestNewMinioAdapter(t *testing.T) {
	conn, err := minio.NewMinioAdapter(storageConfig.StorageConfig{
		Endpoint:   "localhost:9000",
		AccessKey:  "minioadmin",
		SecretKey:  "minioadmin",
		BucketName: "exports",
	}, "objects")
	require.NoError(t, err)
	assert.Equal(t, "minio", conn.Type())
	assert.Equal(t, "exports", conn.DefaultBucket())

	_, err = minio.NewMinioAdapter(storageConfig.StorageConfig{}, "objects")
	assert.Error(t, err)
}

func TestMinioAdapter_RequiresBucket(t *testing.T) {
	conn, err := minio.NewMinioAdapter(storageConfig.StorageConfig{Endpoint: "localhost:9000"}, "objects")
	require.NoError(t, err)
	err = conn.Upload(context.Background(), "", "a.parquet", strings.NewReader("x"), "application/octet-stream")
	assert.ErrorContains(t, err, "no default bucket")
}
