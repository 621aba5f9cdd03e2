package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/storage"
	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/tx"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// ParquetItemWriterConfig holds the configuration for ParquetItemWriter.
type ParquetItemWriterConfig struct {
	// Bucket overrides the default bucket of the storage connection.
	Bucket string `yaml:"bucket"`
	// OutputBaseDir is the object prefix for exported files (e.g., "exports/customers").
	OutputBaseDir string `yaml:"outputBaseDir"`
	// CompressionType is SNAPPY (default), GZIP or NONE.
	CompressionType string `yaml:"compressionType"`
}

// ParquetItemWriter renders every chunk to one Parquet object and uploads it
// to a storage connection. Items must carry parquet struct tags.
//
// Uploads are not part of the chunk transaction: an object written for a
// chunk whose commit later fails stays in storage.
type ParquetItemWriter[T any] struct {
	name          string
	config        ParquetItemWriterConfig
	conn          storage.StorageConnection
	itemPrototype *T
	// partitionKeyFunc, when set, groups a chunk into one object per key
	// under Hive-style directories (OutputBaseDir/<key>/).
	partitionKeyFunc func(T) (string, error)

	chunkSeq int
	objects  []string
	ec       model.ExecutionContext
}

// NewParquetItemWriter creates a writer from properties (see ParquetItemWriterConfig).
//
// Parameters:
//
//	name: The unique name of the writer.
//	properties: Configuration properties for the writer.
//	conn: The storage connection objects are uploaded to.
//	itemPrototype: A prototype instance of the item type for schema reflection.
//	partitionKeyFunc: Optional function extracting a partition key (e.g., "dt=2024-01-31").
//
// Returns:
//
//	The writer, or a ConfigurationError.
func NewParquetItemWriter[T any](
	name string,
	properties map[string]interface{},
	conn storage.StorageConnection,
	itemPrototype *T,
	partitionKeyFunc func(T) (string, error),
) (*ParquetItemWriter[T], error) {
	var config ParquetItemWriterConfig
	if err := configbinder.BindProperties(properties, &config); err != nil {
		return nil, exception.NewConfigurationError("ParquetItemWriter", fmt.Sprintf("'%s': invalid properties: %v", name, err))
	}
	if conn == nil {
		return nil, exception.NewConfigurationError("ParquetItemWriter", fmt.Sprintf("'%s': storage connection is required", name))
	}
	if config.OutputBaseDir == "" {
		return nil, exception.NewConfigurationError("ParquetItemWriter", fmt.Sprintf("'%s': 'outputBaseDir' property is required", name))
	}
	if config.CompressionType == "" {
		config.CompressionType = "SNAPPY"
	}
	if _, err := compressionCodec(config.CompressionType); err != nil {
		return nil, exception.NewConfigurationError("ParquetItemWriter", fmt.Sprintf("'%s': %v", name, err))
	}
	if itemPrototype == nil {
		itemPrototype = new(T)
	}
	return &ParquetItemWriter[T]{
		name:             name,
		config:           config,
		conn:             conn,
		itemPrototype:    itemPrototype,
		partitionKeyFunc: partitionKeyFunc,
		ec:               model.NewExecutionContext(),
	}, nil
}

// Open resets the chunk sequence.
func (w *ParquetItemWriter[T]) Open(ctx context.Context, ec model.ExecutionContext) error {
	w.chunkSeq = 0
	w.objects = nil
	if ec != nil {
		w.ec = ec
	}
	logger.Infof("ParquetItemWriter '%s' opened. Target storage: %s, base directory: %s", w.name, w.conn.Name(), w.config.OutputBaseDir)
	return nil
}

// Write implements port.ItemWriter.
func (w *ParquetItemWriter[T]) Write(ctx context.Context, _ tx.Tx, items []T) error {
	if len(items) == 0 {
		return nil
	}
	groups := map[string][]T{"": items}
	keys := []string{""}
	if w.partitionKeyFunc != nil {
		groups = make(map[string][]T)
		keys = keys[:0]
		for _, item := range items {
			key, err := w.partitionKeyFunc(item)
			if err != nil {
				return exception.NewValidationError("ParquetItemWriter", fmt.Sprintf("'%s': failed to get partition key", w.name), err)
			}
			if _, seen := groups[key]; !seen {
				keys = append(keys, key)
			}
			groups[key] = append(groups[key], item)
		}
	}
	w.chunkSeq++

	var multiErr error
	for _, key := range keys {
		objectName, err := w.writeObject(ctx, key, groups[key])
		if err != nil {
			multiErr = multierror.Append(multiErr, err)
			continue
		}
		w.objects = append(w.objects, objectName)
	}
	w.ec.Put(w.name+".objects", len(w.objects))
	return multiErr
}

func (w *ParquetItemWriter[T]) writeObject(ctx context.Context, partitionKey string, items []T) (objectName string, err error) {
	codec, _ := compressionCodec(w.config.CompressionType)
	buf := new(bytes.Buffer)
	pw, err := pqwriter.NewParquetWriterFromWriter(buf, w.itemPrototype, int64(len(items)))
	if err != nil {
		return "", exception.NewDataAccessError("ParquetItemWriter", fmt.Sprintf("'%s': failed to create parquet writer", w.name), err)
	}
	pw.CompressionType = codec
	for _, item := range items {
		if err := pw.Write(item); err != nil {
			return "", exception.NewValidationError("ParquetItemWriter", fmt.Sprintf("'%s': failed to encode item", w.name), err)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = exception.NewDataAccessError("ParquetItemWriter", fmt.Sprintf("'%s': parquet writer panicked during WriteStop: %v", w.name, r), nil)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return "", exception.NewDataAccessError("ParquetItemWriter", fmt.Sprintf("'%s': failed to finish parquet file", w.name), err)
	}

	fileName := fmt.Sprintf("part-%05d-%s-%s.parquet", w.chunkSeq, time.Now().Format("20060102150405"), uuid.NewString()[:8])
	objectName = path.Join(w.config.OutputBaseDir, partitionKey, fileName)
	logger.Debugf("ParquetItemWriter '%s': uploading %d bytes to %s.", w.name, buf.Len(), objectName)
	if err := w.conn.Upload(ctx, w.config.Bucket, objectName, buf, "application/octet-stream"); err != nil {
		return "", exception.NewDataAccessError("ParquetItemWriter", fmt.Sprintf("'%s': upload of %s failed", w.name, objectName), err)
	}
	return objectName, nil
}

// Objects lists the object names uploaded since Open.
func (w *ParquetItemWriter[T]) Objects() []string {
	return append([]string(nil), w.objects...)
}

// Close implements port.ItemStream. The storage connection belongs to its provider.
func (w *ParquetItemWriter[T]) Close(ctx context.Context) error {
	logger.Infof("ParquetItemWriter '%s': closed after uploading %d objects.", w.name, len(w.objects))
	return nil
}

// GetExecutionContext implements port.ExecutionContextAware.
func (w *ParquetItemWriter[T]) GetExecutionContext(ctx context.Context) (model.ExecutionContext, error) {
	return w.ec.Copy(), nil
}

func compressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

var _ port.ItemWriter[any] = (*ParquetItemWriter[any])(nil)
