package writer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	kafkaadapter "github.com/tigerroll/chunkbatch/pkg/batch/adapter/messaging/kafka"
	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	"github.com/tigerroll/chunkbatch/pkg/batch/core/tx"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/exception"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// KafkaItemWriter publishes each chunk as JSON messages in a single
// WriteMessages call. key, when set, yields the message key of an item.
type KafkaItemWriter[T any] struct {
	name   string
	writer kafkaadapter.MessageWriter
	key    func(T) []byte
}

// NewKafkaItemWriter creates a writer over w. w is owned by the caller and
// outlives the step, so one producer can serve every run of a job.
func NewKafkaItemWriter[T any](name string, w kafkaadapter.MessageWriter, key func(T) []byte) (*KafkaItemWriter[T], error) {
	if w == nil {
		return nil, exception.NewConfigurationError("KafkaItemWriter", fmt.Sprintf("'%s': message writer is required", name))
	}
	return &KafkaItemWriter[T]{name: name, writer: w, key: key}, nil
}

func (w *KafkaItemWriter[T]) Open(ctx context.Context, ec model.ExecutionContext) error { return nil }

// Write implements port.ItemWriter.
func (w *KafkaItemWriter[T]) Write(ctx context.Context, _ tx.Tx, items []T) error {
	if len(items) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(items))
	for i, item := range items {
		value, err := json.Marshal(item)
		if err != nil {
			return exception.NewValidationError("KafkaItemWriter", fmt.Sprintf("'%s': item %d cannot be encoded", w.name, i), err)
		}
		msg := kafka.Message{Value: value}
		if w.key != nil {
			msg.Key = w.key(item)
		}
		msgs = append(msgs, msg)
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return exception.NewDataAccessError("KafkaItemWriter", fmt.Sprintf("'%s': publishing %d messages failed", w.name, len(msgs)), err)
	}
	logger.Debugf("KafkaItemWriter '%s': published %d messages.", w.name, len(msgs))
	return nil
}

// Close implements port.ItemStream. The message writer is left open.
func (w *KafkaItemWriter[T]) Close(ctx context.Context) error { return nil }

var _ port.ItemWriter[any] = (*KafkaItemWriter[any])(nil)
