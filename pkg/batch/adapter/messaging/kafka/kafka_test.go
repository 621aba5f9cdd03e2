package kafka_test

import (
	"testing"
	"time"

	segkafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/messaging/kafka"
)

func TestNewWriter(t *testing.T) {
	_, err := kafka.NewWriter(kafka.Config{})
	assert.Error(t, err)

	w, err := kafka.NewWriter(kafka.Config{Brokers: []string{"localhost:9092"}, Topic: "customers"})
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, "customers", w.Topic)
	assert.Equal(t, segkafka.RequireAll, w.RequiredAcks)
	assert.Equal(t, 50*time.Millisecond, w.BatchTimeout)
}
