// Package kafka wires segmentio/kafka-go writers for item sinks.
package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// Config holds producer settings.
type Config struct {
	Brokers      []string      `yaml:"brokers" mapstructure:"brokers"`
	Topic        string        `yaml:"topic" mapstructure:"topic"`
	BatchTimeout time.Duration `yaml:"batchTimeout" mapstructure:"batchTimeout"`
	RequiredAcks int           `yaml:"requiredAcks" mapstructure:"requiredAcks"`
}

// Enabled reports whether brokers and a topic are configured.
func (c Config) Enabled() bool {
	return len(c.Brokers) > 0 && c.Topic != ""
}

// MessageWriter is the subset of *kafka.Writer used by item writers.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter creates a synchronous writer: WriteMessages returns once the
// whole batch is acknowledged, so a chunk either lands or fails as a unit.
func NewWriter(cfg Config) (*kafka.Writer, error) {
	if !cfg.Enabled() {
		return nil, errors.New("kafka writer requires brokers and a topic")
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 50 * time.Millisecond
	}
	acks := kafka.RequireAll
	if cfg.RequiredAcks != 0 {
		acks = kafka.RequiredAcks(cfg.RequiredAcks)
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           batchTimeout,
		RequiredAcks:           acks,
		AllowAutoTopicCreation: true,
	}, nil
}

var _ MessageWriter = (*kafka.Writer)(nil)
