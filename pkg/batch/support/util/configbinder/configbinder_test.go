package configbinder_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/configbinder"
)

type sinkOptions struct {
	Topic     string        `yaml:"topic"`
	BatchSize int           `yaml:"batchSize"`
	Timeout   time.Duration `yaml:"timeout"`
	Brokers   []string      `yaml:"brokers"`
	Enabled   bool          `yaml:"enabled"`
}

func TestBindProperties(t *testing.T) {
	var opts sinkOptions
	err := configbinder.BindProperties(map[string]interface{}{
		"topic":     "customers",
		"batchSize": "25",
		"timeout":   "3s",
		"brokers":   "k1:9092,k2:9092",
		"enabled":   "true",
	}, &opts)

	require.NoError(t, err)
	assert.Equal(t, "customers", opts.Topic)
	assert.Equal(t, 25, opts.BatchSize)
	assert.Equal(t, 3*time.Second, opts.Timeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, opts.Brokers)
	assert.True(t, opts.Enabled)
}

func TestBindProperties_Empty(t *testing.T) {
	opts := sinkOptions{Topic: "keep"}
	require.NoError(t, configbinder.BindProperties(nil, &opts))
	assert.Equal(t, "keep", opts.Topic)
}

func TestBindStringProperties_InvalidNumber(t *testing.T) {
	var opts sinkOptions
	err := configbinder.BindStringProperties(map[string]string{"batchSize": "many"}, &opts)
	assert.ErrorContains(t, err, "sinkOptions")
}
