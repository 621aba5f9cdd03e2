package logger_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stderr)
	defer logger.SetLogLevel("INFO")

	logger.SetLogLevel("warn")
	logger.Infof("hidden %d", 1)
	logger.Warnf("shown %d", 2)

	assert.NotContains(t, buf.String(), "hidden 1")
	assert.Contains(t, buf.String(), "[WARN] shown 2")
}

func TestParseLevel(t *testing.T) {
	l, err := logger.ParseLevel("debug")
	assert.NoError(t, err)
	assert.Equal(t, logger.LevelDebug, l)

	l, err = logger.ParseLevel("verbose")
	assert.Error(t, err)
	assert.Equal(t, logger.LevelInfo, l)
}

func TestSetLogLevelUnknownFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(os.Stderr)

	logger.SetLogLevel("chatty")
	assert.Equal(t, logger.LevelInfo, logger.GetLogLevel())
	assert.True(t, logger.Enabled(logger.LevelError))
	assert.False(t, logger.Enabled(logger.LevelDebug))
}
