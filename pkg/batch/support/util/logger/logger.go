// Package logger provides the leveled logger used throughout chunkbatch.
// Messages go through the standard `log` package with a level prefix and are
// dropped when they are more detailed than the configured level.
package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
)

// LogLevel is a logging level. Smaller values are more detailed.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the upper-case name of the level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	}
	return fmt.Sprintf("LogLevel(%d)", int32(l))
}

var logLevel atomic.Int32

func init() {
	logLevel.Store(int32(LevelInfo))
}

// ParseLevel converts a level name ("DEBUG", "info", ...) to a LogLevel.
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO", "":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", level)
}

// SetLogLevel sets the global log level. Unknown names fall back to INFO.
func SetLogLevel(level string) {
	l, err := ParseLevel(level)
	if err != nil {
		log.Printf("[WARN] %v, defaulting to INFO", err)
	}
	logLevel.Store(int32(l))
}

// GetLogLevel returns the current global log level.
func GetLogLevel() LogLevel {
	return LogLevel(logLevel.Load())
}

// SetOutput redirects log output. Tests use it to capture messages.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// Enabled reports whether messages at level l are currently written.
func Enabled(l LogLevel) bool {
	return GetLogLevel() <= l
}

func logf(l LogLevel, format string, v ...interface{}) {
	if Enabled(l) {
		log.Printf("["+l.String()+"] "+format, v...)
	}
}

// Debugf writes a DEBUG message.
func Debugf(format string, v ...interface{}) { logf(LevelDebug, format, v...) }

// Infof writes an INFO message.
func Infof(format string, v ...interface{}) { logf(LevelInfo, format, v...) }

// Warnf writes a WARN message.
func Warnf(format string, v ...interface{}) { logf(LevelWarn, format, v...) }

// Errorf writes an ERROR message.
func Errorf(format string, v ...interface{}) { logf(LevelError, format, v...) }

// Fatalf writes a FATAL message and exits the process with status 1.
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}
