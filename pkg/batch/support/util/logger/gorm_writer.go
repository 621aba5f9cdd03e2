package logger

import (
	"time"

	gormlogger "gorm.io/gorm/logger"
)

// GormWriter routes gorm's logger output into this package.
type GormWriter struct{}

// Printf implements gorm's logger.Writer.
func (GormWriter) Printf(format string, v ...interface{}) {
	Debugf("[gorm] "+format, v...)
}

// NewGormLogger returns a gorm logger whose verbosity follows the current log level.
func NewGormLogger() gormlogger.Interface {
	level := gormlogger.Warn
	switch GetLogLevel() {
	case LevelDebug:
		level = gormlogger.Info
	case LevelError, LevelFatal:
		level = gormlogger.Error
	}
	return gormlogger.New(GormWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
