package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	base    *zap.Logger
	sugared *zap.SugaredLogger
)

func init() {
	setLogger(zap.NewNop())
}

// Init builds the process logger. Production uses JSON output with ISO8601
// timestamps, everything else gets the colored development console.
func Init(environment string) error {
	var config zap.Config
	if environment == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	l, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	setLogger(l)
	return nil
}

// Use replaces the process logger, mostly for tests.
func Use(l *zap.Logger) {
	setLogger(l.WithOptions(zap.AddCallerSkip(1)))
}

func setLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	sugared = l.Sugar()
}

func sugar() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugared
}

// L exposes the structured logger for call sites that want typed fields.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func Info(format string, v ...interface{}) {
	sugar().Infof(format, v...)
}

func Error(format string, v ...interface{}) {
	sugar().Errorf(format, v...)
}

func Debug(format string, v ...interface{}) {
	sugar().Debugf(format, v...)
}

func Warn(format string, v ...interface{}) {
	sugar().Warnf(format, v...)
}

// PartialFailure records a secondary step that failed after the primary
// effect was already committed.
func PartialFailure(operation, resourceID string, err error) {
	L().Warn("partial failure",
		zap.String("operation", operation),
		zap.String("resource_id", resourceID),
		zap.Error(err),
	)
}

func Sync() error {
	return L().Sync()
}
