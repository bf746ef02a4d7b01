package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.RWMutex
	sugar = zap.NewNop().Sugar()
)

// Init builds the process logger. "production" gets JSON output at info
// level, anything else gets a colored console encoder at debug level.
func Init(env string) {
	var cfg zap.Config
	if strings.EqualFold(env, "production") {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if parsed, err := zapcore.ParseLevel(lvl); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(parsed)
		}
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewExample()
	}

	mu.Lock()
	sugar = l.Sugar()
	mu.Unlock()
}

// L returns the current sugared logger.
func L() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debug(msg string, keysAndValues ...any) { L().Debugw(msg, keysAndValues...) }

func Info(msg string, keysAndValues ...any) { L().Infow(msg, keysAndValues...) }

func Warn(msg string, keysAndValues ...any) { L().Warnw(msg, keysAndValues...) }

func Error(msg string, keysAndValues ...any) { L().Errorw(msg, keysAndValues...) }

func Fatal(msg string, keysAndValues ...any) { L().Fatalw(msg, keysAndValues...) }

// Sync flushes buffered entries. Call before exit.
func Sync() {
	_ = L().Sync()
}
