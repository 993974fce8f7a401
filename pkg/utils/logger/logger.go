package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger represents a logger instance
type Logger struct {
	*zap.SugaredLogger
}

var (
	globalLogger *Logger
	level        = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	once         sync.Once
	mu           sync.RWMutex
)

// Init initializes the global logger instance. Only the first call builds the
// core; later calls only adjust the level.
func Init(lvl string, env string) {
	SetLevel(lvl)

	once.Do(func() {
		encoderConfig := zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		}

		var encoder zapcore.Encoder
		if env == "production" {
			encoder = zapcore.NewJSONEncoder(encoderConfig)
		} else {
			encoder = zapcore.NewConsoleEncoder(encoderConfig)
		}

		core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level)

		mu.Lock()
		globalLogger = &Logger{zap.New(core, zap.AddCaller()).Sugar()}
		mu.Unlock()
	})
}

// SetLevel changes the level of every logger handed out so far
func SetLevel(lvl string) {
	switch strings.ToLower(lvl) {
	case "debug":
		level.SetLevel(zapcore.DebugLevel)
	case "warn":
		level.SetLevel(zapcore.WarnLevel)
	case "error":
		level.SetLevel(zapcore.ErrorLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}
}

// GetLogger returns a logger instance with the given name
func GetLogger(name string) *Logger {
	mu.RLock()
	initialized := globalLogger != nil
	mu.RUnlock()
	if !initialized {
		Init("info", "development")
	}

	mu.RLock()
	defer mu.RUnlock()
	return &Logger{globalLogger.Named(name)}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}

// With returns a logger with additional structured context
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{l.SugaredLogger.With(args...)}
}

// WithField returns a logger with a single field added to the context
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{l.SugaredLogger.With(key, value)}
}

// Sync ensures all buffered logs are written
func (l *Logger) Sync() error {
	return l.SugaredLogger.Sync()
}
