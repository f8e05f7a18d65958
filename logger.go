package lotto

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger implements Logger on top of a sugared zap logger
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps an existing zap logger
func NewZapLogger(l *zap.Logger) *ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapLogger{sugar: l.Sugar()}
}

// NewDefaultLogger builds a ZapLogger writing to stderr at info level in console format
func NewDefaultLogger() *ZapLogger {
	return NewLoggerFromConfig(DefaultLogConfig())
}

// NewLoggerFromConfig builds a ZapLogger from the log section of the config
func NewLoggerFromConfig(config *LogConfig) *ZapLogger {
	if config == nil {
		config = DefaultLogConfig()
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if strings.EqualFold(config.Format, "json") {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return NewZapLogger(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
}

// Info logs an info message
func (l *ZapLogger) Info(msg string, args ...any) { l.sugar.Infof(msg, args...) }

// Warn logs a warning message
func (l *ZapLogger) Warn(msg string, args ...any) { l.sugar.Warnf(msg, args...) }

// Error logs an error message
func (l *ZapLogger) Error(msg string, args ...any) { l.sugar.Errorf(msg, args...) }

// Debug logs a debug message
func (l *ZapLogger) Debug(msg string, args ...any) { l.sugar.Debugf(msg, args...) }

// Sync flushes buffered log entries
func (l *ZapLogger) Sync() error { return l.sugar.Sync() }

// SilentLogger implements Logger interface but does not output any logs
// This is useful for testing environments where log output is not desired
type SilentLogger struct{}

// NewSilentLogger creates a new silent logger instance
func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (l *SilentLogger) Info(msg string, args ...any)  {}
func (l *SilentLogger) Warn(msg string, args ...any)  {}
func (l *SilentLogger) Error(msg string, args ...any) {}
func (l *SilentLogger) Debug(msg string, args ...any) {}
