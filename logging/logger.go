// Package logging holds the process-wide structured logger.
package logging

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Debug(string, ...zap.Field)
	Info(string, ...zap.Field)
	Warn(string, ...zap.Field)
	Error(string, ...zap.Field)

	DebugWithContext(context.Context, string, ...zap.Field)
	WarnWithContext(context.Context, string, ...zap.Field)
	ErrorWithContext(context.Context, string, ...zap.Field)

	// With returns a child logger carrying fields on every entry.
	With(fields ...zap.Field) Logger
}

// ZapLogger is an implementation of Logger that uses the uber/zap logger underneath.
type ZapLogger struct {
	*zap.Logger
}

var _ Logger = (*ZapLogger)(nil)

func (l *ZapLogger) With(fields ...zap.Field) Logger {
	return &ZapLogger{l.Logger.With(fields...)}
}

func (l *ZapLogger) DebugWithContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.Logger.Debug(msg, withSpan(ctx, fields)...)
}

func (l *ZapLogger) WarnWithContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.Logger.Warn(msg, withSpan(ctx, fields)...)
}

func (l *ZapLogger) ErrorWithContext(ctx context.Context, msg string, fields ...zap.Field) {
	l.Logger.Error(msg, withSpan(ctx, fields)...)
}

// withSpan appends the trace and span ids of the span recorded in ctx.
func withSpan(ctx context.Context, fields []zap.Field) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return fields
	}
	return append(fields,
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()))
}

// NewNoopLogger provides noop logger that satisfies the logger interface.
func NewNoopLogger() *ZapLogger {
	return &ZapLogger{zap.NewNop()}
}

// NewLogger builds a production logger. logFormat is "json" or "text",
// logLevel one of debug, info, warn, error, panic, fatal or none.
func NewLogger(logFormat, logLevel string) (*ZapLogger, error) {
	if logLevel == "none" {
		return NewNoopLogger(), nil
	}

	var level zapcore.Level
	switch logLevel {
	case "debug":
		level = zap.DebugLevel
	case "info":
		level = zap.InfoLevel
	case "warn":
		level = zap.WarnLevel
	case "error":
		level = zap.ErrorLevel
	case "panic":
		level = zap.PanicLevel
	case "fatal":
		level = zap.FatalLevel
	default:
		return nil, fmt.Errorf("unknown log level: %s", logLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.CallerKey = ""
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch logFormat {
	case "json":
	case "text":
		cfg.Encoding = "console"
		cfg.DisableCaller = true
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format: %s", logFormat)
	}

	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{log}, nil
}

var (
	initOnce sync.Once
	initErr  error

	mu      sync.RWMutex
	process Logger = NewNoopLogger()
)

// Init configures the process-wide logger. Only the first call has an
// effect; later calls return the first call's error.
func Init(logFormat, logLevel string) error {
	initOnce.Do(func() {
		var l *ZapLogger
		l, initErr = NewLogger(logFormat, logLevel)
		if initErr != nil {
			return
		}
		mu.Lock()
		process = l
		mu.Unlock()
	})
	return initErr
}

// L returns the process-wide logger, a no-op logger until Init succeeded.
func L() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return process
}
