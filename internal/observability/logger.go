package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Log *zap.Logger

// InitLogger builds the process logger. An unknown level falls back to info.
func InitLogger(serviceName, level string) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	Log = logger.With(zap.String("service", serviceName))
}

// GetLogger returns the process logger, tagged with the trace and span of
// ctx when it carries a sampled span.
func GetLogger(ctx context.Context) *zap.Logger {
	if Log == nil {
		InitLogger("unknown", "info")
	}

	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return Log
	}
	return Log.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
