package logging

import (
	"context"
	"log/slog"

	"chyron/internal/services"
)

// ContextFields extracts the pipeline identifiers carried by ctx as attrs.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	var attrs []Attr
	if id, ok := services.VideoIDFrom(ctx); ok {
		attrs = append(attrs, String(FieldVideoID, id))
	}
	if id, ok := services.JobIDFrom(ctx); ok {
		attrs = append(attrs, String(FieldJobID, id))
	}
	if stage, ok := services.StageFrom(ctx); ok {
		attrs = append(attrs, String(FieldStage, stage))
	}
	if id, ok := services.CorrelationIDFrom(ctx); ok {
		attrs = append(attrs, String(FieldCorrelationID, id))
	}
	return attrs
}

// WithContext returns a child logger carrying the identifiers found in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	attrs := ContextFields(ctx)
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(Args(attrs...)...)
}
