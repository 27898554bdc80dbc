package services

import (
	"context"
	"log/slog"

	"volgrid/internal/infrastructure"
)

// logServiceError logs a failed service operation through the context-aware
// infrastructure logger so the trace ID rides along.
func logServiceError(ctx context.Context, action, message string, attrs ...slog.Attr) {
	logger := infrastructure.LoggerWithContext(ctx)

	allAttrs := []slog.Attr{
		slog.String("component", "volatility_service"),
		slog.String("action", action),
	}
	allAttrs = append(allAttrs, attrs...)

	logger.LogAttrs(ctx, slog.LevelError, message, allAttrs...)
}
