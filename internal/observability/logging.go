// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// CorrelationID is the context key carrying the per-operation correlation ID.
const CorrelationID LogContextKey = "correlation_id"

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id := ctx.Value(CorrelationID); id != nil {
		return id.(string)
	}
	return ""
}

// SyncLogger provides structured logging for one entity sync controller.
type SyncLogger struct {
	table  string
	logger *Logger
}

// NewSyncLogger creates a SyncLogger scoped to the given table.
func NewSyncLogger(table string) *SyncLogger {
	return &SyncLogger{table: table, logger: GlobalLogger}
}

// LogOperation logs one sync operation against the table.
func (l *SyncLogger) LogOperation(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("table", l.table),
		slog.String("operation", operation),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.InfoContext(ctx, "sync operation", attrs...)
}

// LogReconcile logs a post-failure reconciliation (rollback or re-fetch).
func (l *SyncLogger) LogReconcile(ctx context.Context, operation, action string, err error) {
	l.logger.WarnContext(ctx, "sync reconcile",
		slog.String("table", l.table),
		slog.String("operation", operation),
		slog.String("action", action),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogError logs a failed sync operation.
func (l *SyncLogger) LogError(ctx context.Context, operation string, err error) {
	l.logger.ErrorContext(ctx, "sync error",
		slog.String("table", l.table),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// UploadLogger provides structured logging for the upload pipeline.
type UploadLogger struct {
	logger *Logger
}

// NewUploadLogger creates an UploadLogger.
func NewUploadLogger() *UploadLogger {
	return &UploadLogger{logger: GlobalLogger}
}

// LogFile logs the outcome of a single file in an upload batch.
func (l *UploadLogger) LogFile(ctx context.Context, name, path string, size int64, err error) {
	if err != nil {
		l.logger.ErrorContext(ctx, "file upload failed",
			slog.String("file", name),
			slog.String("path", path),
			slog.Int64("size_bytes", size),
			slog.String("error", err.Error()),
			slog.String("correlation_id", ExtractCorrelationID(ctx)),
		)
		return
	}
	l.logger.InfoContext(ctx, "file uploaded",
		slog.String("file", name),
		slog.String("path", path),
		slog.Int64("size_bytes", size),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogBatch logs an upload batch summary.
func (l *UploadLogger) LogBatch(ctx context.Context, total, succeeded, failed int) {
	l.logger.InfoContext(ctx, "upload batch finished",
		slog.Int("total", total),
		slog.Int("succeeded", succeeded),
		slog.Int("failed", failed),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}
