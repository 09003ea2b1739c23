package diskstore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with diskstore-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithIdentity adds the datastore identity to the logger.
func (l *Logger) WithIdentity(identity string) *Logger {
	return &Logger{
		Logger: l.Logger.With("datastore", identity),
	}
}

// LogInsert logs an insert of count records.
func (l *Logger) LogInsert(ctx context.Context, collection string, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"collection", collection,
			"count", count,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "insert completed",
			"collection", collection,
			"count", count,
		)
	}
}

// LogFind logs a find operation.
func (l *Logger) LogFind(ctx context.Context, collection string, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "find failed",
			"collection", collection,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "find completed",
			"collection", collection,
			"results", results,
		)
	}
}

// LogAggregate logs a count, sum or avg.
func (l *Logger) LogAggregate(ctx context.Context, op, collection string, matches int, err error) {
	if err != nil {
		l.ErrorContext(ctx, op+" failed",
			"collection", collection,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, op+" completed",
			"collection", collection,
			"matches", matches,
		)
	}
}

// LogUpdate logs an update operation.
func (l *Logger) LogUpdate(ctx context.Context, collection string, updated int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "update failed",
			"collection", collection,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "update completed",
			"collection", collection,
			"updated", updated,
		)
	}
}

// LogDestroy logs a destroy operation.
func (l *Logger) LogDestroy(ctx context.Context, collection string, destroyed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "destroy failed",
			"collection", collection,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "destroy completed",
			"collection", collection,
			"destroyed", destroyed,
		)
	}
}

// LogPopulate logs a populate operation.
func (l *Logger) LogPopulate(ctx context.Context, parents, queries int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "populate failed",
			"parents", parents,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "populate completed",
			"parents", parents,
			"queries", queries,
		)
	}
}

// LogSnapshot logs a snapshot write.
func (l *Logger) LogSnapshot(ctx context.Context, name string, bytes int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"snapshot", name,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "snapshot saved",
			"snapshot", name,
			"bytes", bytes,
			"duration", duration,
		)
	}
}

// LogRecovery logs loading the snapshot at open.
func (l *Logger) LogRecovery(ctx context.Context, name string, collections, records int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot recovery failed",
			"snapshot", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot recovered",
			"snapshot", name,
			"collections", collections,
			"records", records,
		)
	}
}
