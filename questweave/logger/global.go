package logger

import (
	"log/slog"
	"time"
)

// LogProgression logs one quest progression attempt.
func LogProgression(shortID string, chapter int, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "engine"),
		slog.String("quest_short_id", shortID),
		slog.Int("chapter", chapter),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Progression failed", append(attrs, slog.Any("error", err))...)
	} else {
		slog.Info("Progression completed", attrs...)
	}
}

// LogQuery logs database operations
func LogQuery(query string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "db"),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Query failed", append(attrs,
			slog.String("query", query),
			slog.Any("error", err),
		)...)
	} else {
		slog.Info("Query executed", append(attrs,
			slog.String("query", query),
		)...)
	}
}

// LogSystem logs system events
func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}
