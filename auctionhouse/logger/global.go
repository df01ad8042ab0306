package logger

import (
	"log/slog"
	"time"
)

// LogRequest logs a served HTTP request
func LogRequest(method, path string, status int, duration time.Duration, attrs ...any) {
	base := []any{
		slog.String("type", "http"),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Duration("took", duration),
	}

	switch {
	case status >= 500:
		slog.Error("Request failed", append(base, attrs...)...)
	case status >= 400:
		slog.Warn("Request rejected", append(base, attrs...)...)
	default:
		slog.Info("Request served", append(base, attrs...)...)
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
		slog.Debug("Query executed", append(attrs,
			slog.String("query", query),
		)...)
	}
}

// LogSystem logs system events
func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogError logs error events
func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}

// LogAlert logs conditions that need an operator, such as a stalled settlement
func LogAlert(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "alert"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}
