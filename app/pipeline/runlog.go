package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/safarai/intelwatch/app/database"
)

// RunLogger mirrors run progress into the run_logs table and the process
// logger. A failed insert never interrupts the run.
type RunLogger struct {
	logs  database.LogRepository
	runID string
}

func NewRunLogger(logs database.LogRepository, runID string) *RunLogger {
	return &RunLogger{logs: logs, runID: runID}
}

func (l *RunLogger) Info(message string, meta map[string]any) {
	l.write(slog.LevelInfo, "info", message, meta)
}

func (l *RunLogger) Warn(message string, meta map[string]any) {
	l.write(slog.LevelWarn, "warn", message, meta)
}

func (l *RunLogger) Error(message string, meta map[string]any) {
	l.write(slog.LevelError, "error", message, meta)
}

func (l *RunLogger) write(level slog.Level, levelName, message string, meta map[string]any) {
	attrs := make([]any, 0, 2+2*len(meta))
	attrs = append(attrs, "run_id", l.runID)
	for key, value := range meta {
		attrs = append(attrs, key, value)
	}
	slog.Log(context.Background(), level, message, attrs...)

	entry := database.LogEntry{
		ID:        uuid.NewString(),
		RunID:     l.runID,
		Level:     levelName,
		Message:   message,
		Meta:      meta,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.logs.InsertLog(entry); err != nil {
		slog.Error("Failed to persist run log entry", "run_id", l.runID, "error", err)
	}
}
