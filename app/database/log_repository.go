package database

import (
	"encoding/json"
	"fmt"
)

var _ LogRepository = (*SQLLogRepository)(nil)

type SQLLogRepository struct {
	db *DB
}

func NewLogRepository(db *DB) *SQLLogRepository {
	return &SQLLogRepository{db: db}
}

func (r *SQLLogRepository) InsertLog(entry LogEntry) error {
	meta := entry.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal log meta: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO run_logs (id, run_id, level, message, meta, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.RunID, entry.Level, entry.Message, string(metaJSON), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}

	return nil
}

func (r *SQLLogRepository) GetLogsByRun(runID string, level string) ([]LogEntry, error) {
	query := `
		SELECT id, run_id, level, message, meta, created_at
		FROM run_logs
		WHERE run_id = ?`
	args := []any{runID}

	if level != "" {
		query += ` AND level = ?`
		args = append(args, level)
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get run logs: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var entry LogEntry
		var meta string
		if err := rows.Scan(&entry.ID, &entry.RunID, &entry.Level, &entry.Message, &meta, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log row: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &entry.Meta); err != nil {
			return nil, fmt.Errorf("failed to unmarshal log meta: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating log rows: %w", err)
	}

	return entries, nil
}
