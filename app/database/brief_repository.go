package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

var _ BriefRepository = (*SQLBriefRepository)(nil)

type SQLBriefRepository struct {
	db *DB
}

func NewBriefRepository(db *DB) *SQLBriefRepository {
	return &SQLBriefRepository{db: db}
}

func (r *SQLBriefRepository) InsertBrief(brief Brief) error {
	sections, err := json.Marshal(brief.Sections)
	if err != nil {
		return fmt.Errorf("failed to marshal sections: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO briefs (id, run_id, sections, created_at)
		VALUES (?, ?, ?, ?)`,
		brief.ID, brief.RunID, string(sections), brief.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert brief: %w", err)
	}

	return nil
}

func (r *SQLBriefRepository) scanBrief(row *sql.Row) (*Brief, error) {
	var brief Brief
	var sections string
	err := row.Scan(&brief.ID, &brief.RunID, &sections, &brief.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan brief: %w", err)
	}

	if err := json.Unmarshal([]byte(sections), &brief.Sections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sections: %w", err)
	}

	return &brief, nil
}

func (r *SQLBriefRepository) GetBriefByRun(runID string) (*Brief, error) {
	return r.scanBrief(r.db.QueryRow(`
		SELECT id, run_id, sections, created_at
		FROM briefs
		WHERE run_id = ?`, runID))
}

func (r *SQLBriefRepository) GetLatestBrief() (*Brief, error) {
	return r.scanBrief(r.db.QueryRow(`
		SELECT id, run_id, sections, created_at
		FROM briefs
		ORDER BY created_at DESC
		LIMIT 1`))
}
