package database

import (
	"encoding/json"
	"fmt"
)

var _ EventRepository = (*SQLEventRepository)(nil)

type SQLEventRepository struct {
	db *DB
}

func NewEventRepository(db *DB) *SQLEventRepository {
	return &SQLEventRepository{db: db}
}

func (r *SQLEventRepository) InsertEvent(event Event) error {
	quotes, err := json.Marshal(event.Quotes)
	if err != nil {
		return fmt.Errorf("failed to marshal quotes: %w", err)
	}

	meta := event.Meta
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal meta: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO events (id, run_id, item_id, seq, event_type, title, company,
			summary, why_it_matters, evidence_quotes, materiality_score, confidence,
			meta, source_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.RunID, event.ItemID, event.Seq, event.Type, event.Title,
		event.Company, event.Summary, event.WhyItMatters, string(quotes),
		event.Score, event.Confidence, string(metaJSON), event.SourceURL, event.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

func (r *SQLEventRepository) GetEventsByRun(runID string) ([]Event, error) {
	rows, err := r.db.Query(`
		SELECT id, run_id, item_id, seq, event_type, title, company, summary,
		       why_it_matters, evidence_quotes, materiality_score, confidence,
		       meta, source_url, created_at
		FROM events
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var quotes, meta string
		err := rows.Scan(
			&event.ID, &event.RunID, &event.ItemID, &event.Seq, &event.Type,
			&event.Title, &event.Company, &event.Summary, &event.WhyItMatters,
			&quotes, &event.Score, &event.Confidence, &meta, &event.SourceURL,
			&event.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}

		if err := json.Unmarshal([]byte(quotes), &event.Quotes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal quotes: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &event.Meta); err != nil {
			return nil, fmt.Errorf("failed to unmarshal meta: %w", err)
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return events, nil
}

func (r *SQLEventRepository) GetEventCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get event count: %w", err)
	}
	return count, nil
}
