package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ ItemRepository = (*SQLItemRepository)(nil)

type SQLItemRepository struct {
	db *DB
}

func NewItemRepository(db *DB) *SQLItemRepository {
	return &SQLItemRepository{db: db}
}

func (r *SQLItemRepository) GetItem(sourceID, url string) (*Item, error) {
	var item Item
	err := r.db.QueryRow(`
		SELECT id, source_id, url, title, fingerprint, content_text, fetched_at, last_seen_at
		FROM items
		WHERE source_id = ? AND url = ?`, sourceID, url).Scan(
		&item.ID, &item.SourceID, &item.URL, &item.Title,
		&item.Fingerprint, &item.ContentText, &item.FetchedAt, &item.LastSeenAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return &item, nil
}

// UpsertItem writes the item's fingerprint and text in one atomic
// statement keyed by (source_id, url).
func (r *SQLItemRepository) UpsertItem(item Item) error {
	_, err := r.db.Exec(`
		INSERT INTO items (id, source_id, url, title, fingerprint, content_text, fetched_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id, url) DO UPDATE SET
			title = excluded.title,
			fingerprint = excluded.fingerprint,
			content_text = excluded.content_text,
			fetched_at = excluded.fetched_at,
			last_seen_at = excluded.last_seen_at`,
		item.ID, item.SourceID, item.URL, item.Title,
		item.Fingerprint, item.ContentText, item.FetchedAt, item.LastSeenAt)

	if err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}

	return nil
}

func (r *SQLItemRepository) TouchItem(sourceID, url string, seenAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE items
		SET last_seen_at = ?
		WHERE source_id = ? AND url = ?`, seenAt, sourceID, url)
	if err != nil {
		return fmt.Errorf("failed to touch item: %w", err)
	}
	return nil
}

func (r *SQLItemRepository) GetItemCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}
	return count, nil
}
