package database

import (
	"database/sql"
	"fmt"
)

var _ SourceRepository = (*SQLSourceRepository)(nil)

type SQLSourceRepository struct {
	db *DB
}

func NewSourceRepository(db *DB) *SQLSourceRepository {
	return &SQLSourceRepository{db: db}
}

func (r *SQLSourceRepository) ListSources() ([]Source, error) {
	return r.querySources(`
		SELECT id, name, url, category, active, created_at
		FROM sources
		ORDER BY created_at`)
}

func (r *SQLSourceRepository) ListActiveSources() ([]Source, error) {
	return r.querySources(`
		SELECT id, name, url, category, active, created_at
		FROM sources
		WHERE active = 1
		ORDER BY created_at`)
}

func (r *SQLSourceRepository) querySources(query string) ([]Source, error) {
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Name, &s.URL, &s.Category, &s.Active, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

func (r *SQLSourceRepository) GetSource(id string) (*Source, error) {
	var s Source
	err := r.db.QueryRow(`
		SELECT id, name, url, category, active, created_at
		FROM sources
		WHERE id = ?`, id).Scan(&s.ID, &s.Name, &s.URL, &s.Category, &s.Active, &s.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return &s, nil
}

func (r *SQLSourceRepository) CreateSource(source Source) error {
	_, err := r.db.Exec(`
		INSERT INTO sources (id, name, url, category, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		source.ID, source.Name, source.URL, source.Category, source.Active, source.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create source: %w", err)
	}
	return nil
}

// UpdateSource applies the non-nil fields and returns the updated record,
// or nil if the source does not exist.
func (r *SQLSourceRepository) UpdateSource(id string, name, url, category *string, active *bool) (*Source, error) {
	existing, err := r.GetSource(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	if name != nil {
		existing.Name = *name
	}
	if url != nil {
		existing.URL = *url
	}
	if category != nil {
		existing.Category = *category
	}
	if active != nil {
		existing.Active = *active
	}

	_, err = r.db.Exec(`
		UPDATE sources
		SET name = ?, url = ?, category = ?, active = ?
		WHERE id = ?`,
		existing.Name, existing.URL, existing.Category, existing.Active, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update source: %w", err)
	}

	return existing, nil
}

func (r *SQLSourceRepository) DeleteSource(id string) error {
	result, err := r.db.Exec(`DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *SQLSourceRepository) GetSourceCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}

func (r *SQLSourceRepository) GetActiveSourceCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sources WHERE active = 1").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get active source count: %w", err)
	}
	return count, nil
}
