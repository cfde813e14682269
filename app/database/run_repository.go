package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ RunRepository = (*SQLRunRepository)(nil)

type SQLRunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *SQLRunRepository {
	return &SQLRunRepository{db: db}
}

func (r *SQLRunRepository) CreateRun(run Run) error {
	_, err := r.db.Exec(`
		INSERT INTO runs (id, status, started_at, sources_total)
		VALUES (?, ?, ?, ?)`,
		run.ID, run.Status, run.StartedAt, run.SourcesTotal)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

const runColumns = `id, status, started_at, finished_at, sources_total, sources_ok,
	sources_failed, items_total, items_new, items_updated, items_unchanged,
	events_created, emails_sent`

func (r *SQLRunRepository) scanRun(row *sql.Row) (*Run, error) {
	var run Run
	err := row.Scan(
		&run.ID, &run.Status, &run.StartedAt, &run.FinishedAt,
		&run.SourcesTotal, &run.SourcesOK, &run.SourcesFailed,
		&run.ItemsTotal, &run.ItemsNew, &run.ItemsUpdated, &run.ItemsUnchanged,
		&run.EventsCreated, &run.EmailsSent)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return &run, nil
}

func (r *SQLRunRepository) GetRun(id string) (*Run, error) {
	return r.scanRun(r.db.QueryRow(
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
}

// GetLatestRun resolves "latest" as a query over started_at rather than a
// separately maintained pointer.
func (r *SQLRunRepository) GetLatestRun() (*Run, error) {
	return r.scanRun(r.db.QueryRow(
		`SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC LIMIT 1`))
}

// UpdateRunCounters persists a partial counter snapshot while the run is
// still in flight. Called only from the orchestrator's aggregation
// goroutine, so successive snapshots are monotonically non-decreasing.
func (r *SQLRunRepository) UpdateRunCounters(id string, c RunCounters) error {
	_, err := r.db.Exec(`
		UPDATE runs
		SET sources_ok = ?, sources_failed = ?, items_total = ?, items_new = ?,
		    items_updated = ?, items_unchanged = ?, events_created = ?
		WHERE id = ?`,
		c.SourcesOK, c.SourcesFailed, c.ItemsTotal, c.ItemsNew,
		c.ItemsUpdated, c.ItemsUnchanged, c.EventsCreated, id)
	if err != nil {
		return fmt.Errorf("failed to update run counters: %w", err)
	}
	return nil
}

// FinalizeRun writes the terminal status and the final counters in a single
// statement so readers never observe a terminal status with stale counts.
func (r *SQLRunRepository) FinalizeRun(id string, status string, c RunCounters, emailsSent int, finishedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE runs
		SET status = ?, finished_at = ?, sources_ok = ?, sources_failed = ?,
		    items_total = ?, items_new = ?, items_updated = ?, items_unchanged = ?,
		    events_created = ?, emails_sent = ?
		WHERE id = ?`,
		status, finishedAt, c.SourcesOK, c.SourcesFailed,
		c.ItemsTotal, c.ItemsNew, c.ItemsUpdated, c.ItemsUnchanged,
		c.EventsCreated, emailsSent, id)
	if err != nil {
		return fmt.Errorf("failed to finalize run: %w", err)
	}
	return nil
}

func (r *SQLRunRepository) GetRunCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get run count: %w", err)
	}
	return count, nil
}
