package database

import (
	"time"
)

type SourceRepository interface {
	ListSources() ([]Source, error)
	ListActiveSources() ([]Source, error)
	GetSource(id string) (*Source, error)
	CreateSource(source Source) error
	UpdateSource(id string, name, url, category *string, active *bool) (*Source, error)
	DeleteSource(id string) error
	GetSourceCount() (int, error)
	GetActiveSourceCount() (int, error)
}

// ItemRepository is the fingerprint store: per (source_id, url) it keeps the
// last-seen fingerprint and extracted text. UpsertItem is an atomic
// single-key write; item keys never contend across source tasks.
type ItemRepository interface {
	GetItem(sourceID, url string) (*Item, error)
	UpsertItem(item Item) error
	TouchItem(sourceID, url string, seenAt time.Time) error
	GetItemCount() (int, error)
}

type RunRepository interface {
	CreateRun(run Run) error
	GetRun(id string) (*Run, error)
	// GetLatestRun returns the run with the highest start timestamp, or nil.
	GetLatestRun() (*Run, error)
	UpdateRunCounters(id string, counters RunCounters) error
	FinalizeRun(id string, status string, counters RunCounters, emailsSent int, finishedAt time.Time) error
	GetRunCount() (int, error)
}

type EventRepository interface {
	InsertEvent(event Event) error
	GetEventsByRun(runID string) ([]Event, error)
	GetEventCount() (int, error)
}

type BriefRepository interface {
	InsertBrief(brief Brief) error
	GetBriefByRun(runID string) (*Brief, error)
	GetLatestBrief() (*Brief, error)
}

type LogRepository interface {
	InsertLog(entry LogEntry) error
	// GetLogsByRun returns a run's log entries in append order; level
	// filters to a single level when non-empty.
	GetLogsByRun(runID string, level string) ([]LogEntry, error)
}
