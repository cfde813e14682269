package database

import (
	"time"
)

// Run status values. A run is created in StatusRunning and moves to exactly
// one terminal status when every source task has joined and the brief has
// been assembled (or assembly failed).
const (
	StatusRunning        = "running"
	StatusSuccess        = "success"
	StatusPartialFailure = "partial_failure"
	StatusFailure        = "failure"
)

// Event types recognized at the extraction boundary. Anything else coming
// back from the reasoning service is coerced to EventTypeOther.
const (
	EventTypePartnership   = "partnership"
	EventTypeFunding       = "funding"
	EventTypeCampaignDeal  = "campaign_deal"
	EventTypeAcquisition   = "acquisition"
	EventTypePricingChange = "pricing_change"
	EventTypeHiringExec    = "hiring_exec"
	EventTypeOther         = "other"
)

// Source categories carried over from the registry.
const (
	CategoryHotel         = "hotel"
	CategoryAccommodation = "accommodation"
	CategoryAirline       = "airline"
	CategoryDeals         = "deals"
	CategoryNews          = "news"
	CategoryAssociation   = "association"
	CategoryGeneral       = "general"
)

type Source struct {
	ID        string
	Name      string
	URL       string
	Category  string
	Active    bool
	CreatedAt time.Time
}

// Item is one crawled unit tracked across runs, keyed by (source_id, url).
// It holds the last-seen fingerprint and extracted text.
type Item struct {
	ID          string
	SourceID    string
	URL         string
	Title       string
	Fingerprint string
	ContentText string
	FetchedAt   time.Time
	LastSeenAt  time.Time
}

type Run struct {
	ID             string
	Status         string
	StartedAt      time.Time
	FinishedAt     *time.Time
	SourcesTotal   int
	SourcesOK      int
	SourcesFailed  int
	ItemsTotal     int
	ItemsNew       int
	ItemsUpdated   int
	ItemsUnchanged int
	EventsCreated  int
	EmailsSent     int
}

// RunCounters is the mutable portion of a Run's bookkeeping, aggregated by
// the orchestrator and persisted as monotonic partial snapshots while the
// run is in flight.
type RunCounters struct {
	SourcesOK      int
	SourcesFailed  int
	ItemsTotal     int
	ItemsNew       int
	ItemsUpdated   int
	ItemsUnchanged int
	EventsCreated  int
}

// Event is one extracted intelligence record. Immutable once created;
// always belongs to exactly one run. Seq is the extraction order within
// the run and breaks materiality ties in brief sections.
type Event struct {
	ID           string
	RunID        string
	ItemID       string
	Seq          int
	Type         string
	Title        string
	Company      string
	Summary      string
	WhyItMatters string
	Quotes       []string
	Score        int
	Confidence   float64
	Meta         map[string]string
	SourceURL    string
	CreatedAt    time.Time
}

// BriefSection is one named grouping of a run's events. EventIDs preserves
// the section ordering (materiality desc, extraction order asc).
type BriefSection struct {
	Name     string   `json:"name"`
	EventIDs []string `json:"event_ids"`
}

type Brief struct {
	ID        string
	RunID     string
	Sections  []BriefSection
	CreatedAt time.Time
}

type LogEntry struct {
	ID        string
	RunID     string
	Level     string
	Message   string
	Meta      map[string]any
	CreatedAt time.Time
}
