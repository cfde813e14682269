// Package pipeline runs the monitoring cycle: fan sources out to workers,
// detect changes, extract events, assemble the brief, deliver it, and
// finalize the run record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/safarai/intelwatch/app/brief"
	"github.com/safarai/intelwatch/app/database"
	"github.com/safarai/intelwatch/app/detect"
	"github.com/safarai/intelwatch/app/extract"
	"github.com/safarai/intelwatch/app/fetch"
	"github.com/safarai/intelwatch/app/metrics"
	"github.com/safarai/intelwatch/app/notify"
	"github.com/safarai/intelwatch/app/reason"
	"github.com/safarai/intelwatch/app/retry"
)

// ErrRunActive means a run is already in flight. Triggers are rejected,
// not queued.
var ErrRunActive = errors.New("a run is already active")

// Store bundles the repositories the orchestrator writes through.
type Store struct {
	Sources database.SourceRepository
	Items   database.ItemRepository
	Runs    database.RunRepository
	Events  database.EventRepository
	Briefs  database.BriefRepository
	Logs    database.LogRepository
}

type Options struct {
	WorkerCount   int
	SourceTimeout time.Duration
	RunTimeout    time.Duration
	ReasonBudget  int
	FetchRetry    retry.Policy
	ReasonRetry   retry.Policy
}

type Orchestrator struct {
	store     Store
	fetcher   fetch.Fetcher
	reasoner  reason.Client
	notifier  notify.Notifier
	assembler *brief.Assembler
	opts      Options

	mu     sync.Mutex
	active bool
}

func NewOrchestrator(store Store, fetcher fetch.Fetcher, reasoner reason.Client, notifier notify.Notifier, opts Options) *Orchestrator {
	if opts.WorkerCount < 1 {
		opts.WorkerCount = 1
	}

	return &Orchestrator{
		store:     store,
		fetcher:   fetcher,
		reasoner:  reasoner,
		notifier:  notifier,
		assembler: brief.NewAssembler(),
		opts:      opts,
	}
}

// Active reports whether a run is currently in flight.
func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Trigger starts a run in the background and returns its record
// immediately. A second trigger while a run is active fails with
// ErrRunActive.
func (o *Orchestrator) Trigger(ctx context.Context) (*database.Run, error) {
	run, sources, err := o.begin()
	if err != nil {
		return nil, err
	}

	// The caller's context ends with the trigger request; the accepted
	// run must outlive it.
	runCtx := context.WithoutCancel(ctx)

	go func() {
		defer o.release()
		o.execute(runCtx, run, sources)
	}()

	return run, nil
}

// RunOnce executes a full run synchronously and returns the finalized
// record.
func (o *Orchestrator) RunOnce(ctx context.Context) (*database.Run, error) {
	run, sources, err := o.begin()
	if err != nil {
		return nil, err
	}
	defer o.release()

	o.execute(ctx, run, sources)
	return o.store.Runs.GetRun(run.ID)
}

func (o *Orchestrator) begin() (*database.Run, []database.Source, error) {
	o.mu.Lock()
	if o.active {
		o.mu.Unlock()
		return nil, nil, ErrRunActive
	}
	o.active = true
	o.mu.Unlock()

	sources, err := o.store.Sources.ListActiveSources()
	if err != nil {
		o.release()
		return nil, nil, fmt.Errorf("failed to list sources: %w", err)
	}

	run := &database.Run{
		ID:           uuid.NewString(),
		Status:       database.StatusRunning,
		StartedAt:    time.Now().UTC(),
		SourcesTotal: len(sources),
	}
	if err := o.store.Runs.CreateRun(*run); err != nil {
		o.release()
		return nil, nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, sources, nil
}

func (o *Orchestrator) release() {
	o.mu.Lock()
	o.active = false
	o.mu.Unlock()
}

type sourceResult struct {
	counters  database.RunCounters
	truncated bool // budget ran out mid-source
}

func (o *Orchestrator) execute(ctx context.Context, run *database.Run, sources []database.Source) {
	runCtx := ctx
	if o.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.opts.RunTimeout)
		defer cancel()
	}

	logger := NewRunLogger(o.store.Logs, run.ID)
	logger.Info("Run started", map[string]any{"sources": len(sources)})

	engine := extract.NewEngine(o.reasoner, o.opts.ReasonRetry, o.opts.ReasonBudget)
	detector := detect.NewDetector(o.store.Items)

	var seq atomic.Int64

	jobs := make(chan database.Source)
	results := make(chan sourceResult)

	var wg sync.WaitGroup
	for i := 0; i < o.opts.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for source := range jobs {
				results <- o.processSource(runCtx, run.ID, source, detector, engine, &seq, logger)
			}
		}()
	}

	go func() {
		for _, source := range sources {
			jobs <- source
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	// Single aggregator: counters only ever grow, and partial snapshots
	// are persisted as each source joins.
	var counters database.RunCounters
	var truncated bool
	for result := range results {
		counters.SourcesOK += result.counters.SourcesOK
		counters.SourcesFailed += result.counters.SourcesFailed
		counters.ItemsTotal += result.counters.ItemsTotal
		counters.ItemsNew += result.counters.ItemsNew
		counters.ItemsUpdated += result.counters.ItemsUpdated
		counters.ItemsUnchanged += result.counters.ItemsUnchanged
		counters.EventsCreated += result.counters.EventsCreated
		truncated = truncated || result.truncated

		if err := o.store.Runs.UpdateRunCounters(run.ID, counters); err != nil {
			logger.Error("Failed to persist run counters", map[string]any{"error": err.Error()})
		}
	}

	emailsSent, briefFailed := o.finishRun(runCtx, run.ID, counters, logger)

	status := finalStatus(counters, truncated, briefFailed)
	finishedAt := time.Now().UTC()
	if err := o.store.Runs.FinalizeRun(run.ID, status, counters, emailsSent, finishedAt); err != nil {
		logger.Error("Failed to finalize run", map[string]any{"error": err.Error()})
	}

	metrics.RunsTotal.WithLabelValues(status).Inc()
	metrics.RunDuration.Observe(finishedAt.Sub(run.StartedAt).Seconds())

	logger.Info("Run finished", map[string]any{
		"status":         status,
		"sources_ok":     counters.SourcesOK,
		"sources_failed": counters.SourcesFailed,
		"events_created": counters.EventsCreated,
		"emails_sent":    emailsSent,
	})
}

// finishRun assembles, stores, and delivers the brief. It returns the
// number of successful deliveries and whether brief assembly failed.
func (o *Orchestrator) finishRun(ctx context.Context, runID string, counters database.RunCounters, logger *RunLogger) (int, bool) {
	if counters.SourcesOK == 0 {
		return 0, false
	}

	events, err := o.store.Events.GetEventsByRun(runID)
	if err != nil {
		logger.Error("Failed to load run events", map[string]any{"error": err.Error()})
		return 0, true
	}

	b := o.assembler.Assemble(runID, events)
	if err := o.store.Briefs.InsertBrief(b); err != nil {
		logger.Error("Failed to store brief", map[string]any{"error": err.Error()})
		return 0, true
	}
	logger.Info("Brief assembled", map[string]any{"sections": len(b.Sections), "events": len(events)})

	// The brief is already persisted; delivery stays best-effort even
	// when the run deadline has expired.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()

	deliveries, err := o.notifier.Deliver(notifyCtx, b, events)
	if err != nil {
		logger.Error("Brief delivery failed", map[string]any{"error": err.Error()})
		return 0, false
	}

	emailsSent := 0
	for _, delivery := range deliveries {
		if delivery.Delivered {
			emailsSent++
			metrics.BriefDeliveries.WithLabelValues("delivered").Inc()
		} else {
			metrics.BriefDeliveries.WithLabelValues("failed").Inc()
			logger.Warn("Delivery failed", map[string]any{"recipient": delivery.Recipient, "error": delivery.Error})
		}
	}

	return emailsSent, false
}

func finalStatus(counters database.RunCounters, truncated, briefFailed bool) string {
	if counters.SourcesOK == 0 {
		return database.StatusFailure
	}
	if counters.SourcesFailed > 0 || truncated || briefFailed {
		return database.StatusPartialFailure
	}
	return database.StatusSuccess
}

func (o *Orchestrator) processSource(ctx context.Context, runID string, source database.Source, detector *detect.Detector, engine *extract.Engine, seq *atomic.Int64, logger *RunLogger) sourceResult {
	var result sourceResult

	sourceCtx := ctx
	if o.opts.SourceTimeout > 0 {
		var cancel context.CancelFunc
		sourceCtx, cancel = context.WithTimeout(ctx, o.opts.SourceTimeout)
		defer cancel()
	}

	var docs []fetch.Document
	err := o.opts.FetchRetry.Do(sourceCtx, func(ctx context.Context) error {
		var err error
		docs, err = o.fetcher.Fetch(ctx, source.URL)
		return err
	}, func(err error) retry.Decision {
		return retry.Decision{Retry: fetch.IsTransient(err)}
	})
	if err != nil {
		result.counters.SourcesFailed = 1
		metrics.SourcesProcessed.WithLabelValues("failed").Inc()
		logger.Error("Source fetch failed", map[string]any{"source": source.Name, "url": source.URL, "error": err.Error()})
		return result
	}

	result.counters.SourcesOK = 1
	metrics.SourcesProcessed.WithLabelValues("ok").Inc()

	for _, doc := range docs {
		result.counters.ItemsTotal++

		classification, err := detector.Classify(source.ID, doc)
		if err != nil {
			logger.Error("Change detection failed", map[string]any{"source": source.Name, "url": doc.URL, "error": err.Error()})
			continue
		}
		metrics.ItemsClassified.WithLabelValues(string(classification.State)).Inc()

		if classification.State == detect.StateUnchanged {
			result.counters.ItemsUnchanged++
			if err := o.store.Items.TouchItem(source.ID, doc.URL, doc.RetrievedAt); err != nil {
				logger.Warn("Failed to touch item", map[string]any{"url": doc.URL, "error": err.Error()})
			}
			continue
		}

		truncated := o.processChangedDoc(sourceCtx, runID, source, doc, classification, engine, seq, logger, &result.counters)
		if truncated {
			result.truncated = true
			break
		}
	}

	return result
}

// processChangedDoc extracts events for a new or updated document and
// advances the stored fingerprint. The fingerprint advances on successful
// extraction and on an unparseable reply (the document is deliberately
// skipped); transient failure and budget exhaustion leave it alone so the
// next run retries the same content. Returns true when the run's budget
// ran out.
func (o *Orchestrator) processChangedDoc(ctx context.Context, runID string, source database.Source, doc fetch.Document, classification detect.Classification, engine *extract.Engine, seq *atomic.Int64, logger *RunLogger, counters *database.RunCounters) bool {
	events, err := engine.Extract(ctx, reason.Input{URL: doc.URL, Title: doc.Title, Text: doc.Text})
	switch {
	case err == nil:
		metrics.ReasoningCalls.WithLabelValues("ok").Inc()
	case errors.Is(err, extract.ErrBudgetExhausted):
		metrics.ReasoningCalls.WithLabelValues("budget_exhausted").Inc()
		logger.Warn("Reasoning budget exhausted, truncating run", map[string]any{"source": source.Name})
		return true
	case errors.Is(err, extract.ErrInvalidResponse):
		metrics.ReasoningCalls.WithLabelValues("invalid_response").Inc()
		logger.Warn("Unparseable reasoning reply, skipping document", map[string]any{"url": doc.URL})
		events = nil
	default:
		metrics.ReasoningCalls.WithLabelValues("error").Inc()
		logger.Error("Extraction failed", map[string]any{"url": doc.URL, "error": err.Error()})
		return false
	}

	itemID := uuid.NewString()
	if classification.Item != nil {
		itemID = classification.Item.ID
	}

	for _, event := range events {
		event.RunID = runID
		event.ItemID = itemID
		event.Seq = int(seq.Add(1))
		event.CreatedAt = time.Now().UTC()

		if err := o.store.Events.InsertEvent(event); err != nil {
			logger.Error("Failed to store event", map[string]any{"title": event.Title, "error": err.Error()})
			continue
		}
		counters.EventsCreated++
		metrics.EventsExtracted.WithLabelValues(event.Type).Inc()
	}

	item := database.Item{
		ID:          itemID,
		SourceID:    source.ID,
		URL:         doc.URL,
		Title:       doc.Title,
		Fingerprint: classification.Fingerprint,
		ContentText: doc.Text,
		FetchedAt:   doc.RetrievedAt,
		LastSeenAt:  doc.RetrievedAt,
	}
	if err := o.store.Items.UpsertItem(item); err != nil {
		logger.Error("Failed to store item", map[string]any{"url": doc.URL, "error": err.Error()})
		return false
	}

	if classification.State == detect.StateNew {
		counters.ItemsNew++
	} else {
		counters.ItemsUpdated++
	}

	return false
}
