// Package extract turns raw reasoning candidates into validated events,
// enforcing the per-run reasoning call budget.
package extract

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/safarai/intelwatch/app/database"
	"github.com/safarai/intelwatch/app/reason"
	"github.com/safarai/intelwatch/app/retry"
)

var (
	// ErrBudgetExhausted means the run's reasoning call budget is spent.
	// Once returned, every later Extract call on the same engine fails
	// immediately without contacting the service.
	ErrBudgetExhausted = errors.New("reasoning call budget exhausted")

	// ErrInvalidResponse means the service replied but the reply could
	// not be parsed. The document is skipped, not retried.
	ErrInvalidResponse = errors.New("reasoning service returned an invalid response")
)

var knownEventTypes = map[string]bool{
	database.EventTypePartnership:   true,
	database.EventTypeFunding:       true,
	database.EventTypeCampaignDeal:  true,
	database.EventTypeAcquisition:   true,
	database.EventTypePricingChange: true,
	database.EventTypeHiringExec:    true,
	database.EventTypeOther:         true,
}

// Engine is scoped to a single run. The call counter covers every attempt
// sent to the service, retries included. A budget of zero or less means
// unlimited.
type Engine struct {
	client reason.Client
	policy retry.Policy
	budget int64

	calls     atomic.Int64
	exhausted atomic.Bool
}

func NewEngine(client reason.Client, policy retry.Policy, budget int) *Engine {
	return &Engine{
		client: client,
		policy: policy,
		budget: int64(budget),
	}
}

// Calls returns how many reasoning attempts the engine has spent.
func (e *Engine) Calls() int {
	return int(e.calls.Load())
}

// Exhausted reports whether the budget ran out during this run.
func (e *Engine) Exhausted() bool {
	return e.exhausted.Load()
}

// Extract asks the reasoning service about one document and validates
// whatever comes back. Transient and rate-limit failures are retried
// under the engine's policy; budget exhaustion and unparseable replies
// are surfaced as sentinel errors.
func (e *Engine) Extract(ctx context.Context, input reason.Input) ([]database.Event, error) {
	if e.exhausted.Load() {
		return nil, ErrBudgetExhausted
	}

	var candidates []reason.Candidate

	err := e.policy.Do(ctx, func(ctx context.Context) error {
		if calls := e.calls.Add(1); e.budget > 0 && calls > e.budget {
			e.exhausted.Store(true)
			return ErrBudgetExhausted
		}

		var err error
		candidates, err = e.client.Reason(ctx, input)
		return err
	}, e.classify)

	if err != nil {
		if errors.Is(err, ErrBudgetExhausted) {
			return nil, ErrBudgetExhausted
		}
		if reason.KindOf(err) == reason.KindBudgetExhausted {
			e.exhausted.Store(true)
			return nil, ErrBudgetExhausted
		}
		if reason.KindOf(err) == reason.KindInvalidResponse {
			return nil, ErrInvalidResponse
		}
		return nil, err
	}

	events := make([]database.Event, 0, len(candidates))
	for _, candidate := range candidates {
		if event, ok := validate(candidate, input.URL); ok {
			events = append(events, event)
		}
	}

	return events, nil
}

func (e *Engine) classify(err error) retry.Decision {
	switch reason.KindOf(err) {
	case reason.KindTransient:
		return retry.Decision{Retry: true}
	case reason.KindRateLimited:
		return retry.Decision{Retry: true, MinDelay: 5 * time.Second}
	default:
		return retry.Decision{Retry: false}
	}
}

// validate normalizes one candidate into an event. Candidates with no
// usable title or summary are dropped; everything else is coerced into
// range rather than rejected.
func validate(candidate reason.Candidate, sourceURL string) (database.Event, bool) {
	if candidate.Title == "" && candidate.Summary == "" {
		return database.Event{}, false
	}

	eventType := candidate.Type
	if !knownEventTypes[eventType] {
		eventType = database.EventTypeOther
	}

	score := candidate.Score
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	confidence := candidate.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	quotes := make([]string, 0, len(candidate.Quotes))
	for _, quote := range candidate.Quotes {
		if quote != "" {
			quotes = append(quotes, quote)
		}
	}

	meta := map[string]string{}
	if len(quotes) == 0 {
		meta["missing_evidence"] = "true"
	}

	return database.Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		Title:        candidate.Title,
		Company:      candidate.Company,
		Summary:      candidate.Summary,
		WhyItMatters: candidate.WhyItMatters,
		Quotes:       quotes,
		Score:        score,
		Confidence:   confidence,
		Meta:         meta,
		SourceURL:    sourceURL,
	}, true
}
