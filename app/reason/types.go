package reason

import (
	"context"
	"fmt"
)

type ErrorKind string

const (
	KindTransient       ErrorKind = "transient"
	KindRateLimited     ErrorKind = "rate_limited"
	KindBudgetExhausted ErrorKind = "budget_exhausted"
	KindInvalidResponse ErrorKind = "invalid_response"
)

type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("reasoning service (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the error kind, or empty string when err is not a
// reasoning error.
func KindOf(err error) ErrorKind {
	if re, ok := err.(*Error); ok {
		return re.Kind
	}
	return ""
}

// Input is the material handed to the reasoning service for one document.
type Input struct {
	URL   string
	Title string
	Text  string
}

// Candidate is one raw structured event proposed by the reasoning
// service. It is not trusted: the extraction engine validates and
// normalizes every field before a Candidate becomes an Event.
type Candidate struct {
	Type         string   `json:"event_type"`
	Title        string   `json:"title"`
	Company      string   `json:"company"`
	Summary      string   `json:"summary"`
	WhyItMatters string   `json:"why_it_matters"`
	Quotes       []string `json:"evidence_quotes"`
	Score        int      `json:"materiality_score"`
	Confidence   float64  `json:"confidence"`
}

// Client is the boundary to the external reasoning service.
type Client interface {
	Reason(ctx context.Context, input Input) ([]Candidate, error)
}
