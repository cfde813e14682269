package fetch

import (
	"context"
	"fmt"
	"time"
)

type ErrorKind string

const (
	KindTransient ErrorKind = "transient"
	KindPermanent ErrorKind = "permanent"
)

// Error classifies a fetch failure as transient (retryable) or permanent.
type Error struct {
	Kind ErrorKind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a fetch error worth retrying.
func IsTransient(err error) bool {
	if fe, ok := err.(*Error); ok {
		return fe.Kind == KindTransient
	}
	return false
}

// Document is one retrieved unit of content: a page or one entry of a feed.
type Document struct {
	URL         string
	Title       string
	Text        string
	RetrievedAt time.Time
}

// Fetcher retrieves the documents currently published at a source URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]Document, error)
}
