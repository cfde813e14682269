// Package notify is the delivery boundary for assembled briefs. Delivery
// failures never fail the run; they surface as per-recipient results and
// the run's emails_sent counter.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/safarai/intelwatch/app/cfg"
	"github.com/safarai/intelwatch/app/database"
)

// Delivery is the outcome for one recipient.
type Delivery struct {
	Recipient string
	Delivered bool
	Error     string
}

// Notifier delivers one run's brief to every configured recipient.
type Notifier interface {
	Deliver(ctx context.Context, brief database.Brief, events []database.Event) ([]Delivery, error)
}

var _ Notifier = (*HTTPNotifier)(nil)

// HTTPNotifier posts the rendered brief to a Resend-compatible email API,
// one request per recipient so a bad address cannot sink the batch.
type HTTPNotifier struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	from       string
	recipients []string
}

func NewHTTPNotifier(httpClient *http.Client) *HTTPNotifier {
	c := cfg.Get()

	return &HTTPNotifier{
		httpClient: httpClient,
		endpoint:   c.NotifyURL,
		apiKey:     c.NotifyAPIKey,
		from:       c.NotifyFrom,
		recipients: c.NotifyRecipients,
	}
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (n *HTTPNotifier) Deliver(ctx context.Context, brief database.Brief, events []database.Event) ([]Delivery, error) {
	if n.endpoint == "" || len(n.recipients) == 0 {
		return nil, nil
	}

	subject := Subject(brief)
	html := Render(brief, events)

	deliveries := make([]Delivery, 0, len(n.recipients))
	for _, recipient := range n.recipients {
		delivery := Delivery{Recipient: recipient, Delivered: true}
		if err := n.send(ctx, recipient, subject, html); err != nil {
			delivery.Delivered = false
			delivery.Error = err.Error()
		}
		deliveries = append(deliveries, delivery)
	}

	return deliveries, nil
}

func (n *HTTPNotifier) send(ctx context.Context, recipient, subject, html string) error {
	body, err := json.Marshal(emailRequest{
		From:    n.from,
		To:      []string{recipient},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.apiKey)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	return nil
}

// NopNotifier is used when no delivery endpoint is configured.
type NopNotifier struct{}

func (NopNotifier) Deliver(ctx context.Context, brief database.Brief, events []database.Event) ([]Delivery, error) {
	return nil, nil
}
