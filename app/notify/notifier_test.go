package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/safarai/intelwatch/app/brief"
	"github.com/safarai/intelwatch/app/cfg"
	"github.com/safarai/intelwatch/app/database"
)

func testBrief() (database.Brief, []database.Event) {
	events := []database.Event{
		{ID: "e1", Title: "Big alliance", Company: "Acme Hotels", Summary: "Joint program.", WhyItMatters: "Shifts loyalty.", Score: 90, SourceURL: "https://example.com/a"},
		{ID: "e2", Title: "Series B", Company: "TripCo", Summary: "Raised funds.", Score: 60},
	}
	b := database.Brief{
		ID:        "b1",
		RunID:     "run-1",
		CreatedAt: time.Date(2026, 8, 20, 7, 0, 0, 0, time.UTC),
		Sections: []database.BriefSection{
			{Name: brief.SectionTopMovers, EventIDs: []string{"e1"}},
			{Name: brief.SectionFunding, EventIDs: []string{"e2"}},
		},
	}
	return b, events
}

func TestDeliver_PerRecipientOutcomes(t *testing.T) {
	var mu sync.Mutex
	var requests []emailRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req emailRequest
		json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()

		if len(req.To) == 1 && req.To[0] == "bad@example.com" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.Write([]byte(`{"id":"email-1"}`))
	}))
	defer server.Close()

	cfg.Set(&cfg.Cfg{
		NotifyURL:        server.URL,
		NotifyAPIKey:     "key",
		NotifyFrom:       "digest@intelwatch.local",
		NotifyRecipients: []string{"ok@example.com", "bad@example.com"},
	})

	notifier := NewHTTPNotifier(server.Client())
	b, events := testBrief()

	deliveries, err := notifier.Deliver(context.Background(), b, events)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(deliveries) != 2 {
		t.Fatalf("Expected 2 deliveries, got %d", len(deliveries))
	}
	if !deliveries[0].Delivered || deliveries[0].Recipient != "ok@example.com" {
		t.Errorf("Unexpected first delivery: %+v", deliveries[0])
	}
	if deliveries[1].Delivered {
		t.Errorf("Expected failed delivery for bad recipient: %+v", deliveries[1])
	}
	if deliveries[1].Error == "" {
		t.Error("Expected error message on failed delivery")
	}

	if len(requests) != 2 {
		t.Fatalf("Expected one request per recipient, got %d", len(requests))
	}
	if requests[0].From != "digest@intelwatch.local" {
		t.Errorf("Unexpected from address: %s", requests[0].From)
	}
	if !strings.Contains(requests[0].HTML, "Big alliance") {
		t.Error("Expected rendered event in email body")
	}
}

func TestDeliver_NoEndpointIsNoop(t *testing.T) {
	cfg.Set(&cfg.Cfg{NotifyRecipients: []string{"someone@example.com"}})

	notifier := NewHTTPNotifier(http.DefaultClient)
	b, events := testBrief()

	deliveries, err := notifier.Deliver(context.Background(), b, events)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if deliveries != nil {
		t.Errorf("Expected no deliveries without endpoint, got %+v", deliveries)
	}
}

func TestRender_DisplayLimit(t *testing.T) {
	events := make([]database.Event, 0, 8)
	ids := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		id := string(rune('a' + i))
		events = append(events, database.Event{ID: id, Title: "Event " + id, Score: 90})
		ids = append(ids, id)
	}

	b := database.Brief{
		CreatedAt: time.Now().UTC(),
		Sections:  []database.BriefSection{{Name: brief.SectionTopMovers, EventIDs: ids}},
	}

	html := Render(b, events)

	shown := strings.Count(html, "<strong>Event ")
	if shown != brief.DisplayLimit {
		t.Errorf("Expected %d rendered events, got %d", brief.DisplayLimit, shown)
	}
	if !strings.Contains(html, "+3 more") {
		t.Error("Expected overflow marker for events beyond the display cap")
	}
}

func TestRender_EscapesContent(t *testing.T) {
	events := []database.Event{{ID: "e1", Title: `<script>alert(1)</script>`, Score: 90}}
	b := database.Brief{
		CreatedAt: time.Now().UTC(),
		Sections:  []database.BriefSection{{Name: brief.SectionTopMovers, EventIDs: []string{"e1"}}},
	}

	html := Render(b, events)
	if strings.Contains(html, "<script>") {
		t.Error("Expected event content to be HTML-escaped")
	}
}

func TestRender_EmptyBrief(t *testing.T) {
	b := database.Brief{CreatedAt: time.Now().UTC()}
	html := Render(b, nil)
	if !strings.Contains(html, "No notable events") {
		t.Error("Expected empty-brief placeholder text")
	}
}
