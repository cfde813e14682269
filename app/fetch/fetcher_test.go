package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/safarai/intelwatch/app/cfg"
)

func setupTestConfig(t *testing.T) {
	t.Helper()
	cfg.Set(&cfg.Cfg{
		UserAgent:        "IntelWatch Test/1.0",
		FetchTimeout:     5,
		MaxDocsPerSource: 3,
	})
}

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Press Room</title>
<item>
	<title>New resort partnership announced</title>
	<link>https://example.com/news/1</link>
	<description>&lt;p&gt;Brand A and Brand B launch a joint loyalty program.&lt;/p&gt;</description>
</item>
<item>
	<title>Summer campaign kicks off</title>
	<link>https://example.com/news/2</link>
	<description>Discounted packages for July.</description>
</item>
<item>
	<title>Third entry</title>
	<link>https://example.com/news/3</link>
	<description>Filler.</description>
</item>
<item>
	<title>Fourth entry beyond the cap</title>
	<link>https://example.com/news/4</link>
	<description>Should be cut off.</description>
</item>
</channel>
</rss>`

func TestFetch_FeedExpandsToDocuments(t *testing.T) {
	setupTestConfig(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "IntelWatch Test/1.0" {
			t.Errorf("Expected configured user agent, got %q", ua)
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.Client())
	docs, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(docs) != 3 {
		t.Fatalf("Expected 3 documents (capped), got %d", len(docs))
	}
	if docs[0].URL != "https://example.com/news/1" {
		t.Errorf("Expected entry link as document URL, got %s", docs[0].URL)
	}
	if docs[0].Title != "New resort partnership announced" {
		t.Errorf("Unexpected document title: %s", docs[0].Title)
	}
	if docs[0].Text == "" {
		t.Error("Expected non-empty document text")
	}
	if docs[0].RetrievedAt.IsZero() {
		t.Error("Expected RetrievedAt to be set")
	}
}

func TestFetch_HTMLPageBecomesSingleDocument(t *testing.T) {
	setupTestConfig(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Hotel Newsroom</title></head>
			<body><h1>Announcements</h1><p>We opened a new property in Lisbon.</p></body></html>`))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.Client())
	docs, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(docs) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(docs))
	}
	if docs[0].URL != server.URL {
		t.Errorf("Expected source URL as document URL, got %s", docs[0].URL)
	}
	if docs[0].Title != "Hotel Newsroom" {
		t.Errorf("Expected page title, got %q", docs[0].Title)
	}
	if docs[0].Text == "" {
		t.Error("Expected converted text")
	}
}

func TestFetch_ServerErrorIsTransient(t *testing.T) {
	setupTestConfig(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.Client())
	_, err := fetcher.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error")
	}
	if !IsTransient(err) {
		t.Errorf("Expected transient error for 500, got %v", err)
	}
}

func TestFetch_NotFoundIsPermanent(t *testing.T) {
	setupTestConfig(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.Client())
	_, err := fetcher.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error")
	}
	if IsTransient(err) {
		t.Errorf("Expected permanent error for 404, got transient: %v", err)
	}
}

func TestFetch_ConnectionFailureIsTransient(t *testing.T) {
	setupTestConfig(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	fetcher := NewHTTPFetcher(http.DefaultClient)
	_, err := fetcher.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error")
	}
	if !IsTransient(err) {
		t.Errorf("Expected transient error for connection failure, got %v", err)
	}
}

func TestLooksLikeFeed(t *testing.T) {
	if !looksLikeFeed("application/rss+xml", nil) {
		t.Error("rss content type should be detected as feed")
	}
	if !looksLikeFeed("text/html", []byte(`<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom">`)) {
		t.Error("atom body should be detected as feed")
	}
	if looksLikeFeed("text/html", []byte("<html><body></body></html>")) {
		t.Error("plain html should not be detected as feed")
	}
}
