package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/mmcdole/gofeed"

	"github.com/safarai/intelwatch/app/cfg"
)

const maxBodyBytes = 4 << 20 // 4MB

var _ Fetcher = (*HTTPFetcher)(nil)

// HTTPFetcher is the default Fetcher. Feed responses (RSS/Atom) are
// expanded into one document per entry; HTML responses become a single
// markdown document.
type HTTPFetcher struct {
	httpClient *http.Client
	feedParser *gofeed.Parser
	userAgent  string
	timeout    time.Duration
	maxDocs    int
}

func NewHTTPFetcher(httpClient *http.Client) *HTTPFetcher {
	c := cfg.Get()

	return &HTTPFetcher{
		httpClient: httpClient,
		feedParser: gofeed.NewParser(),
		userAgent:  c.UserAgent,
		timeout:    time.Duration(c.FetchTimeout) * time.Second,
		maxDocs:    c.MaxDocsPerSource,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]Document, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, &Error{Kind: KindPermanent, URL: url, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransient, URL: url, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &Error{Kind: KindTransient, URL: url, Err: fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)}
	default:
		return nil, &Error{Kind: KindPermanent, URL: url, Err: fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Kind: KindTransient, URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	retrievedAt := time.Now().UTC()

	if looksLikeFeed(resp.Header.Get("Content-Type"), data) {
		docs, err := f.expandFeed(url, data, retrievedAt)
		if err == nil {
			return docs, nil
		}
		slog.Debug("Feed parse failed, falling back to page conversion", "url", url, "error", err)
	}

	doc, err := f.convertPage(url, data, retrievedAt)
	if err != nil {
		return nil, &Error{Kind: KindPermanent, URL: url, Err: err}
	}

	return []Document{doc}, nil
}

// expandFeed turns each feed entry into its own document so change
// detection and extraction work per announcement rather than per landing
// page.
func (f *HTTPFetcher) expandFeed(url string, data []byte, retrievedAt time.Time) ([]Document, error) {
	feed, err := f.feedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	docs := make([]Document, 0, len(feed.Items))
	for _, item := range feed.Items {
		if len(docs) >= f.maxDocs {
			break
		}
		if item == nil {
			continue
		}

		body := item.Content
		if body == "" {
			body = item.Description
		}

		text := htmlToText(body)
		if item.Title != "" {
			text = item.Title + "\n\n" + text
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		docURL := item.Link
		if docURL == "" {
			docURL = url
		}

		docs = append(docs, Document{
			URL:         docURL,
			Title:       item.Title,
			Text:        text,
			RetrievedAt: retrievedAt,
		})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("feed contained no usable entries")
	}

	return docs, nil
}

func (f *HTTPFetcher) convertPage(url string, data []byte, retrievedAt time.Time) (Document, error) {
	markdown, err := htmltomarkdown.ConvertString(string(data))
	if err != nil {
		return Document{}, fmt.Errorf("failed to convert page: %w", err)
	}

	if strings.TrimSpace(markdown) == "" {
		return Document{}, fmt.Errorf("page produced no text")
	}

	return Document{
		URL:         url,
		Title:       extractTitle(data),
		Text:        markdown,
		RetrievedAt: retrievedAt,
	}, nil
}

func looksLikeFeed(contentType string, data []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "rss") || strings.Contains(ct, "atom") || strings.Contains(ct, "xml") {
		return true
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	s := string(head)
	return strings.Contains(s, "<rss") || strings.Contains(s, "<feed")
}

func htmlToText(s string) string {
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "<") {
		return s
	}
	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return markdown
}

var titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

func extractTitle(data []byte) string {
	match := titleRe.FindSubmatch(data)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(string(match[1]))
}
