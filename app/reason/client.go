package reason

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/safarai/intelwatch/app/cfg"
)

// maxInputChars caps the document text sent per call, in runes.
const maxInputChars = 8000

const systemPrompt = `You are a competitive intelligence analyst for the tourism and hospitality industry.
Analyze the provided content and extract structured intelligence events.
Return ONLY a JSON array with NO markdown formatting, NO code blocks, NO explanation.

Each element of the array must have this exact structure:
{
  "event_type": "one of: partnership | funding | campaign_deal | pricing_change | acquisition | hiring_exec | other",
  "title": "brief title of the event",
  "company": "company name mentioned",
  "summary": "1-2 sentences summarizing the key information",
  "why_it_matters": "1-2 sentences explaining relevance to tourism executives",
  "materiality_score": 0-100 integer indicating business impact,
  "confidence": 0-1 float indicating extraction confidence,
  "evidence_quotes": ["2-3 short snippets quoted from the content"]
}

If the content contains no relevant intelligence, return [].`

var _ Client = (*HTTPClient)(nil)

// HTTPClient talks to an OpenAI-compatible chat-completions endpoint.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

func NewHTTPClient(httpClient *http.Client) *HTTPClient {
	c := cfg.Get()

	return &HTTPClient{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(c.ReasonURL, "/"),
		apiKey:     c.ReasonAPIKey,
		model:      c.ReasonModel,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (c *HTTPClient) Reason(ctx context.Context, input Input) ([]Candidate, error) {
	text := input.Text
	if len(text) > maxInputChars {
		runes := []rune(text)
		if len(runes) > maxInputChars {
			text = string(runes[:maxInputChars])
		}
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("URL: %s\nTitle: %s\n\nContent:\n%s", input.URL, input.Title, text)},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Kind: KindInvalidResponse, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindTransient, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransient, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransient, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if kind, ok := classifyStatus(resp.StatusCode, data); ok {
		return nil, &Error{Kind: kind, Err: fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &Error{Kind: KindInvalidResponse, Err: fmt.Errorf("failed to parse response envelope: %w", err)}
	}
	if parsed.Error != nil {
		if isQuotaError(parsed.Error.Code) {
			return nil, &Error{Kind: KindBudgetExhausted, Err: fmt.Errorf("%s", parsed.Error.Message)}
		}
		return nil, &Error{Kind: KindTransient, Err: fmt.Errorf("%s", parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return nil, &Error{Kind: KindInvalidResponse, Err: fmt.Errorf("response contained no choices")}
	}

	return ParseCandidates(parsed.Choices[0].Message.Content)
}

// classifyStatus maps a non-2xx HTTP status to an error kind. Quota
// exhaustion hides behind 429 at some providers, so the body is checked.
func classifyStatus(status int, body []byte) (ErrorKind, bool) {
	switch {
	case status == http.StatusOK:
		return "", false
	case status == http.StatusPaymentRequired:
		return KindBudgetExhausted, true
	case status == http.StatusTooManyRequests:
		if bytes.Contains(body, []byte("insufficient_quota")) {
			return KindBudgetExhausted, true
		}
		return KindRateLimited, true
	default:
		return KindTransient, true
	}
}

func isQuotaError(code string) bool {
	return code == "insufficient_quota" || code == "billing_hard_limit_reached"
}

// ParseCandidates extracts candidate events from the model's reply.
// Replies wrapped in markdown code fences or prose are tolerated; a reply
// with no recognizable JSON is an invalid_response error.
func ParseCandidates(content string) ([]Candidate, error) {
	content = strings.TrimSpace(content)
	if content == "" || strings.EqualFold(content, "null") {
		return nil, nil
	}

	content = stripCodeFence(content)

	// Locate the outermost JSON array, or a single object.
	if start, end := strings.Index(content, "["), strings.LastIndex(content, "]"); start >= 0 && end > start {
		var candidates []Candidate
		if err := json.Unmarshal([]byte(content[start:end+1]), &candidates); err != nil {
			return nil, &Error{Kind: KindInvalidResponse, Err: fmt.Errorf("failed to parse candidates: %w", err)}
		}
		return candidates, nil
	}

	if start, end := strings.Index(content, "{"), strings.LastIndex(content, "}"); start >= 0 && end > start {
		var candidate Candidate
		if err := json.Unmarshal([]byte(content[start:end+1]), &candidate); err != nil {
			return nil, &Error{Kind: KindInvalidResponse, Err: fmt.Errorf("failed to parse candidate: %w", err)}
		}
		return []Candidate{candidate}, nil
	}

	return nil, &Error{Kind: KindInvalidResponse, Err: fmt.Errorf("no JSON found in response")}
}

func stripCodeFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}

	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return content
	}

	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}

	return strings.Join(lines, "\n")
}
