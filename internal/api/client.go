package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client talks to the crawler dashboard backend. It never retries.
type Client struct {
	base   string
	static bool
	http   *http.Client
	logger *zap.Logger

	searchPath   string
	searchOff    bool
	searchReason string
	searchMax    int
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStaticSnapshot disables all network access.
func WithStaticSnapshot(static bool) Option {
	return func(c *Client) { c.static = static }
}

func WithSearchEndpoint(path string) Option {
	return func(c *Client) {
		if strings.TrimSpace(path) != "" {
			c.searchPath = path
		}
	}
}

// NewClient creates a client for the given API base. An empty base means
// paths are used verbatim.
func NewClient(base string, opts ...Option) *Client {
	c := &Client{
		base:       base,
		searchPath: "/api/search",
		searchMax:  defaultMaxTopK,
		http:       &http.Client{Timeout: 15 * time.Second},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Base() string { return c.base }

func (c *Client) StaticSnapshot() bool { return c.static }

// BuildURL joins base (trailing slashes stripped) and path.
func BuildURL(base, path string) string {
	if base == "" {
		return path
	}
	return strings.TrimRight(base, "/") + path
}

// FetchJSON sends a request and returns the raw JSON body of a 2xx response.
// body, when non-nil, is encoded as JSON.
func (c *Client) FetchJSON(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	if c.static {
		return nil, ErrStaticSnapshot
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &ValidationError{Field: "body", Message: err.Error()}
		}
		reader = bytes.NewReader(data)
	}

	target := BuildURL(c.base, path)
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &ValidationError{Field: "url", Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	log := c.logger.With(
		zap.String("method", method),
		zap.String("url", target),
		zap.String("request_id", requestID),
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("request failed", zap.Error(err))
		return nil, &NetworkError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn("reading body failed", zap.Error(err))
		return nil, &NetworkError{Method: method, URL: target, Err: err}
	}
	log.Debug("response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := errorFromResponse(resp.StatusCode, resp.Status, data)
		log.Info("non-success status", zap.Int("status", resp.StatusCode), zap.String("reason", httpErr.Message()))
		return nil, httpErr
	}

	if !json.Valid(data) {
		return nil, &ParseError{What: fmt.Sprintf("invalid JSON from %s", path)}
	}
	return json.RawMessage(data), nil
}

// errorFromResponse extracts the backend's `error` / `reason` fields, falling
// back to "<status> <statusText>".
func errorFromResponse(code int, status string, body []byte) *HTTPError {
	e := &HTTPError{StatusCode: code, Status: statusLine(code, status)}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return e
	}
	if v, ok := payload["error"].(string); ok {
		e.Code = v
	}
	if v, ok := payload["reason"].(string); ok {
		e.Reason = v
	}
	return e
}

func statusLine(code int, status string) string {
	status = strings.TrimSpace(status)
	if status != "" {
		return status
	}
	return strings.TrimSpace(fmt.Sprintf("%d %s", code, http.StatusText(code)))
}

// Tasks lists every crawling task.
func (c *Client) Tasks(ctx context.Context) ([]TaskSummary, error) {
	data, err := c.FetchJSON(ctx, http.MethodGet, "/api/tasks", nil)
	if err != nil {
		return nil, err
	}
	return ParseTasks(data)
}

// ParseTasks decodes a task array, as served by /api/tasks or embedded in a
// snapshot.
func ParseTasks(data []byte) ([]TaskSummary, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &ParseError{What: "unexpected response format"}
	}
	var tasks []TaskSummary
	if err := json.Unmarshal(trimmed, &tasks); err != nil {
		return nil, &ParseError{What: "decoding tasks", Err: err}
	}
	return tasks, nil
}

// TaskEntries fetches the captured entries of one task.
func (c *Client) TaskEntries(ctx context.Context, slug string) (EntriesPayload, error) {
	if strings.TrimSpace(slug) == "" {
		return EntriesPayload{}, &ValidationError{Field: "slug", Message: "missing task slug"}
	}
	data, err := c.FetchJSON(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(slug)+"/entries", nil)
	if err != nil {
		return EntriesPayload{}, err
	}
	return ParseEntries(data)
}

// ParseEntries decodes an entries payload. A non-object task becomes nil and
// a non-array entries field becomes empty.
func ParseEntries(data []byte) (EntriesPayload, error) {
	var raw struct {
		Task    json.RawMessage `json:"task"`
		Entries json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return EntriesPayload{}, &ParseError{What: "decoding entries payload", Err: err}
	}

	var out EntriesPayload
	if isJSONObject(raw.Task) {
		var task TaskSummary
		if err := json.Unmarshal(raw.Task, &task); err != nil {
			return EntriesPayload{}, &ParseError{What: "decoding task", Err: err}
		}
		out.Task = &task
	}
	if isJSONArray(raw.Entries) {
		var items []json.RawMessage
		if err := json.Unmarshal(raw.Entries, &items); err != nil {
			return EntriesPayload{}, &ParseError{What: "decoding entries", Err: err}
		}
		out.Entries = make([]RawEntry, 0, len(items))
		for _, item := range items {
			var e RawEntry
			if isJSONObject(item) {
				if err := json.Unmarshal(item, &e); err != nil {
					return EntriesPayload{}, &ParseError{What: "decoding entry", Err: err}
				}
			}
			out.Entries = append(out.Entries, e)
		}
	}
	return out, nil
}

func isJSONObject(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}

func isJSONArray(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '['
}
