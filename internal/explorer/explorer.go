// Package explorer builds and sends ad-hoc requests against the dashboard
// API: a catalogue of known endpoints plus a request builder.
package explorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/angelala00/pbcdash/internal/api"
	"github.com/angelala00/pbcdash/internal/config"
)

const (
	defaultAccept     = "application/json, text/plain, */*"
	defaultCustomName = "Custom endpoint"
	emptyBody         = "—"
)

var (
	absoluteURL  = regexp.MustCompile(`(?i)^https?://`)
	bodylessVerb = regexp.MustCompile(`(?i)^(GET|HEAD)$`)
)

type Endpoint struct {
	ID          string
	Name        string
	Method      string
	Path        string
	Description string
	Query       string
	Hint        string
	Body        string
}

// Catalogue returns the built-in endpoints followed by the configured ones.
// A configured endpoint whose id matches an earlier one replaces it in place.
func Catalogue(cfg *config.Config) []Endpoint {
	var list []Endpoint
	for _, e := range builtin(cfg) {
		list = push(list, e)
	}
	for i, raw := range cfg.Explorer.Endpoints {
		if e, ok := Normalize(raw, i); ok {
			list = push(list, e)
		}
	}
	return list
}

func builtin(cfg *config.Config) []Endpoint {
	list := []Endpoint{
		{
			ID:          "tasks",
			Name:        "Tasks",
			Method:      http.MethodGet,
			Path:        "/api/tasks",
			Description: "List all crawling tasks with counters, last update timestamps, and status metadata.",
			Hint:        "No parameters are required.",
		},
		{
			ID:          "task-entries",
			Name:        "Task entries",
			Method:      http.MethodGet,
			Path:        "/api/tasks/entries",
			Description: "Fetch captured entries for one or more tasks. Provide one or multiple slugs to limit the response.",
			Query:       "slugs=task-a&slugs=task-b",
			Hint:        "Append one or more slugs with the ?slugs= parameter. Repeat the parameter or provide a comma-separated list.",
		},
	}
	if !cfg.SearchEnabled() {
		return list
	}

	body, _ := json.MarshalIndent(struct {
		Query            string `json:"query"`
		TopK             int    `json:"topk"`
		IncludeDocuments bool   `json:"include_documents"`
	}{"financial regulation", cfg.DefaultTopK(), cfg.IncludeDocuments()}, "", "  ")

	return append(list, Endpoint{
		ID:          "search",
		Name:        "Policy search",
		Method:      http.MethodPost,
		Path:        cfg.SearchEndpoint(),
		Description: "Search indexed policy content. Configure the request body to control keywords and the number of results.",
		Hint:        `Send a JSON body such as {"query": "keyword", "topk": 5, "include_documents": true}.`,
		Body:        string(body),
	})
}

func push(list []Endpoint, e Endpoint) []Endpoint {
	if e.ID == "" {
		return list
	}
	for i := range list {
		if list[i].ID == e.ID {
			list[i] = e
			return list
		}
	}
	return append(list, e)
}

// Normalize fills defaults for a configured endpoint. Endpoints without a
// path are rejected.
func Normalize(raw config.Endpoint, index int) (Endpoint, bool) {
	path := strings.TrimSpace(raw.Path)
	if path == "" {
		return Endpoint{}, false
	}
	e := Endpoint{
		ID:          strings.TrimSpace(raw.ID),
		Name:        strings.TrimSpace(raw.Name),
		Method:      strings.ToUpper(strings.TrimSpace(raw.Method)),
		Path:        path,
		Description: raw.Description,
		Query:       raw.Query,
		Hint:        raw.Hint,
		Body:        raw.Body,
	}
	if e.ID == "" {
		e.ID = fmt.Sprintf("custom-%d", index)
	}
	if e.Name == "" {
		e.Name = defaultCustomName
	}
	if e.Method == "" {
		e.Method = http.MethodGet
	}
	return e, true
}

// Find looks an endpoint up by id.
func Find(list []Endpoint, id string) (Endpoint, bool) {
	for _, e := range list {
		if e.ID == id {
			return e, true
		}
	}
	return Endpoint{}, false
}

// NormalizePath trims p and makes it absolute. Full http(s) URLs are kept.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	switch {
	case p == "":
		return "/"
	case absoluteURL.MatchString(p), strings.HasPrefix(p, "/"):
		return p
	default:
		return "/" + p
	}
}

// RequestURL joins base, the normalized path and query. A full http(s) URL
// replaces the base.
func RequestURL(base, path, query string) string {
	u := NormalizePath(path)
	if !absoluteURL.MatchString(u) {
		u = api.BuildURL(base, u)
	}
	if q := strings.TrimSpace(query); q != "" {
		if strings.Contains(u, "?") {
			u += "&" + q
		} else {
			u += "?" + q
		}
	}
	return u
}

// ParseHeaders reads a JSON object of header values. Non-string values are
// rendered as JSON text and nulls are dropped. Anything other than an object
// yields no headers.
func ParseHeaders(text string) (map[string]string, error) {
	headers := make(map[string]string)
	text = strings.TrimSpace(text)
	if text == "" {
		return headers, nil
	}
	if !json.Valid([]byte(text)) {
		return nil, &api.ValidationError{
			Field:   "headers",
			Message: "Unable to parse custom headers. Ensure the value is valid JSON.",
		}
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return headers, nil
	}
	for k, raw := range obj {
		var s string
		switch {
		case string(raw) == "null":
		case json.Unmarshal(raw, &s) == nil:
			headers[k] = s
		default:
			headers[k] = string(raw)
		}
	}
	return headers, nil
}

// LooksLikeJSON reports whether body starts like a JSON object or array.
func LooksLikeJSON(body string) bool {
	b := strings.TrimSpace(body)
	return strings.HasPrefix(b, "{") || strings.HasPrefix(b, "[")
}

// Request is what the user filled into the request builder.
type Request struct {
	Method  string
	Path    string
	Query   string
	Headers string
	Body    string
}

// FromEndpoint prefills a request from a catalogue entry.
func FromEndpoint(e Endpoint) Request {
	return Request{Method: e.Method, Path: e.Path, Query: e.Query, Body: e.Body}
}

// Build turns r into a raw request against base.
func Build(base string, r Request) (api.RawRequest, error) {
	method := strings.ToUpper(strings.TrimSpace(r.Method))
	if method == "" {
		method = http.MethodGet
	}
	headers, err := ParseHeaders(r.Headers)
	if err != nil {
		return api.RawRequest{}, err
	}
	if !hasHeader(headers, "Accept") {
		headers["Accept"] = defaultAccept
	}

	req := api.RawRequest{
		Method:  method,
		URL:     RequestURL(base, r.Path, r.Query),
		Headers: headers,
	}
	if !bodylessVerb.MatchString(method) && strings.TrimSpace(r.Body) != "" {
		req.Body = r.Body
		if !hasHeader(headers, "Content-Type") && LooksLikeJSON(r.Body) {
			headers["Content-Type"] = "application/json"
		}
	}
	return req, nil
}

func hasHeader(h map[string]string, name string) bool {
	for k, v := range h {
		if strings.EqualFold(k, name) && v != "" {
			return true
		}
	}
	return false
}

// Result is a response prepared for display.
type Result struct {
	URL     string
	OK      bool
	Status  string
	Meta    string
	Body    string
	Headers string
}

// Send builds r and runs it through client.
func Send(ctx context.Context, client *api.Client, r Request) (*Result, error) {
	req, err := Build(client.Base(), r)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return Describe(req.URL, resp), nil
}

// Describe formats a raw response.
func Describe(url string, resp *api.RawResponse) *Result {
	label := "Error"
	if resp.OK() {
		label = "Success"
	}
	return &Result{
		URL:     url,
		OK:      resp.OK(),
		Status:  label + " · " + resp.Status,
		Meta:    fmt.Sprintf("%s · %d ms", url, resp.Elapsed.Round(time.Millisecond).Milliseconds()),
		Body:    FormatBody(resp.Body, resp.Header.Get("Content-Type")),
		Headers: FormatHeaders(resp.Header),
	}
}

// FormatBody pretty-prints JSON bodies; an empty body shows a dash.
func FormatBody(body []byte, contentType string) string {
	if strings.Contains(strings.ToLower(contentType), "application/json") {
		var buf bytes.Buffer
		if err := json.Indent(&buf, bytes.TrimSpace(body), "", "  "); err == nil {
			return buf.String()
		}
	}
	if len(body) == 0 {
		return emptyBody
	}
	return string(body)
}

// FormatHeaders lists "key: value" lines sorted by key, lowercased.
func FormatHeaders(h http.Header) string {
	if len(h) == 0 {
		return emptyBody
	}
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, strings.ToLower(k)+": "+strings.Join(h[k], ", "))
	}
	return strings.Join(lines, "\n")
}
