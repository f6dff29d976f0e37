package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Text decodes any JSON scalar into a string. null becomes "".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*t = ""
	case string:
		*t = Text(x)
	case float64:
		*t = Text(strconv.FormatFloat(x, 'f', -1, 64))
	case bool:
		*t = Text(strconv.FormatBool(x))
	default:
		*t = Text(bytes.TrimSpace(b))
	}
	return nil
}

func (t Text) String() string { return string(t) }

// Flag decodes loosely-typed booleans: non-zero numbers, non-empty strings,
// objects and arrays are true.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*f = false
	case bool:
		*f = Flag(x)
	case float64:
		*f = x != 0
	case string:
		*f = x != ""
	default:
		*f = true
	}
	return nil
}

// Zone-less layouts are read in local time.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Timestamp accepts the backend's ISO timestamps with or without a zone.
// Unparseable values decode to the zero time instead of failing the payload.
type Timestamp struct {
	time.Time
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		ts.Time = time.Time{}
		return nil
	}
	ts.Time = ParseTimestamp(s)
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.Format("2006-01-02T15:04:05"))
}

// ParseTimestamp returns the zero time for empty or invalid input.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// TaskSummary is one row of /api/tasks.
type TaskSummary struct {
	Slug               string         `json:"slug"`
	Name               string         `json:"name"`
	StartURL           string         `json:"start_url"`
	EntriesTotal       int            `json:"entries_total"`
	DocumentsTotal     int            `json:"documents_total"`
	DownloadedTotal    int            `json:"downloaded_total"`
	PendingTotal       int            `json:"pending_total"`
	TrackedFiles       int            `json:"tracked_files"`
	DocumentTypeCounts map[string]int `json:"document_type_counts,omitempty"`
	StateLastUpdated   *Timestamp     `json:"state_last_updated,omitempty"`
	NextRunEarliest    *Timestamp     `json:"next_run_earliest,omitempty"`
	NextRunLatest      *Timestamp     `json:"next_run_latest,omitempty"`
	PagesCached        int            `json:"pages_cached"`
	PageCacheFresh     bool           `json:"page_cache_fresh"`
	OutputFiles        int            `json:"output_files"`
	OutputSizeBytes    int64          `json:"output_size_bytes"`
	Status             string         `json:"status"`
	StatusReason       string         `json:"status_reason"`
}

// RawDocument is a document as the backend sends it.
type RawDocument struct {
	Title      Text `json:"title"`
	URL        Text `json:"url"`
	Type       Text `json:"type"`
	LocalPath  Text `json:"local_path"`
	Downloaded Flag `json:"downloaded"`
}

// RawEntry keeps the fields whose shape varies as raw JSON; the cache
// normalizes them once.
type RawEntry struct {
	Serial    json.RawMessage `json:"serial,omitempty"`
	Title     Text            `json:"title"`
	Remark    Text            `json:"remark"`
	Documents json.RawMessage `json:"documents,omitempty"`
}

// EntriesPayload is the decoded body of /api/tasks/{slug}/entries.
type EntriesPayload struct {
	Task    *TaskSummary
	Entries []RawEntry
}

type SearchRequest struct {
	Query            string `json:"query"`
	TopK             int    `json:"topk"`
	IncludeDocuments bool   `json:"include_documents"`
}

// SearchResult is one ranked hit; Score is the backend similarity.
type SearchResult struct {
	ID        Text            `json:"id"`
	Title     Text            `json:"title"`
	Remark    Text            `json:"remark"`
	NormTitle Text            `json:"norm_title"`
	DocNo     Text            `json:"doc_no"`
	Year      Text            `json:"year"`
	DocType   Text            `json:"doctype"`
	Agency    Text            `json:"agency"`
	BestPath  Text            `json:"best_path"`
	Score     float64         `json:"score"`
	Documents []RawDocument   `json:"documents,omitempty"`
	Clause    json.RawMessage `json:"clause,omitempty"`
}

type SearchResponse struct {
	Query           string          `json:"query"`
	TopK            int             `json:"topk"`
	ResultCount     int             `json:"result_count"`
	Results         []SearchResult  `json:"results"`
	ClauseReference json.RawMessage `json:"clause_reference,omitempty"`
}
