package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelala00/pbcdash/internal/apitest"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"", "/api/tasks", "/api/tasks"},
		{"http://host:8000", "/api/tasks", "http://host:8000/api/tasks"},
		{"http://host:8000///", "/api/tasks", "http://host:8000/api/tasks"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.path); got != tt.want {
			t.Errorf("BuildURL(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
		}
	}
}

func TestTasks(t *testing.T) {
	b := apitest.New(t)
	b.SetTasks(apitest.Reply{JSON: []map[string]any{
		{"slug": "task-a", "name": "Task A", "entries_total": 3, "pending_total": 1, "state_last_updated": "2024-05-01T10:00:00"},
		{"slug": "task-b", "name": "Task B", "state_last_updated": nil},
	}})

	c := NewClient(b.URL())
	tasks, err := c.Tasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "task-a", tasks[0].Slug)
	assert.Equal(t, 3, tasks[0].EntriesTotal)
	require.NotNil(t, tasks[0].StateLastUpdated)
	assert.Equal(t, 2024, tasks[0].StateLastUpdated.Year())
	assert.Nil(t, tasks[1].StateLastUpdated)
	assert.Equal(t, 1, b.Calls("/api/tasks"))

	h := b.Headers()[0]
	assert.Equal(t, "application/json", h.Get("Accept"))
	assert.Equal(t, "no-store", h.Get("Cache-Control"))
	assert.NotEmpty(t, h.Get("X-Request-ID"))
}

func TestTasksUnexpectedFormat(t *testing.T) {
	b := apitest.New(t)
	b.SetTasks(apitest.Reply{JSON: map[string]any{"tasks": []any{}}})

	_, err := NewClient(b.URL()).Tasks(context.Background())
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "unexpected response format", perr.Error())
}

func TestTaskEntries(t *testing.T) {
	b := apitest.New(t)
	b.SetEntries("task-a", apitest.Reply{JSON: apitest.Entries(
		map[string]any{"slug": "task-a", "name": "Task A"},
		map[string]any{"serial": 1, "title": "Notice", "documents": []any{map[string]any{"title": "PDF", "url": "/a.pdf", "downloaded": 1}}},
		map[string]any{"title": 42},
	)})

	payload, err := NewClient(b.URL()).TaskEntries(context.Background(), "task-a")
	require.NoError(t, err)
	require.NotNil(t, payload.Task)
	assert.Equal(t, "Task A", payload.Task.Name)
	require.Len(t, payload.Entries, 2)
	assert.Equal(t, Text("Notice"), payload.Entries[0].Title)
	assert.Equal(t, Text("42"), payload.Entries[1].Title)
}

func TestTaskEntriesMissingSlug(t *testing.T) {
	b := apitest.New(t)
	_, err := NewClient(b.URL()).TaskEntries(context.Background(), "  ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "slug", verr.Field)
	assert.Zero(t, b.Calls("/api/tasks/%20%20/entries"))
}

func TestParseEntriesLenient(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantTask    bool
		wantEntries int
	}{
		{"task not object", `{"task": "x", "entries": []}`, false, 0},
		{"entries not array", `{"task": {"slug": "a"}, "entries": {"a": 1}}`, true, 0},
		{"missing both", `{}`, false, 0},
		{"non-object item", `{"entries": [1, {"title": "t"}]}`, false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEntries([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantTask, got.Task != nil)
			assert.Len(t, got.Entries, tt.wantEntries)
		})
	}
}

func TestFetchJSONErrors(t *testing.T) {
	tests := []struct {
		name       string
		reply      apitest.Reply
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "error field",
			reply:      apitest.Reply{Status: http.StatusInternalServerError, JSON: map[string]any{"error": "db down"}},
			wantStatus: 500,
			wantMsg:    "db down",
		},
		{
			name:       "reason only",
			reply:      apitest.Reply{Status: http.StatusServiceUnavailable, JSON: map[string]any{"reason": "maintenance"}},
			wantStatus: 503,
			wantMsg:    "maintenance",
		},
		{
			name:       "error and reason",
			reply:      apitest.Reply{Status: http.StatusServiceUnavailable, JSON: map[string]any{"error": "search_disabled", "reason": "index building"}},
			wantStatus: 503,
			wantMsg:    "search_disabled: index building",
		},
		{
			name:       "plain text body",
			reply:      apitest.Reply{Status: http.StatusBadGateway, Raw: "upstream exploded"},
			wantStatus: 502,
			wantMsg:    "502 Bad Gateway",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := apitest.New(t)
			b.SetEntries("task-a", tt.reply)

			_, err := NewClient(b.URL()).TaskEntries(context.Background(), "task-a")
			var herr *HTTPError
			require.ErrorAs(t, err, &herr)
			assert.Equal(t, tt.wantStatus, herr.StatusCode)
			assert.Equal(t, tt.wantMsg, herr.Message())
			assert.Equal(t, tt.wantStatus, StatusCode(err))
		})
	}
}

func TestFetchJSONInvalidBody(t *testing.T) {
	b := apitest.New(t)
	b.SetEntries("task-a", apitest.Reply{Raw: "not json"})

	_, err := NewClient(b.URL()).TaskEntries(context.Background(), "task-a")
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestFetchJSONNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := NewClient(base).Tasks(context.Background())
	var nerr *NetworkError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, http.MethodGet, nerr.Method)
	assert.Equal(t, base+"/api/tasks", nerr.URL)
	assert.Zero(t, StatusCode(err))
}

func TestFetchJSONTimeout(t *testing.T) {
	b := apitest.New(t)
	b.SetEntries("task-a", apitest.Reply{JSON: apitest.Entries(nil)})
	b.Hold()

	c := NewClient(b.URL(), WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	_, err := c.TaskEntries(context.Background(), "task-a")
	var nerr *NetworkError
	assert.ErrorAs(t, err, &nerr)
}

func TestStaticSnapshotBlocksNetwork(t *testing.T) {
	b := apitest.New(t)
	c := NewClient(b.URL(), WithStaticSnapshot(true))

	_, err := c.Tasks(context.Background())
	assert.ErrorIs(t, err, ErrStaticSnapshot)
	_, err = c.TaskEntries(context.Background(), "task-a")
	assert.ErrorIs(t, err, ErrStaticSnapshot)
	_, err = c.Do(context.Background(), RawRequest{URL: b.URL() + "/api/tasks"})
	assert.ErrorIs(t, err, ErrStaticSnapshot)
	assert.Zero(t, b.Calls("/api/tasks"))
}

func TestDo(t *testing.T) {
	b := apitest.New(t)
	c := NewClient(b.URL())

	resp, err := c.Do(context.Background(), RawRequest{
		Method:  "get",
		URL:     b.URL() + "/api/missing",
		Headers: map[string]string{"X-Probe": "1"},
	})
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error":"not_found"}`, string(resp.Body))
	assert.Equal(t, "1", b.Headers()[0].Get("X-Probe"))

	resp, err = c.Do(context.Background(), RawRequest{
		Method:  "POST",
		URL:     b.URL() + "/api/search",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    `{"query":"x","topk":2}`,
	})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	require.Len(t, b.SearchBodies(), 1)
	assert.Equal(t, "x", b.SearchBodies()[0]["query"])
}

func TestNetworkErrorUnwrap(t *testing.T) {
	err := &NetworkError{Method: "GET", URL: "http://x", Err: context.DeadlineExceeded}
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
