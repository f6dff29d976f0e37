package explorer

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelala00/pbcdash/internal/api"
	"github.com/angelala00/pbcdash/internal/apitest"
	"github.com/angelala00/pbcdash/internal/config"
)

func ids(list []Endpoint) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.ID
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		Search: config.SearchConfig{Enabled: true, DefaultTopK: 7, MaxTopK: 20},
	}
}

func TestCatalogueDefaults(t *testing.T) {
	cfg := testConfig()
	list := Catalogue(cfg)
	assert.Equal(t, []string{"tasks", "task-entries", "search"}, ids(list))

	search, ok := Find(list, "search")
	require.True(t, ok)
	assert.Equal(t, "POST", search.Method)
	assert.Equal(t, "/api/search", search.Path)
	assert.JSONEq(t, `{"query": "financial regulation", "topk": 7, "include_documents": true}`, search.Body)

	cfg.StaticSnapshot = true
	assert.Equal(t, []string{"tasks", "task-entries"}, ids(Catalogue(cfg)))
}

func TestCatalogueCustomEndpoints(t *testing.T) {
	cfg := testConfig()
	cfg.Search.Enabled = false
	cfg.Explorer.Endpoints = []config.Endpoint{
		{Path: " /health ", Method: " post "},
		{Name: "no path"},
		{ID: "tasks", Name: "My tasks", Path: "/api/tasks?x=1"},
		{ID: "extra", Path: "stats"},
	}

	list := Catalogue(cfg)
	assert.Equal(t, []string{"tasks", "task-entries", "custom-0", "extra"}, ids(list))

	assert.Equal(t, "My tasks", list[0].Name)
	assert.Equal(t, Endpoint{ID: "custom-0", Name: "Custom endpoint", Method: "POST", Path: "/health"}, list[2])
	assert.Equal(t, "GET", list[3].Method)
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"":                  "/",
		"   ":               "/",
		"api/tasks":         "/api/tasks",
		" /api/tasks ":      "/api/tasks",
		"https://x/api":     "https://x/api",
		"HTTP://x/api":      "HTTP://x/api",
		"http-proxy/status": "/http-proxy/status",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePath(in), "input %q", in)
	}
}

func TestRequestURL(t *testing.T) {
	tests := []struct {
		base, path, query, want string
	}{
		{"", "api/tasks", "", "/api/tasks"},
		{"http://h:8000/", "/api/tasks/entries", " slugs=a ", "http://h:8000/api/tasks/entries?slugs=a"},
		{"http://h:8000", "/api/x?y=1", "z=2", "http://h:8000/api/x?y=1&z=2"},
		{"http://h:8000", "https://other/api", "", "https://other/api"},
		{"http://h:8000", " HTTP://other/x ", "a=1", "HTTP://other/x?a=1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RequestURL(tt.base, tt.path, tt.query))
	}
}

func TestParseHeaders(t *testing.T) {
	got, err := ParseHeaders(`{"X-A": "1", "X-B": 2, "X-C": null, "X-D": true, "X-E": {"k": 1}}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"X-A": "1", "X-B": "2", "X-D": "true", "X-E": `{"k": 1}`}, got)

	got, err = ParseHeaders(`["not", "an", "object"]`)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = ParseHeaders(`{oops`)
	var verr *api.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestBuild(t *testing.T) {
	req, err := Build("http://h", Request{Method: "get", Path: "/api/tasks", Body: `{"ignored": true}`})
	require.NoError(t, err)
	assert.Equal(t, "GET", req.Method)
	assert.Empty(t, req.Body)
	assert.Equal(t, defaultAccept, req.Headers["Accept"])
	assert.NotContains(t, req.Headers, "Content-Type")

	req, err = Build("http://h", Request{Method: "POST", Path: "/api/search", Body: ` {"query": "x"}`, Headers: `{"accept": "text/csv"}`})
	require.NoError(t, err)
	assert.Equal(t, ` {"query": "x"}`, req.Body)
	assert.Equal(t, "application/json", req.Headers["Content-Type"])
	assert.Equal(t, "text/csv", req.Headers["accept"])
	assert.NotContains(t, req.Headers, "Accept")

	req, err = Build("", Request{Path: "x", Method: "PUT", Body: "plain"})
	require.NoError(t, err)
	assert.Equal(t, "/x", req.URL)
	assert.NotContains(t, req.Headers, "Content-Type")

	_, err = Build("", Request{Headers: "{"})
	assert.Error(t, err)
}

func TestFormatBody(t *testing.T) {
	assert.Equal(t, "{\n  \"a\": 1\n}", FormatBody([]byte(`{"a":1}`), "application/json; charset=utf-8"))
	assert.Equal(t, `{"a":1}`, FormatBody([]byte(`{"a":1}`), "text/plain"))
	assert.Equal(t, "{broken", FormatBody([]byte("{broken"), "application/json"))
	assert.Equal(t, "—", FormatBody(nil, "text/plain"))
}

func TestFormatHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Add("X-Multi", "a")
	h.Add("X-Multi", "b")
	assert.Equal(t, "content-type: application/json\nx-multi: a, b", FormatHeaders(h))
	assert.Equal(t, "—", FormatHeaders(nil))
}

func TestSend(t *testing.T) {
	b := apitest.New(t)
	b.SetTasks(apitest.Reply{JSON: []map[string]any{{"slug": "a"}}})
	client := api.NewClient(b.URL())

	res, err := Send(context.Background(), client, Request{Method: "GET", Path: "api/tasks"})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "Success · 200 OK", res.Status)
	assert.Equal(t, b.URL()+"/api/tasks", res.URL)
	assert.Contains(t, res.Body, "\"slug\": \"a\"")
	assert.Contains(t, res.Meta, " ms")
	assert.Equal(t, defaultAccept, b.Headers()[0].Get("Accept"))

	res, err = Send(context.Background(), client, Request{Path: "/api/nope"})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "Error · 404 Not Found", res.Status)
}
