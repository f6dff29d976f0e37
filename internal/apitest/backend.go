// Package apitest runs an in-process fake of the crawler dashboard backend
// for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

// Reply is a canned response. Raw, when set, is sent verbatim as text/plain
// instead of JSON.
type Reply struct {
	Status int
	JSON   any
	Raw    string
}

func (r Reply) write(c *gin.Context) {
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	if r.Raw != "" {
		c.Data(status, "text/plain; charset=utf-8", []byte(r.Raw))
		return
	}
	c.JSON(status, r.JSON)
}

type Backend struct {
	server *httptest.Server

	mu      sync.Mutex
	tasks   Reply
	entries map[string]Reply
	search  Reply
	calls   map[string]int
	bodies  []map[string]any
	headers []http.Header
	gate    chan struct{}
	started chan string
}

// New starts a backend that is shut down when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := &Backend{
		tasks:   Reply{JSON: []any{}},
		entries: make(map[string]Reply),
		search:  Reply{JSON: gin.H{"results": []any{}, "result_count": 0}},
		calls:   make(map[string]int),
		started: make(chan string, 64),
	}

	r := gin.New()
	r.GET("/api/tasks", func(c *gin.Context) {
		b.record(c)
		b.mu.Lock()
		reply := b.tasks
		b.mu.Unlock()
		reply.write(c)
	})
	r.GET("/api/tasks/:slug/entries", func(c *gin.Context) {
		b.record(c)
		b.wait()
		b.mu.Lock()
		reply, ok := b.entries[c.Param("slug")]
		b.mu.Unlock()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		reply.write(c)
	})
	r.POST("/api/search", func(c *gin.Context) {
		b.record(c)
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		b.mu.Lock()
		b.bodies = append(b.bodies, body)
		reply := b.search
		b.mu.Unlock()
		reply.write(c)
	})
	r.NoRoute(func(c *gin.Context) {
		b.record(c)
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	b.server = httptest.NewServer(r)
	t.Cleanup(func() {
		b.Release()
		b.server.Close()
	})
	return b
}

func (b *Backend) URL() string { return b.server.URL }

func (b *Backend) SetTasks(reply Reply) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = reply
}

func (b *Backend) SetEntries(slug string, reply Reply) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[slug] = reply
}

func (b *Backend) SetSearch(reply Reply) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.search = reply
}

// Hold makes entries requests block until Release is called.
func (b *Backend) Hold() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gate == nil {
		b.gate = make(chan struct{})
	}
}

func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gate != nil {
		close(b.gate)
		b.gate = nil
	}
}

// Started receives the path of every request as it arrives.
func (b *Backend) Started() <-chan string { return b.started }

// Calls counts requests received for path.
func (b *Backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

// SearchBodies returns the decoded JSON bodies posted to /api/search.
func (b *Backend) SearchBodies() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.bodies...)
}

// Headers returns the request headers seen so far, in arrival order.
func (b *Backend) Headers() []http.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]http.Header(nil), b.headers...)
}

func (b *Backend) record(c *gin.Context) {
	b.mu.Lock()
	b.calls[c.Request.URL.Path]++
	b.headers = append(b.headers, c.Request.Header.Clone())
	b.mu.Unlock()
	select {
	case b.started <- c.Request.URL.Path:
	default:
	}
}

func (b *Backend) wait() {
	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

// Entries builds an entries payload body.
func Entries(task any, entries ...map[string]any) gin.H {
	list := make([]any, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}
	return gin.H{"task": task, "entries": list}
}

// MustJSON renders v for Reply.Raw when a test needs a byte-exact body.
func MustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
