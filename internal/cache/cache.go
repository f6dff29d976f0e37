// Package cache holds the normalized entries of every task loaded during a
// session. A source is fetched at most once; concurrent loads of the same
// source share one request.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/angelala00/pbcdash/internal/api"
)

// errStale is returned by a fetch that started before a Reset.
var errStale = errors.New("cache reset while loading")

// Loader fetches the raw entries of one source. *api.Client implements it.
type Loader interface {
	TaskEntries(ctx context.Context, slug string) (api.EntriesPayload, error)
}

type record struct {
	entries []Entry
	task    *api.TaskSummary
}

type Cache struct {
	loader Loader
	logger *zap.Logger

	// in-flight fetches keyed by source and generation; a key is dropped
	// when its fetch returns, success or failure
	group singleflight.Group

	mu       sync.RWMutex
	gen      uint64
	loaded   map[string]record
	inflight map[string]int
	tasks    map[string]api.TaskSummary
	known    []string
}

func New(loader Loader, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		loader:   loader,
		logger:   logger,
		loaded:   make(map[string]record),
		inflight: make(map[string]int),
		tasks:    make(map[string]api.TaskSummary),
	}
}

// Get reports what the cache holds for source without triggering a load.
func (c *Cache) Get(source string) Lookup {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.loaded[source]; ok {
		return Lookup{State: Loaded, Entries: r.entries, Task: r.task}
	}
	if c.inflight[source] > 0 {
		return Lookup{State: Pending}
	}
	return Lookup{State: Absent}
}

// SetTasks registers the task list so its slugs are known sources before any
// entries are loaded. Task names are used for entries whose payload carries
// no task summary.
func (c *Cache) SetTasks(tasks []api.TaskSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tasks {
		slug := strings.TrimSpace(t.Slug)
		if slug == "" {
			continue
		}
		c.tasks[slug] = t
		c.rememberLocked(slug)
	}
}

// Task returns the registered summary for source, preferring the one that
// arrived with its entries.
func (c *Cache) Task(source string) (api.TaskSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.loaded[source]; ok && r.task != nil {
		return *r.task, true
	}
	t, ok := c.tasks[source]
	return t, ok
}

// Sources lists every known source: registered tasks first, then loaded
// sources in load order.
func (c *Cache) Sources() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.known...)
}

// Reset discards all cached data. Fetches still in flight complete but are
// not stored; their waiters load the source again.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.loaded = make(map[string]record)
	c.tasks = make(map[string]api.TaskSummary)
	c.known = nil
}

func (c *Cache) rememberLocked(source string) {
	for _, s := range c.known {
		if s == source {
			return
		}
	}
	c.known = append(c.known, source)
}

// Result reports the outcome of EnsureLoaded per source, in input order.
type Result struct {
	Succeeded []string
	Failed    []Failure
}

// Err combines every failure into one error, or nil.
func (r Result) Err() error {
	var err error
	for _, f := range r.Failed {
		err = multierr.Append(err, fmt.Errorf("loading %s: %w", f.Source, f.Err))
	}
	return err
}

// EnsureLoaded loads every source not yet cached, concurrently. It never
// fails as a whole: per-source errors are returned in Result.Failed with the
// original error preserved. Blank and duplicate sources are ignored.
//
// Cancelling ctx stops the wait, not the fetches; their results are still
// cached.
func (c *Cache) EnsureLoaded(ctx context.Context, sources []string) Result {
	order := make([]string, 0, len(sources))
	seen := make(map[string]bool, len(sources))
	for _, s := range sources {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		order = append(order, s)
	}

	errs := make([]error, len(order))
	// only joins the fan-out; per-source errors go to errs
	var g errgroup.Group
	for i, source := range order {
		i, source := i, source
		g.Go(func() error {
			errs[i] = c.ensure(ctx, source)
			return nil
		})
	}
	_ = g.Wait()

	var res Result
	for i, source := range order {
		if errs[i] != nil {
			res.Failed = append(res.Failed, Failure{Source: source, Err: errs[i]})
			continue
		}
		res.Succeeded = append(res.Succeeded, source)
	}
	return res
}

// ensure waits for source to be stored. A flight outdated by Reset is
// retried once under the new generation.
func (c *Cache) ensure(ctx context.Context, source string) error {
	detached := context.WithoutCancel(ctx)
	err := errStale
	for attempt := 0; attempt < 2 && errors.Is(err, errStale); attempt++ {
		c.mu.RLock()
		_, ok := c.loaded[source]
		gen := c.gen
		c.mu.RUnlock()
		if ok {
			return nil
		}

		key := fmt.Sprintf("%s\x00%d", source, gen)
		ch := c.group.DoChan(key, func() (any, error) {
			return nil, c.fetch(detached, source, gen)
		})
		select {
		case res := <-ch:
			err = res.Err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (c *Cache) fetch(ctx context.Context, source string, gen uint64) error {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return errStale
	}
	// a caller that missed the previous flight finds the stored result here
	if _, ok := c.loaded[source]; ok {
		c.mu.Unlock()
		return nil
	}
	c.inflight[source]++
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.inflight[source]--; c.inflight[source] <= 0 {
			delete(c.inflight, source)
		}
		c.mu.Unlock()
	}()

	log := c.logger.With(zap.String("source", source))
	log.Debug("loading entries")
	start := time.Now()

	payload, err := c.loader.TaskEntries(ctx, source)
	if err != nil {
		log.Warn("loading entries failed", zap.Error(err))
		return err
	}

	task := payload.Task
	c.mu.RLock()
	if task == nil {
		if t, ok := c.tasks[source]; ok {
			task = &t
		}
	}
	c.mu.RUnlock()

	entries := Normalize(source, task, payload.Entries)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		log.Debug("discarding entries loaded before reset")
		return errStale
	}
	c.loaded[source] = record{entries: entries, task: payload.Task}
	c.rememberLocked(source)
	log.Debug("entries loaded", zap.Int("count", len(entries)), zap.Duration("elapsed", time.Since(start)))
	return nil
}
