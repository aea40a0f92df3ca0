// Package cache is the client-side query cache with optimistic like toggles.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chat-client/internal/observability"
)

var (
	ErrNotCached      = errors.New("cache entry not loaded")
	ErrFetchCancelled = errors.New("fetch cancelled")
)

// Key identifies a cached query. Params carries list parameters such as sort and page.
type Key struct {
	Kind   string
	ID     int64
	Params string
}

func (k Key) String() string {
	if k.Params == "" {
		return fmt.Sprintf("%s/%d", k.Kind, k.ID)
	}
	return fmt.Sprintf("%s/%d?%s", k.Kind, k.ID, k.Params)
}

type fetch struct {
	done      chan struct{}
	cancel    context.CancelFunc
	cancelled bool
	value     any
	err       error
}

type entry struct {
	confirmed  any
	hasValue   bool
	pending    any
	hasPending bool
	fetchedAt  time.Time
	stale      bool
	inflight   *fetch
}

// visible returns the pending optimistic value when present, else the confirmed one.
func (e *entry) visible() (any, bool) {
	if e.hasPending {
		return e.pending, true
	}
	return e.confirmed, e.hasValue
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	now     func() time.Time
	log     zerolog.Logger
}

func New(logger zerolog.Logger) *Cache {
	return &Cache{
		entries: make(map[Key]*entry),
		now:     time.Now,
		log:     logger,
	}
}

// Get returns the visible value for key.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.visible()
}

// GetAs is Get with a type assertion.
func GetAs[T any](c *Cache, key Key) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Set stores a confirmed value and drops any pending optimistic value.
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key)
	e.confirmed = value
	e.hasValue = true
	e.hasPending = false
	e.pending = nil
	e.fetchedAt = c.now()
	e.stale = false
}

func (c *Cache) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

// Fetch returns the cached value when it is younger than staleTime and not invalidated,
// otherwise runs fn. Concurrent fetches of one key share a single call of fn.
// A fetch cancelled through Cancel, Remove or Clear never writes its result; its callers
// get the value still held by the entry, or ErrFetchCancelled when there is none.
func (c *Cache) Fetch(ctx context.Context, key Key, staleTime time.Duration, fn func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	e := c.entryLocked(key)
	if v, ok := e.visible(); ok && !e.stale && staleTime > 0 && c.now().Sub(e.fetchedAt) < staleTime {
		c.mu.Unlock()
		observability.IncCacheEvent(key.Kind, "hit")
		return v, nil
	}
	if f := e.inflight; f != nil {
		c.mu.Unlock()
		observability.IncCacheEvent(key.Kind, "dedup")
		select {
		case <-f.done:
			return f.value, f.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	fctx, cancel := context.WithCancel(ctx)
	f := &fetch{done: make(chan struct{}), cancel: cancel}
	e.inflight = f
	c.mu.Unlock()
	observability.IncCacheEvent(key.Kind, "miss")

	v, err := fn(fctx)
	cancel()

	c.mu.Lock()
	if e.inflight == f {
		e.inflight = nil
	}
	switch {
	case f.cancelled:
		v, err = nil, ErrFetchCancelled
		if cur, ok := e.visible(); ok && c.entries[key] == e {
			v, err = cur, nil
		}
	case err != nil:
		c.log.Debug().Err(err).Str("key", key.String()).Msg("fetch failed")
	case c.entries[key] == e:
		e.confirmed = v
		e.hasValue = true
		e.fetchedAt = c.now()
		e.stale = false
		if e.hasPending {
			v = e.pending
		}
	}
	f.value, f.err = v, err
	c.mu.Unlock()
	close(f.done)
	return v, err
}

// FetchAs is Fetch with a typed loader.
func FetchAs[T any](ctx context.Context, c *Cache, key Key, staleTime time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.Fetch(ctx, key, staleTime, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache %s holds %T", key, v)
	}
	return t, nil
}

// Cancel aborts an in-flight fetch of key; its result is discarded.
func (c *Cache) Cancel(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.cancelLocked(e)
	}
}

func (c *Cache) cancelLocked(e *entry) {
	if e.inflight == nil {
		return
	}
	e.inflight.cancelled = true
	e.inflight.cancel()
	e.inflight = nil
}

// Invalidate marks entries of kind stale; with an id only that entry.
func (c *Cache) Invalidate(kind string, id ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if k.Kind != kind || (len(id) > 0 && k.ID != id[0]) {
			continue
		}
		e.stale = true
		n++
	}
	if n > 0 {
		observability.IncCacheEvent(kind, "invalidate")
	}
}

// Stale reports whether key must be refetched on next use.
func (c *Cache) Stale(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return !ok || e.stale || !e.hasValue
}

func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.cancelLocked(e)
		delete(c.entries, key)
	}
}

// Clear cancels every fetch and drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		c.cancelLocked(e)
		delete(c.entries, k)
	}
	c.log.Debug().Msg("query cache cleared")
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
