// Package query provides cached reads and uncached mutations over remote calls.
//
// A Cache holds one entry per key. Queries sharing a key share the cached value
// and concurrent fetches for the same key are collapsed into a single call.
package query

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Entry is a snapshot of a cached key
type Entry struct {
	Data      any
	HasData   bool
	Err       error
	UpdatedAt time.Time // time of the last successful fetch
	Fetches   int       // number of fetches started for this key
	Fetching  bool
	Invalid   bool // set by Invalidate, forces the next Fetch to go to the network
}

type entry struct {
	Entry
	inflight int
}

type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	gen     uint64 // bumped by Clear and Remove so in-flight fetches from before are not joined or stored
	group   singleflight.Group
	now     func() time.Time
}

type CacheOption func(*Cache)

// WithClock overrides the time source used for staleness checks
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Entry returns a copy of the cached entry for key
func (c *Cache) Entry(key string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	return e.Entry, true
}

// Invalidate marks the key stale. Cached data is kept until the next successful fetch replaces it.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.Invalid = true
	}
}

// Remove drops the key
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.gen++
}

// Clear drops every entry, used on logout so one user's data is not served to the next
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.gen++
}

// flightKey scopes singleflight de-duplication to the current generation
func (c *Cache) flightKey(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fmt.Sprintf("%s@%d", key, c.gen)
}

// fresh reports whether key holds data fetched less than staleTime ago
func (c *Cache) fresh(key string, staleTime time.Duration) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !e.HasData || e.Invalid || e.Err != nil {
		return nil, false
	}
	if c.now().Sub(e.UpdatedAt) >= staleTime {
		return nil, false
	}
	return e.Data, true
}

func (c *Cache) lookup(key string) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

// begin marks a fetch as started and returns the entry it belongs to
func (c *Cache) begin(key string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.lookup(key)
	e.Fetches++
	e.inflight++
	e.Fetching = true
	return e
}

// finish records the outcome of a fetch started on e. A failed fetch keeps the previous data.
// When e was dropped by Clear or Remove in the meantime the outcome is discarded.
func (c *Cache) finish(key string, e *entry, data any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.inflight--
	e.Fetching = e.inflight > 0
	if c.entries[key] != e {
		return
	}
	e.Err = err
	if err == nil {
		e.Data = data
		e.HasData = true
		e.UpdatedAt = c.now()
		e.Invalid = false
	}
}
