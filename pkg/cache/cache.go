// Package cache provides a time-boxed store of resolved field values.
// It is a passive store: it performs no network activity and is
// addressed only by field type.
package cache

import (
	"sync"
	"time"

	"github.com/smarchetti/ticketdesk/pkg/model"
)

// DefaultTTL is how long a resolved value set stays valid.
const DefaultTTL = 15 * time.Minute

type entry struct {
	values    []model.FieldValue
	fetchedAt time.Time
}

// ValueCache stores resolved value sets per field type with expiry.
// Expired entries are treated as absent, never served.
type ValueCache struct {
	mu      sync.Mutex
	entries map[model.FieldType]entry
	ttl     time.Duration
	now     func() time.Time

	hits   int64
	misses int64
}

// NewValueCache creates a cache with the given TTL. A zero ttl uses
// DefaultTTL.
func NewValueCache(ttl time.Duration) *ValueCache {
	return NewValueCacheWithClock(ttl, time.Now)
}

// NewValueCacheWithClock creates a cache with an injectable clock,
// used by tests to control expiry.
func NewValueCacheWithClock(ttl time.Duration, now func() time.Time) *ValueCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &ValueCache{
		entries: make(map[model.FieldType]entry),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the cached values for a field type, or ok=false when no
// entry exists or the entry has expired. Expired entries are removed.
func (c *ValueCache) Get(field model.FieldType) ([]model.FieldValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[field]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.now().Sub(e.fetchedAt) >= c.ttl {
		delete(c.entries, field)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.values, true
}

// Put stores a value set for a field type, stamping it with the
// current time. Puts are last-writer-wins.
func (c *ValueCache) Put(field model.FieldType, values []model.FieldValue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[field] = entry{values: values, fetchedAt: c.now()}
}

// Invalidate removes the entry for one field type.
func (c *ValueCache) Invalidate(field model.FieldType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, field)
}

// InvalidateAll removes every entry.
func (c *ValueCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[model.FieldType]entry)
}

// SetTTL updates the expiry window for subsequent lookups.
func (c *ValueCache) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = ttl
}

// Size returns the number of stored entries, expired or not.
func (c *ValueCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats describes cache effectiveness.
type Stats struct {
	Hits    int64
	Misses  int64
	HitRate float64
	Size    int
}

// Stats returns a snapshot of hit/miss counters.
func (c *ValueCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Hits: c.hits, Misses: c.misses, Size: len(c.entries)}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}
