package scan

import (
	"sync"
	"time"
)

// Cache holds recent scan results keyed by URL so repeated runs against the
// same page within a session skip redundant scans. It is explicitly
// constructed and injected, never ambient module state, and it is not a
// correctness-critical structure: a stale miss just re-scans.
type Cache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry

	// now is swappable for tests.
	now func() time.Time
}

type cacheEntry struct {
	questions []Question
	storedAt  time.Time
}

// NewCache creates a cache with the given TTL. Non-positive TTL disables
// caching entirely.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns cached questions for a URL if they are still fresh.
func (c *Cache) Get(url string) ([]Question, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[url]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, url)
		return nil, false
	}
	out := make([]Question, len(entry.questions))
	copy(out, entry.questions)
	return out, true
}

// Put stores scan results for a URL.
func (c *Cache) Put(url string, questions []Question) {
	if c == nil || c.ttl <= 0 {
		return
	}
	stored := make([]Question, len(questions))
	copy(stored, questions)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = cacheEntry{questions: stored, storedAt: c.now()}
}

// Invalidate drops the entry for a URL.
func (c *Cache) Invalidate(url string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, url)
}
