// Package cache is a keyed TTL store shared by the facade operations.
// Expired entries are invisible to Get but remain readable through
// PeekStale until Cleanup removes them, which is what the stale-on-error
// fallback relies on.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type entry struct {
	value      any
	insertedAt time.Time
	ttl        time.Duration
}

type Stats struct {
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Sets          int64   `json:"sets"`
	Invalidations int64   `json:"invalidations"`
	Size          int     `json:"size"`
	HitRate       float64 `json:"hit_rate"`
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]entry

	hits          int64
	misses        int64
	sets          int64
	invalidations int64

	now    func() time.Time
	logger zerolog.Logger
}

func New(logger zerolog.Logger) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
		logger:  logger,
	}
}

// Get returns the value for key if it was set within its TTL.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.expired(e) {
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// PeekStale returns the entry's value even when expired. It does not touch
// the hit/miss counters.
func (c *Cache) PeekStale(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{value: value, insertedAt: c.now(), ttl: ttl}
	c.sets++
	c.logger.Debug().Str("key", key).Dur("ttl", ttl).Msg("cache set")
}

func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.invalidations++
	}
}

// InvalidatePrefix removes every entry whose key starts with prefix and
// returns how many were removed.
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	c.invalidations += int64(removed)
	return removed
}

// Cleanup drops expired entries and returns how many were removed.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug().Int("removed", removed).Msg("cache cleanup")
	}
	return removed
}

// TimeUntilRefresh returns how long the entry for key stays fresh. The
// second result is false when the key is absent or already expired.
func (c *Cache) TimeUntilRefresh(key string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.expired(e) {
		return 0, false
	}
	return e.ttl - c.now().Sub(e.insertedAt), true
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Sets:          c.sets,
		Invalidations: c.invalidations,
		Size:          len(c.entries),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

func (c *Cache) expired(e entry) bool {
	return c.now().Sub(e.insertedAt) > e.ttl
}

var Module = fx.Provide(New)
