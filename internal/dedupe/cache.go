// Package dedupe keeps a bounded set of recently observed job ids so the
// worker can drop re-delivered generation jobs. Kafka delivery is
// at-least-once; a job that already ran inside the TTL window must not run
// again and overwrite a fresher feed.
package dedupe

import (
	"sync"
	"time"
)

type entry struct {
	key string
	ts  time.Time
}

// Cache is a fixed-capacity seen-set with a TTL.
type Cache struct {
	mu       sync.Mutex
	items    map[string]time.Time
	order    []entry
	capacity int
	ttl      time.Duration
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		items:    make(map[string]time.Time, capacity),
		order:    make([]entry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
	}
}

// Observe records the key and reports whether it had already been observed
// inside the ttl window. The first call for a key returns false, repeats
// within the window return true. Duplicates are not re-recorded, so the ttl
// window runs from the first observation and redeliveries cannot grow the
// eviction queue.
func (c *Cache) Observe(key string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if ts, ok := c.items[key]; ok && now.Sub(ts) <= c.ttl {
		return true
	}

	c.items[key] = now
	c.order = append(c.order, entry{key: key, ts: now})
	c.compact(now)

	return false
}

func (c *Cache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		if ts, ok := c.items[oldest.key]; ok {
			if ts == oldest.ts {
				delete(c.items, oldest.key)
			}
		}
	}
}
