// Package cache holds the public event responses between admin changes.
//
// Entries expire after the TTL; admin writes call InvalidateEvent so a closed
// event or a saved field list shows up immediately instead of after expiry.
package cache

import (
	"sync/atomic"
	"time"

	"github.com/geocoder89/eventform/internal/utils"
	gocache "github.com/patrickmn/go-cache"
)

type Cache struct {
	c   *gocache.Cache
	ttl time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

type Stats struct {
	Items  int   `json:"items"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Cache{
		c:   gocache.New(ttl, 2*ttl),
		ttl: ttl,
	}
}

func (c *Cache) Get(key string) (any, bool) {
	v, ok := c.c.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

func (c *Cache) Set(key string, val any) {
	c.c.Set(key, val, c.ttl)
}

func (c *Cache) Delete(key string) {
	c.c.Delete(key)
}

// InvalidateEvent drops the cached event and the active list it may appear in.
// An empty id only drops the list.
func (c *Cache) InvalidateEvent(id string) {
	c.c.Delete(utils.ActiveEventsCacheKey())
	if id != "" {
		c.c.Delete(utils.EventCacheKey(id))
	}
}

func (c *Cache) Clear() {
	c.c.Flush()
}

func (c *Cache) Stats() Stats {
	return Stats{
		Items:  c.c.ItemCount(),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

func (c *Cache) TTL() time.Duration { return c.ttl }
