package geocoding

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/jengzang/location-tracker/internal/spatial"
)

// Cache wraps a Geocoder and memoizes OK results per geohash cell
type Cache struct {
	next       Geocoder
	precision  int
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used
}

type cacheEntry struct {
	key       string
	result    Result
	expiresAt time.Time
}

// NewCache creates a cache whose cells are no wider than cellMeters.
// maxEntries <= 0 disables eviction by size; ttl <= 0 keeps entries forever.
func NewCache(next Geocoder, cellMeters float64, maxEntries int, ttl time.Duration) *Cache {
	return &Cache{
		next:       next,
		precision:  spatial.GeohashPrecisionForDistance(cellMeters),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Reverse returns a cached address for the cell or asks the wrapped geocoder
func (c *Cache) Reverse(ctx context.Context, lat, lng float64) (Result, error) {
	key := spatial.EncodeGeohash(lat, lng, c.precision)

	if r, ok := c.get(key); ok {
		return r, nil
	}

	r, err := c.next.Reverse(ctx, lat, lng)
	if err != nil {
		return r, err
	}
	if r.OK() {
		c.put(key, r)
	}
	return r, nil
}

// Len returns the number of cached cells
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) get(key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	entry := el.Value.(*cacheEntry)
	if c.ttl > 0 && c.now().After(entry.expiresAt) {
		c.order.Remove(el)
		delete(c.entries, key)
		return Result{}, false
	}
	c.order.MoveToFront(el)
	return entry.result, true
}

func (c *Cache) put(key string, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*cacheEntry)
		entry.result = r
		entry.expiresAt = expires
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, result: r, expiresAt: expires})
	for c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}
