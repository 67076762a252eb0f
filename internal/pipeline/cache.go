package pipeline

import (
	"sync"
	"time"
)

// forecastCache is a small thread-safe LRU with per-entry TTL. Requests
// arriving between dataset updates hit the cache instead of re-running the
// full pipeline over an unchanged window.
type forecastCache struct {
	maxEntries int
	ttl        time.Duration

	mu      sync.Mutex
	entries map[string]*cacheEntry
	head    *cacheEntry // most recently used
	tail    *cacheEntry // least recently used
}

type cacheEntry struct {
	key     string
	value   Forecast
	expires time.Time
	prev    *cacheEntry
	next    *cacheEntry
}

func newForecastCache(maxEntries int, ttl time.Duration) *forecastCache {
	return &forecastCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		entries:    make(map[string]*cacheEntry),
	}
}

func (c *forecastCache) get(key string) (Forecast, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Forecast{}, false
	}
	if clock.Now().After(e.expires) {
		c.remove(e)
		delete(c.entries, key)
		return Forecast{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *forecastCache) put(key string, value Forecast) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expires = expires
		c.moveToFront(e)
		return
	}

	e := &cacheEntry{key: key, value: value, expires: expires}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *forecastCache) moveToFront(e *cacheEntry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *forecastCache) addToFront(e *cacheEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *forecastCache) remove(e *cacheEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (c *forecastCache) evictTail() {
	if c.tail == nil {
		return
	}
	victim := c.tail
	c.remove(victim)
	delete(c.entries, victim.key)
}
