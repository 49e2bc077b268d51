package render

import (
	"container/list"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Cache is an in-process render-output cache: byte-weighted capacity,
// TTL-since-insert plus TTI-since-last-access expiry, and an
// expired-first-then-LRU eviction policy, per spec.md §4.4.5.
//
// Generalizes pkg/cache.MemoryCache's single-policy (TTL-only, unbounded
// size, map+mutex) shape to a two-policy, byte-capped cache. The entry
// index is an xsync.MapOf for lock-free reads; LRU order is a
// mutex-guarded container/list, touched only on Get/Set/evict, matching
// how the teacher isolates its own concurrency-sensitive state (a single
// small critical section) rather than holding one coarse lock over
// everything.
type Cache struct {
	maxBytes int64
	ttl      time.Duration
	tti      time.Duration

	index *xsync.MapOf[string, *list.Element]

	mu       sync.Mutex
	order    *list.List
	curBytes int64

	leaderMu sync.Mutex
	leaders  map[string]*leader
}

type entry struct {
	key         string
	value       []byte
	contentType string
	size        int64
	insertedAt  time.Time
	lastAccess  time.Time
}

// leader is the in-flight "promise" registered per fingerprint so
// concurrent misses for the same key compute exactly once (single-flight,
// §4.4.5).
type leader struct {
	done        chan struct{}
	value       []byte
	contentType string
	err         error
}

// NewCache creates a cache capped at maxBytes with the given TTL/TTI.
func NewCache(maxBytes int64, ttl, tti time.Duration) *Cache {
	return &Cache{
		maxBytes: maxBytes,
		ttl:      ttl,
		tti:      tti,
		index:    xsync.NewMapOf[string, *list.Element](),
		order:    list.New(),
		leaders:  make(map[string]*leader),
	}
}

func (c *Cache) expired(e *entry, now time.Time) bool {
	if c.ttl > 0 && now.Sub(e.insertedAt) > c.ttl {
		return true
	}
	if c.tti > 0 && now.Sub(e.lastAccess) > c.tti {
		return true
	}
	return false
}

// Get returns the cached value for key if present and not expired,
// touching its access time and moving it to the front of the LRU order.
func (c *Cache) Get(key string) (value []byte, contentType string, ok bool) {
	elem, found := c.index.Load(key)
	if !found {
		return nil, "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := elem.Value.(*entry)
	if c.expired(e, time.Now()) {
		c.removeLocked(elem)
		return nil, "", false
	}

	e.lastAccess = time.Now()
	c.order.MoveToFront(elem)
	return e.value, e.contentType, true
}

// Set inserts or replaces the cached value for key, evicting
// expired-then-least-recently-used entries until the cache is back under
// maxBytes.
func (c *Cache) Set(key string, value []byte, contentType string) {
	size := int64(len(value))
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.index.Load(key); ok {
		c.removeLocked(existing)
	}

	e := &entry{key: key, value: value, contentType: contentType, size: size, insertedAt: now, lastAccess: now}
	elem := c.order.PushFront(e)
	c.index.Store(key, elem)
	c.curBytes += size

	c.evictLocked()
}

// evictLocked must be called with c.mu held.
func (c *Cache) evictLocked() {
	if c.maxBytes <= 0 {
		return
	}

	now := time.Now()

	// Expired-first: sweep from the back for anything already stale.
	for c.curBytes > c.maxBytes {
		var victim *list.Element
		for e := c.order.Back(); e != nil; e = e.Prev() {
			if c.expired(e.Value.(*entry), now) {
				victim = e
				break
			}
		}
		if victim == nil {
			break
		}
		c.removeLocked(victim)
	}

	// Then plain LRU from the tail.
	for c.curBytes > c.maxBytes {
		tail := c.order.Back()
		if tail == nil {
			break
		}
		c.removeLocked(tail)
	}
}

// removeLocked must be called with c.mu held.
func (c *Cache) removeLocked(elem *list.Element) {
	e := elem.Value.(*entry)
	c.order.Remove(elem)
	c.index.Delete(e.key)
	c.curBytes -= e.size
}

// GetOrCompute returns the cached value for key, or computes it via fn if
// absent, ensuring concurrent misses for the same key produce exactly one
// computation (single-flight, §4.4.5).
func (c *Cache) GetOrCompute(key string, fn func() ([]byte, string, error)) ([]byte, string, error) {
	if value, contentType, ok := c.Get(key); ok {
		return value, contentType, nil
	}

	c.leaderMu.Lock()
	if l, ok := c.leaders[key]; ok {
		c.leaderMu.Unlock()
		<-l.done
		return l.value, l.contentType, l.err
	}

	l := &leader{done: make(chan struct{})}
	c.leaders[key] = l
	c.leaderMu.Unlock()

	value, contentType, err := fn()

	l.value, l.contentType, l.err = value, contentType, err
	close(l.done)

	c.leaderMu.Lock()
	delete(c.leaders, key)
	c.leaderMu.Unlock()

	if err == nil {
		c.Set(key, value, contentType)
	}
	return value, contentType, err
}
