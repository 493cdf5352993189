/*
	TTL Cache package

	Keyed cache with per-entry expiry and least recently used eviction once
	the capacity is reached. Safe for concurrent use.
*/

package cache

import (
	"container/list"
	"sync"
	"time"
)

// DefaultCapacity is used when New is supplied a zero capacity
const DefaultCapacity = 256

// Cache holds values for a fixed time to live
type Cache struct {
	ttl   time.Duration
	cap   int
	mu    sync.Mutex
	l     *list.List
	items map[any]*list.Element
	now   func() time.Time
}

type entry struct {
	key     any
	value   any
	expires time.Time
}

// New returns a new concurrent safe TTL cache. A ttl of zero or less disables
// expiry.
func New(ttl time.Duration, capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		ttl:   ttl,
		cap:   capacity,
		l:     list.New(),
		items: make(map[any]*list.Element),
		now:   time.Now,
	}
}

// Add adds or replaces a value in the cache
func (c *Cache) Add(key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var expires time.Time
	if c.ttl > 0 {
		expires = c.now().Add(c.ttl)
	}
	if e, ok := c.items[key]; ok {
		c.l.MoveToFront(e)
		v := e.Value.(*entry)
		v.value = value
		v.expires = expires
		return
	}
	c.items[key] = c.l.PushFront(&entry{key: key, value: value, expires: expires})
	if c.l.Len() > c.cap {
		c.removeElement(c.l.Back())
	}
}

// Get returns a keys value and true if found and not yet expired
func (c *Cache) Get(key any) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	v := e.Value.(*entry)
	if !v.expires.IsZero() && !c.now().Before(v.expires) {
		c.removeElement(e)
		return nil, false
	}
	c.l.MoveToFront(e)
	return v.value, true
}

// Invalidate removes a key from the cache, returns true if the key was present
func (c *Cache) Invalidate(key any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeElement(e)
	return true
}

// Purge clears every entry, used when the owning configuration changes
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[any]*list.Element)
	c.l.Init()
}

// Len returns the number of stored entries, expired entries included until
// they are next accessed
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.l.Len()
}

func (c *Cache) removeElement(e *list.Element) {
	if e == nil {
		return
	}
	c.l.Remove(e)
	delete(c.items, e.Value.(*entry).key)
}
