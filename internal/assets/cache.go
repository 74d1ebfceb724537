package assets

import "sync"

// Cache keeps resolved bundles by directory so repeated inspections do not
// decode the same PNGs again.
type Cache struct {
	data map[string]*Bundle
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*Bundle),
	}
}

// Get retrieves a bundle from cache.
func (c *Cache) Get(dir string) (*Bundle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.data[dir]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return b, ok
}

// Set stores a bundle in cache.
func (c *Cache) Set(dir string, b *Bundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[dir] = b
}

// Delete drops a directory, typically after it was rewritten.
func (c *Cache) Delete(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, dir)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*Bundle)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
