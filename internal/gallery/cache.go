package gallery

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"genart/internal/domain"
)

// Cache memoizes scans for a revalidation window. Concurrent misses share a
// single scan. Errors are returned to every waiter and never cached.
type Cache struct {
	scanner *Scanner
	ttl     time.Duration
	now     func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	records []domain.ArtworkRecord
	fresh   time.Time
}

// NewCache wraps scanner. A ttl <= 0 rescans on every call.
func NewCache(scanner *Scanner, ttl time.Duration) *Cache {
	return &Cache{scanner: scanner, ttl: ttl, now: time.Now}
}

// Artworks returns the current records. Callers must not modify the slice.
func (c *Cache) Artworks() ([]domain.ArtworkRecord, error) {
	if c.ttl <= 0 {
		return c.scanner.Scan()
	}
	c.mu.Lock()
	if c.records != nil && c.now().Sub(c.fresh) < c.ttl {
		recs := c.records
		c.mu.Unlock()
		return recs, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(c.scanner.Root, func() (any, error) {
		recs, err := c.scanner.Scan()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.records = recs
		c.fresh = c.now()
		c.mu.Unlock()
		return recs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.ArtworkRecord), nil
}

// TTL is the revalidation window.
func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) Scanner() *Scanner { return c.scanner }
