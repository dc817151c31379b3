package decompose

import (
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// Cache memoizes decompositions by exact task text. Decompose is a pure
// function of its input, so cached values never go stale. Returned
// decompositions are shared and must not be modified.
type Cache struct {
	dec   *Decomposer
	cache *ristretto.Cache
}

// NewCache wraps dec with a bounded cache holding at most maxEntries
// decompositions.
func NewCache(dec *Decomposer, maxEntries int64) (*Cache, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("decompose: cache size must be positive, got %d", maxEntries)
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("decompose: create cache: %w", err)
	}
	return &Cache{dec: dec, cache: c}, nil
}

// Decompose returns the cached decomposition for text, computing and
// admitting it on a miss. Admission is asynchronous and may be rejected by
// the cache policy; a rejected entry is simply recomputed next time.
func (c *Cache) Decompose(text string, metadata map[string]any) *Decomposition {
	if v, ok := c.cache.Get(text); ok {
		if d, ok := v.(*Decomposition); ok {
			return d
		}
	}
	d := c.dec.Decompose(text, metadata)
	c.cache.Set(text, d, 1)
	return d
}

// Wait blocks until pending admissions are applied.
func (c *Cache) Wait() {
	c.cache.Wait()
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.cache.Close()
}
