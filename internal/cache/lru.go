// Package cache memoizes value classification across exchanges.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/usestring/flowschema/pkg/schema"
)

// TypeCache provides thread-safe LRU caching of classified leaf values.
// Captured traffic repeats the same literals (ids, flags, enum strings) many
// times, so the lattice coercions run once per distinct value.
type TypeCache struct {
	cache *lru.Cache[string, schema.Type]
}

// NewTypeCache creates a cache holding up to maxItems values. A maxItems of
// zero or less returns a nil cache, which classifies without memoizing.
func NewTypeCache(maxItems int) (*TypeCache, error) {
	if maxItems <= 0 {
		return nil, nil
	}
	c, err := lru.New[string, schema.Type](maxItems)
	if err != nil {
		return nil, err
	}
	return &TypeCache{cache: c}, nil
}

// Classify returns the lattice type of value, consulting the cache first.
// It is safe to call on a nil *TypeCache.
func (c *TypeCache) Classify(value string) schema.Type {
	if c == nil {
		return schema.Classify(value)
	}
	if t, ok := c.cache.Get(value); ok {
		return t
	}
	t := schema.Classify(value)
	c.cache.Add(value, t)
	return t
}

// Len returns the current number of items in the cache.
func (c *TypeCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}
