package tools

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/usestring/flowschema/internal/catalog"
)

// DefaultResultStoreSize bounds the structures kept for resource reads.
const DefaultResultStoreSize = 16

// ResultStore keeps the most recent inferred structures so resources can
// serve them without re-reading the capture.
type ResultStore struct {
	cache *lru.Cache[string, *catalog.Structure]
}

// NewResultStore creates a store holding up to size structures.
func NewResultStore(size int) (*ResultStore, error) {
	if size <= 0 {
		size = DefaultResultStoreSize
	}
	c, err := lru.New[string, *catalog.Structure](size)
	if err != nil {
		return nil, err
	}
	return &ResultStore{cache: c}, nil
}

// ResultID derives a stable identifier for a capture path.
func ResultID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:8])
}

// Put stores s under id, replacing any earlier structure.
func (r *ResultStore) Put(id string, s *catalog.Structure) {
	r.cache.Add(id, s)
}

// Get returns the structure stored under id.
func (r *ResultStore) Get(id string) (*catalog.Structure, bool) {
	return r.cache.Get(id)
}
