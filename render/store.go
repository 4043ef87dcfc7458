package render

import (
	"errors"
	"fmt"

	"github.com/go-lynx/renderpool/app/cache"
)

// Store maps a target key to the fingerprint of its last render attempt.
type Store interface {
	Get(key string) (uint64, bool)
	Put(key string, fingerprint uint64) error
}

type ristrettoStore struct {
	c *cache.Cache
}

// NewStore returns a Store backed by c.
func NewStore(c *cache.Cache) Store {
	return &ristrettoStore{c: c}
}

func (s *ristrettoStore) Get(key string) (uint64, bool) {
	v, err := s.c.Get(key)
	if err != nil {
		return 0, false
	}
	fp, ok := v.(uint64)
	return fp, ok
}

// Put stores fingerprint under key. ristretto may drop a write under contention or refuse to
// admit it once full; a dropped write is retried once and a refused one is reported, so that a
// lost fingerprint only ever costs a re-render.
func (s *ristrettoStore) Put(key string, fingerprint uint64) error {
	err := s.c.Set(key, fingerprint, 0)
	if errors.Is(err, cache.ErrCacheSet) {
		err = s.c.Set(key, fingerprint, 0)
	}
	if err != nil {
		return fmt.Errorf("fingerprint for %s was not stored: %w", key, err)
	}
	if !s.c.Has(key) {
		return fmt.Errorf("fingerprint for %s was not admitted: %w", key, cache.ErrCacheSet)
	}
	return nil
}
