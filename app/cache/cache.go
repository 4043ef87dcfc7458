// Package cache wraps ristretto for the render caches: the fingerprint cache that decides
// whether a render can be skipped and the binary cache that holds rendered diagrams.
package cache

import (
	"errors"
	"time"

	"github.com/dgraph-io/ristretto"
)

var (
	// ErrCacheMiss indicates that a key was not found in the cache
	ErrCacheMiss = errors.New("cache: key not found")
	// ErrCacheSet indicates that a value could not be set in the cache
	ErrCacheSet = errors.New("cache: failed to set value")
	// ErrInvalidTTL indicates that an invalid TTL was provided
	ErrInvalidTTL = errors.New("cache: invalid TTL")
)

// Cache is a named, thread-safe in-memory cache.
type Cache struct {
	cache   *ristretto.Cache
	name    string
	costFns bool
}

// Options configures a Cache.
type Options struct {
	// NumCounters is the number of 4-bit counters for admission policy (10x max items)
	NumCounters int64
	// MaxCost is the maximum cost of cache (sum of all items' costs)
	MaxCost int64
	// BufferItems is the number of keys per Get buffer
	BufferItems int64
	// Metrics enables hit/miss accounting
	Metrics bool
	// OnEvict is called when an item is evicted from the cache
	OnEvict func(item *ristretto.Item)
	// Cost computes the cost of a value stored with Set
	Cost func(value interface{}) int64
}

// DefaultOptions returns options sized for a few hundred thousand small entries.
func DefaultOptions() *Options {
	return &Options{
		NumCounters: 1e6,
		MaxCost:     1 << 26,
		BufferItems: 64,
	}
}

// New creates a cache named name.
func New(name string, opts *Options) (*Cache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	bufferItems := opts.BufferItems
	if bufferItems <= 0 {
		bufferItems = 64
	}

	config := &ristretto.Config{
		NumCounters:        opts.NumCounters,
		MaxCost:            opts.MaxCost,
		BufferItems:        bufferItems,
		Metrics:            opts.Metrics,
		IgnoreInternalCost: true,
	}
	if opts.OnEvict != nil {
		config.OnEvict = opts.OnEvict
	}
	if opts.Cost != nil {
		config.Cost = opts.Cost
	}

	cache, err := ristretto.NewCache(config)
	if err != nil {
		return nil, err
	}
	return &Cache{cache: cache, name: name, costFns: opts.Cost != nil}, nil
}

// Set stores value under key with cost 1, or with the Options.Cost function when one was given.
// The write is visible to Get when Set returns.
func (c *Cache) Set(key interface{}, value interface{}, ttl time.Duration) error {
	return c.SetWithCost(key, value, 0, ttl)
}

// SetWithCost stores value with an explicit cost. A zero cost defers to Options.Cost or 1.
func (c *Cache) SetWithCost(key interface{}, value interface{}, cost int64, ttl time.Duration) error {
	if ttl < 0 {
		return ErrInvalidTTL
	}
	if cost == 0 && !c.costFns {
		cost = 1
	}

	var ok bool
	if ttl == 0 {
		ok = c.cache.Set(key, value, cost)
	} else {
		ok = c.cache.SetWithTTL(key, value, cost, ttl)
	}
	if !ok {
		return ErrCacheSet
	}
	c.cache.Wait()
	return nil
}

// Get retrieves the value stored under key.
func (c *Cache) Get(key interface{}) (interface{}, error) {
	value, found := c.cache.Get(key)
	if !found {
		return nil, ErrCacheMiss
	}
	return value, nil
}

// Has reports whether key is present.
func (c *Cache) Has(key interface{}) bool {
	_, found := c.cache.Get(key)
	return found
}

// Delete removes key.
func (c *Cache) Delete(key interface{}) {
	c.cache.Del(key)
}

// Clear removes all items.
func (c *Cache) Clear() {
	c.cache.Clear()
}

// Metrics returns cache statistics, or nil when Options.Metrics was false.
func (c *Cache) Metrics() *ristretto.Metrics {
	return c.cache.Metrics
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.cache.Close()
}

// Name returns the cache name.
func (c *Cache) Name() string {
	return c.name
}
