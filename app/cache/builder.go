package cache

import (
	"github.com/dgraph-io/ristretto"
	"github.com/go-lynx/renderpool/app/conf"
)

// Builder provides a fluent interface for building caches.
type Builder struct {
	name    string
	options *Options
}

// NewBuilder creates a builder starting from DefaultOptions.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:    name,
		options: DefaultOptions(),
	}
}

func (b *Builder) WithNumCounters(num int64) *Builder {
	b.options.NumCounters = num
	return b
}

func (b *Builder) WithMaxCost(cost int64) *Builder {
	b.options.MaxCost = cost
	return b
}

func (b *Builder) WithMetrics(enabled bool) *Builder {
	b.options.Metrics = enabled
	return b
}

// WithSize applies a configuration section; zero fields keep the current values.
func (b *Builder) WithSize(size conf.CacheSize) *Builder {
	if size.NumCounters > 0 {
		b.options.NumCounters = size.NumCounters
	}
	if size.MaxCost > 0 {
		b.options.MaxCost = size.MaxCost
	}
	b.options.Metrics = size.Metrics
	return b
}

func (b *Builder) WithEvictionCallback(fn func(item *ristretto.Item)) *Builder {
	b.options.OnEvict = fn
	return b
}

func (b *Builder) WithCostFunction(fn func(value interface{}) int64) *Builder {
	b.options.Cost = fn
	return b
}

// Build creates the cache.
func (b *Builder) Build() (*Cache, error) {
	return New(b.name, b.options)
}

// BuildIn creates the cache and registers it with m.
func (b *Builder) BuildIn(m *Manager) (*Cache, error) {
	return m.Create(b.name, b.options)
}

// FromSize converts a configuration section to Options.
func FromSize(size conf.CacheSize) *Options {
	return NewBuilder("").WithSize(size).options
}

// FingerprintCacheBuilder sizes a cache of small fixed-size render fingerprints.
func FingerprintCacheBuilder(name string, size conf.CacheSize) *Builder {
	return NewBuilder(name).
		WithNumCounters(1e5).
		WithMaxCost(1 << 20).
		WithSize(size)
}

// BinaryCacheBuilder sizes a cache of rendered images, costed by byte length.
func BinaryCacheBuilder(name string, size conf.CacheSize) *Builder {
	return NewBuilder(name).
		WithNumCounters(1e4).
		WithMaxCost(1 << 28).
		WithSize(size).
		WithCostFunction(func(value interface{}) int64 {
			switch v := value.(type) {
			case []byte:
				if len(v) > 0 {
					return int64(len(v))
				}
			case interface{ Len() int }:
				if n := v.Len(); n > 0 {
					return int64(n)
				}
			}
			return 1
		})
}
