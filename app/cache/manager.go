package cache

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/ristretto"
	"github.com/go-lynx/renderpool/app/conf"
)

// Manager owns a set of named caches.
type Manager struct {
	caches map[string]*Cache
	mu     sync.RWMutex
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		caches: make(map[string]*Cache),
	}
}

// Create creates a cache named name; the name must be unused.
func (m *Manager) Create(name string, opts *Options) (*Cache, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.caches[name]; exists {
		return nil, fmt.Errorf("cache %s already exists", name)
	}
	c, err := New(name, opts)
	if err != nil {
		return nil, err
	}
	m.caches[name] = c
	return c, nil
}

// CreateSized creates a cache from a configuration section.
func (m *Manager) CreateSized(name string, size conf.CacheSize) (*Cache, error) {
	return m.Create(name, FromSize(size))
}

// Get retrieves a cache by name.
func (m *Manager) Get(name string) (*Cache, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, exists := m.caches[name]
	return c, exists
}

// GetOrCreate retrieves an existing cache or creates it.
func (m *Manager) GetOrCreate(name string, opts *Options) (*Cache, error) {
	if c, exists := m.Get(name); exists {
		return c, nil
	}
	c, err := m.Create(name, opts)
	if err != nil {
		// lost a creation race
		if existing, ok := m.Get(name); ok {
			return existing, nil
		}
		return nil, err
	}
	return c, nil
}

// Clear empties the named cache.
func (m *Manager) Clear(name string) error {
	c, exists := m.Get(name)
	if !exists {
		return fmt.Errorf("cache %s not found", name)
	}
	c.Clear()
	return nil
}

// Close closes every cache and forgets them.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.caches {
		c.Close()
	}
	m.caches = make(map[string]*Cache)
}

// List returns the cache names in sorted order.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.caches))
	for name := range m.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns metrics for the caches created with Metrics enabled.
func (m *Manager) Stats() map[string]*ristretto.Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := make(map[string]*ristretto.Metrics)
	for name, c := range m.caches {
		if mt := c.Metrics(); mt != nil {
			stats[name] = mt
		}
	}
	return stats
}
