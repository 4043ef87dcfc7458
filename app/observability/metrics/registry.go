// Package metrics exposes renderpool's Prometheus collectors on a package registry.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Global registry for all renderpool collectors
	registry = prometheus.NewRegistry()

	gatherersMu    sync.Mutex
	extraGatherers []prometheus.Gatherer
)

// Registry returns the package registry.
func Registry() *prometheus.Registry {
	return registry
}

// RegisterGatherer adds a registry owned elsewhere to the /metrics output.
func RegisterGatherer(g prometheus.Gatherer) {
	if g == nil {
		return
	}
	gatherersMu.Lock()
	extraGatherers = append(extraGatherers, g)
	gatherersMu.Unlock()
}

// RegisterCollector registers c with the package registry.
func RegisterCollector(c prometheus.Collector) error {
	return registry.Register(c)
}

// MustRegister registers collectors in batch and panics on failure.
func MustRegister(cs ...prometheus.Collector) {
	registry.MustRegister(cs...)
}
