package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the /metrics handler: the package registry, the default registry and any
// registered gatherers.
func Handler() http.Handler {
	gatherersMu.Lock()
	g := prometheus.Gatherers{registry, prometheus.DefaultGatherer}
	g = append(g, extraGatherers...)
	gatherersMu.Unlock()
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{
		EnableOpenMetrics:  true,
		DisableCompression: false,
	})
}
