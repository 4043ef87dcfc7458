package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "renderpool"

var (
	factory = promauto.With(registry)

	engineConstructions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "constructions_total",
		Help:      "Engine construction attempts by kind and result.",
	}, []string{"kind", "result"})

	engineConstructionDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "construction_duration_seconds",
		Help:      "Time spent constructing an engine.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"kind"})

	engineReady = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "engine",
		Name:      "ready",
		Help:      "Readiness of a specialized engine kind (1=ready, 0=pending, -1=failed).",
	}, []string{"kind"})

	poolIdle = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "idle_engines",
		Help:      "Generic engines waiting in the pool.",
	})

	poolEvents = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "events_total",
		Help:      "Pool offers, drops, construction failures and takes.",
	}, []string{"event"})

	reconciles = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "extensions",
		Name:      "reconciles_total",
		Help:      "Extension reconciliations by outcome.",
	}, []string{"outcome"})

	renders = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "render",
		Name:      "total",
		Help:      "Guarded renders by outcome.",
	}, []string{"outcome"})

	convertDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "convert",
		Name:      "duration_seconds",
		Help:      "Document conversion latency by engine kind.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind", "result"})
)

// ObserveConstruction records one construction attempt for kind.
func ObserveConstruction(kind string, d time.Duration, err error) {
	engineConstructions.WithLabelValues(kind, result(err)).Inc()
	engineConstructionDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// SetEngineReady records kind as pending (0), ready (1) or failed (-1).
func SetEngineReady(kind string, state float64) {
	engineReady.WithLabelValues(kind).Set(state)
}

// SetPoolIdle records the number of idle pooled engines.
func SetPoolIdle(n int) {
	poolIdle.Set(float64(n))
}

// AddPoolEvent counts n pool events of the given kind: offered, dropped, failed or taken.
func AddPoolEvent(event string, n int) {
	if n <= 0 {
		return
	}
	poolEvents.WithLabelValues(event).Add(float64(n))
}

// IncReconcile counts an extension reconciliation outcome.
func IncReconcile(outcome string) {
	reconciles.WithLabelValues(outcome).Inc()
}

// IncRender counts a guarded render outcome.
func IncRender(outcome string) {
	renders.WithLabelValues(outcome).Inc()
}

// ObserveConvert records one conversion on an engine of kind.
func ObserveConvert(kind string, d time.Duration, err error) {
	convertDuration.WithLabelValues(kind, result(err)).Observe(d.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
