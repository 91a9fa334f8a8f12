// Package metrics exposes bootstrap and HTTP collectors on a private
// Prometheus registry.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-profiles/pkg/activity"
)

const namespace = "music"

// Metrics holds the collectors of one process.
type Metrics struct {
	activeProfile *prometheus.GaugeVec
	excludedUnits *prometheus.GaugeVec
	conflicts     *prometheus.CounterVec
	albumsSeeded  prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
	registry      *prometheus.Registry
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		activeProfile: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "profiles",
				Name:      "active",
				Help:      "Backing-store profile resolved at startup; 1 for the active profile.",
			},
			[]string{"profile", "source"},
		),
		excludedUnits: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "profiles",
				Name:      "excluded_units",
				Help:      "Auto-configuration units disabled by the exclusion overlay.",
			},
			[]string{"unit"},
		),
		conflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "profiles",
				Name:      "conflicts_total",
				Help:      "Fatal profile conflicts detected during bootstrap.",
			},
			[]string{"kind"},
		),
		albumsSeeded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "albums",
				Name:      "seeded_total",
				Help:      "Albums inserted by the catalog populator.",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route, method and status code.",
			},
			[]string{"route", "method", "code"},
		),
		httpDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"route", "method"},
		),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.activeProfile,
		m.excludedUnits,
		m.conflicts,
		m.albumsSeeded,
		m.httpRequests,
		m.httpDurations,
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hook records bootstrap activity events.
func (m *Metrics) Hook() activity.ActivityHook {
	return activity.HookFunc(func(_ context.Context, event activity.Event) error {
		m.observe(event)
		return nil
	})
}

func (m *Metrics) observe(event activity.Event) {
	switch event.Verb {
	case activity.VerbProfileResolved:
		source, _ := event.Metadata["source"].(string)
		m.activeProfile.Reset()
		m.activeProfile.WithLabelValues(event.ObjectID, source).Set(1)
	case activity.VerbOverlayInstalled:
		m.excludedUnits.Reset()
		units, _ := event.Metadata["exclusions"].([]string)
		for _, unit := range units {
			m.excludedUnits.WithLabelValues(unit).Set(1)
		}
	case activity.VerbConflict:
		m.conflicts.WithLabelValues(event.ObjectID).Inc()
	}
}

// AlbumsSeeded adds n to the populator counter.
func (m *Metrics) AlbumsSeeded(n int) {
	if n > 0 {
		m.albumsSeeded.Add(float64(n))
	}
}

// Instrument wraps next with request counting and latency tracking under
// route.
func (m *Metrics) Instrument(route string, next http.Handler) http.Handler {
	labels := prometheus.Labels{"route": route}
	return promhttp.InstrumentHandlerDuration(
		m.httpDurations.MustCurryWith(labels),
		promhttp.InstrumentHandlerCounter(m.httpRequests.MustCurryWith(labels), next),
	)
}
