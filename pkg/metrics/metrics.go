// Package metrics holds the Prometheus instrumentation shared by every
// component that sends or serves a routed message, grounded on the
// promauto-based Metrics type the example pack's gateway service
// registers once per process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter/histogram a Directory's sends and the
// plugin loader record against. Construct one
// with NewMetrics and thread it through; there is no package-level
// singleton, so multiple Directories in one process (as the test suite
// builds) can register independent registries.
type Metrics struct {
	SendsTotal      *prometheus.CounterVec
	SendDuration    *prometheus.HistogramVec
	RouteMisses     *prometheus.CounterVec
	TransportErrors prometheus.Counter
	PluginSpawns    *prometheus.CounterVec
}

// NewMetrics creates and registers every metric with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		SendsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "roundtable",
				Name:      "sends_total",
				Help:      "Total messages sent through a Directory, by lane and outcome",
			},
			[]string{"lane", "outcome"}, // outcome=ok/error
		),
		SendDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "roundtable",
				Name:      "send_duration_seconds",
				Help:      "Time to resolve a Send call, by lane",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"lane"},
		),
		RouteMisses: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "roundtable",
				Name:      "route_misses_total",
				Help:      "Sends that found no matching route in a lane, by lane",
			},
			[]string{"lane"},
		),
		TransportErrors: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "roundtable",
				Name:      "transport_errors_total",
				Help:      "Remote endpoint sends that failed at the transport layer",
			},
		),
		PluginSpawns: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "roundtable",
				Name:      "plugin_spawns_total",
				Help:      "Plugin subprocess spawn attempts, by outcome",
			},
			[]string{"outcome"}, // outcome=ok/error
		),
	}
}
