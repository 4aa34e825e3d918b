// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "transitpal_fetch_duration_seconds",
		Help:    "Duration of one source fetch",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	// FetchResults counts fetches by outcome (success, failure, panic).
	FetchResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transitpal_fetch_results_total",
		Help: "Number of source fetches by outcome",
	}, []string{"source", "outcome"})

	RefreshCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transitpal_refresh_cycles_total",
		Help: "Number of refresh cycles by result (dispatched, cancelled)",
	}, []string{"result"})
)

var (
	ActionsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transitpal_actions_dispatched_total",
		Help: "Number of actions applied by the store",
	}, []string{"action"})

	SubscriberPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transitpal_subscriber_panics_total",
		Help: "Number of panics recovered while notifying subscribers",
	})

	// OverallStatus is 1 for the current aggregate status and 0 for the others.
	OverallStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "transitpal_overall_status",
		Help: "Current aggregate refresh status (1 = current)",
	}, []string{"status"})

	Favorites = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "transitpal_favorites",
		Help: "Number of favorites by kind",
	}, []string{"kind"})
)

var (
	OutgoingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "transitpal_outgoing_request_duration_seconds",
		Help:    "Latency of requests to upstream transit APIs",
		Buckets: prometheus.DefBuckets,
	}, []string{"url", "method", "status"})

	AlertsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transitpal_alerts_sent_total",
		Help: "Push notifications by kind and outcome",
	}, []string{"kind", "outcome"})

	RouteCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transitpal_route_cache_lookups_total",
		Help: "Bus route catalog cache lookups (hit, miss, error)",
	}, []string{"result"})
)
