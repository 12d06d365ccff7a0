// Package metrics exposes Prometheus collectors for identity resolution and Discord calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gatekeeper"

// Flow labels.
const (
	FlowCallback = "callback"
	FlowRefresh  = "refresh"
)

// OutcomeSuccess labels a resolution that issued a session or updated a rank.
const OutcomeSuccess = "success"

// Collector records resolution and Discord client metrics. A nil *Collector is a no-op.
type Collector struct {
	resolutions        *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec
	discordRequests    *prometheus.CounterVec
	discordLatency     *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Identity resolutions by flow and outcome (success or rejection reason).",
		}, []string{"flow", "outcome"}),
		resolutionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "End-to-end identity resolution latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		}, []string{"flow"}),
		discordRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discord_requests_total",
			Help:      "Outbound Discord API calls by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		discordLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "discord_request_duration_seconds",
			Help:      "Outbound Discord API call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
	reg.MustRegister(c.resolutions, c.resolutionDuration, c.discordRequests, c.discordLatency)
	return c
}

// RecordResolution counts one resolution attempt.
func (c *Collector) RecordResolution(flow, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.resolutions.WithLabelValues(flow, outcome).Inc()
	c.resolutionDuration.WithLabelValues(flow).Observe(d.Seconds())
}

// ObserveDiscordRequest counts one outbound Discord call.
func (c *Collector) ObserveDiscordRequest(endpoint, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.discordRequests.WithLabelValues(endpoint, outcome).Inc()
	c.discordLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
