/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package telemetry exposes Prometheus metrics and OpenTelemetry tracing.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, endpoint, and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_api_requests_total",
		Help: "Total number of HTTP requests received",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skald_api_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skald_api_active_connections",
		Help: "Number of in-flight HTTP requests",
	})

	// APIWebSocketConnections gauges open event-stream websockets.
	APIWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skald_api_websocket_connections",
		Help: "Number of open event websocket connections",
	})

	// SessionsLive gauges sessions currently in the live phase.
	SessionsLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "skald_sessions_live",
		Help: "Number of sessions currently broadcasting",
	})

	// PhaseTransitions counts session phase transitions by target phase.
	PhaseTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_phase_transitions_total",
		Help: "Total session phase transitions by target phase",
	}, []string{"to"})

	// AssetsEmitted counts assets handed to the transport by kind.
	AssetsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_assets_emitted_total",
		Help: "Total assets emitted by the sequencers, by kind",
	}, []string{"kind"})

	// LibraryMutations counts add/remove operations by outcome.
	LibraryMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skald_library_mutations_total",
		Help: "Total library mutations by operation and result",
	}, []string{"op", "result"})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
