// Package http provides the HTTP transport adapter for the governance API.
package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the governor server.
// Pass to components that need to record metrics.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	Resolutions       *prometheus.CounterVec
	Authorizations    *prometheus.CounterVec
	RoutingDecisions  *prometheus.CounterVec
	EnvelopesSealed   prometheus.Counter
	Verifications     *prometheus.CounterVec
	GateChecks        *prometheus.CounterVec
	ReplayCompletions *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governor",
				Name:      "requests_total",
				Help:      "Total number of API requests processed",
			},
			[]string{"endpoint", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "governor",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		Resolutions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governor",
				Name:      "resolutions_total",
				Help:      "Persona and territory resolutions",
			},
			[]string{"kind", "result"}, // kind=persona/territory, result=ok/error
		),
		Authorizations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governor",
				Name:      "authorizations_total",
				Help:      "Capability authorization outcomes",
			},
			[]string{"result"}, // result=allow/deny
		),
		RoutingDecisions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governor",
				Name:      "routing_decisions_total",
				Help:      "Model routing outcomes",
			},
			[]string{"result"}, // result=ok/no_eligible_model
		),
		EnvelopesSealed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "governor",
				Name:      "envelopes_sealed_total",
				Help:      "Envelopes sealed",
			},
		),
		Verifications: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governor",
				Name:      "envelope_verifications_total",
				Help:      "Envelope verification outcomes",
			},
			[]string{"result"}, // result=valid/not_sealed/expired/revoked
		),
		GateChecks: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governor",
				Name:      "gate_checks_total",
				Help:      "Runtime gate outcomes",
			},
			[]string{"result"}, // result=pass or violation code
		),
		ReplayCompletions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "governor",
				Name:      "replay_completions_total",
				Help:      "Replay completion outcomes",
			},
			[]string{"result"}, // result=matched/drifted
		),
	}
}
