// Package metrics instruments a single deploy-transact invocation with Prometheus
// collectors. Each invocation owns its registry; when a Pushgateway URL is configured
// the collected samples are pushed once before the process exits.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	// JobName is the Pushgateway job label used for pushed samples
	JobName = "deploy_transact"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	KindPublic  = "public"
	KindPrivate = "private"
)

// Metrics holds the collectors of one invocation. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	signatures       *prometheus.CounterVec
	submissions      *prometheus.CounterVec
	gasFallbacks     prometheus.Counter
	signingDurations *prometheus.HistogramVec
}

// NewMetrics creates and registers the invocation collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		signatures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deploy_transact_signatures_total",
				Help: "Total number of signing attempts by backend and outcome.",
			},
			[]string{"backend", "outcome"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deploy_transact_submissions_total",
				Help: "Total number of transaction submissions by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		gasFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "deploy_transact_gas_estimate_fallbacks_total",
				Help: "Total number of gas estimations that fell back to the backend default.",
			},
		),
		signingDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deploy_transact_signing_duration_seconds",
				Help:    "Signing latency distributions by backend.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"backend"},
		),
	}
	m.registry.MustRegister(m.signatures, m.submissions, m.gasFallbacks, m.signingDurations)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveSignature records one signing attempt.
func (m *Metrics) ObserveSignature(backend string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.signatures.WithLabelValues(backend, outcome(err)).Inc()
	m.signingDurations.WithLabelValues(backend).Observe(time.Since(started).Seconds())
}

// ObserveSubmission records one public or private submission.
func (m *Metrics) ObserveSubmission(kind string, err error) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(kind, outcome(err)).Inc()
}

// IncGasFallback records a gas estimate replaced by its fallback.
func (m *Metrics) IncGasFallback() {
	if m == nil {
		return
	}
	m.gasFallbacks.Inc()
}

// Push sends the collected samples to the Pushgateway at url. An empty url is a no-op.
func (m *Metrics) Push(ctx context.Context, url string) error {
	if m == nil || url == "" {
		return nil
	}
	if err := push.New(url, JobName).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
