// Package prompush implements a Prometheus Pushgateway backend for the
// internal/metrics package. Metrics accumulate in a private registry and are
// pushed to the gateway on Flush, which suits short-lived batch jobs.
package prompush

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"qcmeta/internal/metrics"
)

// pusher is the subset of *push.Pusher used by Backend.
type pusher interface {
	Push() error
}

// Backend implements metrics.Backend and metrics.Flusher.
type Backend struct {
	reg    *prometheus.Registry
	pusher pusher

	steps     *prometheus.CounterVec
	durations *prometheus.HistogramVec
	rows      *prometheus.CounterVec
	confusion *prometheus.CounterVec
}

// NewBackend builds a backend pushing to gatewayURL under job.
func NewBackend(job, gatewayURL string) (*Backend, error) {
	if strings.TrimSpace(gatewayURL) == "" {
		return nil, fmt.Errorf("prompush: gateway url is empty")
	}
	if job == "" {
		job = "qc"
	}
	b := newBackend()
	b.pusher = push.New(gatewayURL, job).Gatherer(b.reg)
	return b, nil
}

func newBackend() *Backend {
	reg := prometheus.NewRegistry()
	b := &Backend{
		reg: reg,
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Completed QC stages by outcome.",
		}, []string{"stage", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metrics.StepDuration,
			Help:    "QC stage wall time in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"stage", "status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Table rows produced, by kind.",
		}, []string{"kind"}),
		confusion: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.ConfusionTotal,
			Help: "Scored samples per confusion-matrix cell.",
		}, []string{"cell"}),
	}
	reg.MustRegister(b.steps, b.durations, b.rows, b.confusion)
	return b
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	switch name {
	case metrics.StepTotal:
		b.steps.WithLabelValues(labels["stage"], labels["status"]).Add(delta)
	case metrics.RowsTotal:
		b.rows.WithLabelValues(labels["kind"]).Add(delta)
	case metrics.ConfusionTotal:
		b.confusion.WithLabelValues(labels["cell"]).Add(delta)
	}
}

// ObserveHistogram implements metrics.Backend. Unknown names are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}
	if name == metrics.StepDuration {
		b.durations.WithLabelValues(labels["stage"], labels["status"]).Observe(value)
	}
}

// Flush pushes the current registry state, replacing the job's previous
// push on the gateway.
func (b *Backend) Flush() error {
	if err := b.pusher.Push(); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	return nil
}

var (
	_ metrics.Backend = (*Backend)(nil)
	_ metrics.Flusher = (*Backend)(nil)
)
