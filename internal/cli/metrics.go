// Package cli holds the plumbing shared by the qc_* commands: flag
// conventions, metrics backend selection, DSN overrides and the exit-code
// contract (0 ok, 1 runtime error, 2 usage error).
package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"qcmeta/internal/metrics"
	"qcmeta/internal/metrics/datadog"
	"qcmeta/internal/metrics/prompush"
)

// DefaultPushgatewayURL is used when neither the flag nor PUSHGATEWAY_URL is set.
const DefaultPushgatewayURL = "http://localhost:9091"

// MetricsOptions selects a metrics backend.
type MetricsOptions struct {
	Backend        string
	PushgatewayURL string
}

// Register adds -metrics-backend and -pushgateway-url to fs.
func (m *MetricsOptions) Register(fs *flag.FlagSet) {
	fs.StringVar(&m.Backend, "metrics-backend", "", "metrics backend: none|datadog|pushgateway (default env METRICS_BACKEND, else none)")
	fs.StringVar(&m.PushgatewayURL, "pushgateway-url", "", "Pushgateway base URL (default env PUSHGATEWAY_URL, else "+DefaultPushgatewayURL+")")
}

// resolved applies the flag → env → default precedence.
func (m MetricsOptions) resolved() MetricsOptions {
	if m.Backend == "" {
		m.Backend = os.Getenv("METRICS_BACKEND")
	}
	m.Backend = strings.ToLower(strings.TrimSpace(m.Backend))
	if m.PushgatewayURL == "" {
		m.PushgatewayURL = os.Getenv("PUSHGATEWAY_URL")
	}
	if m.PushgatewayURL == "" {
		m.PushgatewayURL = DefaultPushgatewayURL
	}
	return m
}

type metricsBackend interface {
	Close() error
}

// Test seams.
var (
	setMetricsBackend = func(b any) {
		mb, _ := b.(metrics.Backend)
		metrics.SetBackend(mb)
	}
	newDatadogBackend = func(ctx context.Context, opts datadog.Options) (metricsBackend, error) {
		return datadog.NewBackend(ctx, opts)
	}
	newPushBackend = func(job, url string) (any, error) {
		return prompush.NewBackend(job, url)
	}
	flushMetrics = metrics.Flush
	logPrintf    = log.Printf
)

// InitMetrics wires the selected backend into the metrics package. The
// returned cleanup is never nil and flushes or closes the backend; call it
// once when the job ends.
func InitMetrics(ctx context.Context, jobName string, m MetricsOptions) (func(), error) {
	m = m.resolved()
	noop := func() {}

	switch m.Backend {
	case "", "none", "noop":
		return noop, nil

	case "datadog", "dd":
		b, err := newDatadogBackend(ctx, datadog.Options{
			JobName:    jobName,
			Tags:       datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
			FlushEvery: 60 * time.Second,
		})
		if err != nil {
			return noop, datadog.WrapInitErr(err)
		}
		setMetricsBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				logPrintf("metrics: datadog close error: %v", err)
			}
			setMetricsBackend(nil)
		}, nil

	case "pushgateway", "prometheus":
		b, err := newPushBackend(jobName, m.PushgatewayURL)
		if err != nil {
			return noop, fmt.Errorf("pushgateway metrics init: %w", err)
		}
		setMetricsBackend(b)
		return func() {
			if err := flushMetrics(); err != nil {
				logPrintf("metrics: pushgateway flush error: %v", err)
			}
			setMetricsBackend(nil)
		}, nil

	default:
		return noop, fmt.Errorf("unknown metrics backend %q (want none|datadog|pushgateway)", m.Backend)
	}
}
