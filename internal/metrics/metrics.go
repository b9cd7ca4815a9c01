// Package metrics exposes Prometheus counters for analysis passes.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder records analysis metrics. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry        *prometheus.Registry
	runs            prometheus.Counter
	triggers        *prometheus.CounterVec
	conditionErrors *prometheus.CounterVec
	fetchErrors     prometheus.Counter
	notifications   *prometheus.CounterVec
	runDuration     prometheus.Histogram
}

// New creates a recorder backed by its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		runs: factory.NewCounter(prometheus.CounterOpts{
			Name: "stocknotifier_runs_total",
			Help: "Total number of analysis passes",
		}),
		triggers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocknotifier_triggers_total",
				Help: "Total number of ticker matches per rule group",
			},
			[]string{"group"},
		),
		conditionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocknotifier_condition_errors_total",
				Help: "Conditions that failed to compute and were treated as not met",
			},
			[]string{"indicator"},
		),
		fetchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "stocknotifier_fetch_errors_total",
			Help: "Tickers skipped because their history could not be fetched",
		}),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocknotifier_notifications_total",
				Help: "Webhook deliveries by outcome",
			},
			[]string{"status"},
		),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "stocknotifier_run_duration_seconds",
			Help:    "Duration of analysis passes in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RecordRun records one completed analysis pass.
func (r *Recorder) RecordRun(d time.Duration) {
	if r == nil {
		return
	}
	r.runs.Inc()
	r.runDuration.Observe(d.Seconds())
}

// RecordTrigger records a ticker matching a group.
func (r *Recorder) RecordTrigger(group string) {
	if r == nil {
		return
	}
	r.triggers.WithLabelValues(group).Inc()
}

// ConditionError records a condition that failed to compute.
func (r *Recorder) ConditionError(indicator string) {
	if r == nil {
		return
	}
	r.conditionErrors.WithLabelValues(indicator).Inc()
}

// FetchError records a ticker whose history could not be fetched.
func (r *Recorder) FetchError() {
	if r == nil {
		return
	}
	r.fetchErrors.Inc()
}

// RecordNotification records a webhook delivery outcome: sent, failed,
// skipped or dry_run.
func (r *Recorder) RecordNotification(status string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(status).Inc()
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's metrics in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
