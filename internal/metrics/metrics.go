// Package metrics exposes queue and sweep counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"drq/internal/queue"
)

const namespace = "drq"

// Registry owns every drq collector. It implements queue.Observer and
// reconcile.Observer.
type Registry struct {
	reg *prometheus.Registry

	enqueued        *prometheus.CounterVec
	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	depth           *prometheus.GaugeVec
	sweeps          *prometheus.CounterVec
	sweepSynced     prometheus.Counter
	sweepDuration   prometheus.Histogram
}

// New creates a registry with Go runtime and process collectors attached.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		enqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "entries_enqueued_total",
			Help:      "Entries added to a queue.",
		}, []string{"queue"}),
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "attempts_total",
			Help:      "Execution attempts by outcome and error kind.",
		}, []string{"queue", "outcome", "kind"}),
		attemptDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "attempt_duration_seconds",
			Help:      "Time spent inside the executor per attempt.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"queue"}),
		depth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "entries",
			Help:      "Entries currently held by a queue, by status.",
		}, []string{"queue", "status"}),
		sweeps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "sweeps_total",
			Help:      "Reconciliation sweeps by outcome.",
		}, []string{"outcome"}),
		sweepSynced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "records_synced_total",
			Help:      "Records marked synced by sweeps.",
		}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "sweep_duration_seconds",
			Help:      "Wall time of reconciliation sweeps.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),
	}
}

func (r *Registry) EntryEnqueued(queueName string) {
	r.enqueued.WithLabelValues(queueName).Inc()
}

func (r *Registry) AttemptFinished(queueName, outcome, errorKind string, elapsed time.Duration) {
	if errorKind == "" {
		errorKind = "none"
	}
	r.attempts.WithLabelValues(queueName, outcome, errorKind).Inc()
	r.attemptDuration.WithLabelValues(queueName).Observe(elapsed.Seconds())
}

func (r *Registry) QueueDepth(queueName string, stats queue.Stats) {
	r.depth.WithLabelValues(queueName, string(queue.StatusPending)).Set(float64(stats.Pending))
	r.depth.WithLabelValues(queueName, string(queue.StatusSucceeded)).Set(float64(stats.Succeeded))
	r.depth.WithLabelValues(queueName, string(queue.StatusFailed)).Set(float64(stats.Failed))
}

func (r *Registry) SweepFinished(outcome string, synced int, elapsed time.Duration) {
	r.sweeps.WithLabelValues(outcome).Inc()
	r.sweepSynced.Add(float64(synced))
	r.sweepDuration.Observe(elapsed.Seconds())
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
