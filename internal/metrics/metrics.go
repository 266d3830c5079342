// Package metrics exposes Prometheus counters for bot activity.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "moneybot"

// Metrics holds the bot counters. Each Metrics owns its registry so that
// tests and multiple instances never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	commands      *prometheus.CounterVec
	commits       *prometheus.CounterVec
	aborts        *prometheus.CounterVec
	mismatches    prometheus.Counter
	unauthorized  prometheus.Counter
	storeErrors   *prometheus.CounterVec
	eventDuration prometheus.Histogram
}

// New creates the counters on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands received from authorized users",
		}, []string{"command"}),
		commits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_committed_total",
			Help:      "Ledger entries written, by split kind",
		}, []string{"split"}),
		aborts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_aborted_total",
			Help:      "Pending operations aborted without a ledger write",
		}, []string{"reason"}),
		mismatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "split_mismatches_total",
			Help:      "Custom splits whose amounts did not add up to the total",
		}),
		unauthorized: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unauthorized_events_total",
			Help:      "Events rejected because of chat or membership checks",
		}),
		storeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_errors_total",
			Help:      "Ledger failures surfaced to users, by kind",
		}, []string{"kind"}),
		eventDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_duration_seconds",
			Help:      "Time spent handling one inbound event",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) Command(name string)     { m.commands.WithLabelValues(name).Inc() }
func (m *Metrics) Commit(split string)     { m.commits.WithLabelValues(split).Inc() }
func (m *Metrics) Abort(reason string)     { m.aborts.WithLabelValues(reason).Inc() }
func (m *Metrics) SplitMismatch()          { m.mismatches.Inc() }
func (m *Metrics) Unauthorized()           { m.unauthorized.Inc() }
func (m *Metrics) LedgerError(kind string) { m.storeErrors.WithLabelValues(kind).Inc() }

// ObserveEvent records how long handling an event took.
func (m *Metrics) ObserveEvent(start time.Time) {
	m.eventDuration.Observe(time.Since(start).Seconds())
}

// Registry returns the registry the counters live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
