// Package metrics holds the process Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Event outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeDenied   = "denied"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
	OutcomePanic    = "panic"
)

// Metrics is the set of collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	Events         *prometheus.CounterVec
	EventDuration  prometheus.Histogram
	Submissions    *prometheus.CounterVec
	RemindersSent  *prometheus.CounterVec
	ReminderErrors prometheus.Counter
	ActiveSessions prometheus.GaugeFunc
}

// New registers all collectors on a fresh registry. sessions reports the
// number of live conversation sessions; nil means zero.
func New(sessions func() int) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hgbot",
			Name:      "events_total",
			Help:      "Inbound chat events by kind and outcome.",
		}, []string{"kind", "outcome"}),
		EventDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hgbot",
			Name:      "event_duration_seconds",
			Help:      "Time spent handling one inbound event.",
			Buckets:   prometheus.DefBuckets,
		}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hgbot",
			Name:      "submissions_total",
			Help:      "Persisted report batches by kind.",
		}, []string{"kind"}),
		RemindersSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hgbot",
			Name:      "reminders_sent_total",
			Help:      "Reminder messages delivered by job kind.",
		}, []string{"job"}),
		ReminderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hgbot",
			Name:      "reminder_errors_total",
			Help:      "Reminder jobs or sends that failed.",
		}),
	}
	m.ActiveSessions = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "hgbot",
		Name:      "sessions",
		Help:      "Conversation sessions held in memory.",
	}, func() float64 {
		if sessions == nil {
			return 0
		}
		return float64(sessions())
	})

	reg.MustRegister(m.Events, m.EventDuration, m.Submissions, m.RemindersSent, m.ReminderErrors, m.ActiveSessions)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
