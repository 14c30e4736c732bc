// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chesscraft"

type Metrics struct {
	Registry *prometheus.Registry

	Commands      *prometheus.CounterVec
	Moves         prometheus.Counter
	GamesFinished *prometheus.CounterVec
	GamesActive   prometheus.Gauge
	OutboxDropped prometheus.Counter
	OutboxErrors  prometheus.Counter
	AISearch      prometheus.Histogram
	HostState     *prometheus.GaugeVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Chess commands dispatched, by command path and outcome.",
		}, []string{"command", "outcome"}),
		Moves: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moves_total",
			Help:      "Moves played in all games.",
		}),
		GamesFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_finished_total",
			Help:      "Finished games by result type.",
		}, []string{"result_type"}),
		GamesActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "games_active",
			Help:      "Games currently held by the registry.",
		}),
		OutboxDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hostlink",
			Name:      "outbox_dropped_total",
			Help:      "Host calls dropped because the outbox was full.",
		}),
		OutboxErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hostlink",
			Name:      "outbox_errors_total",
			Help:      "Host calls that failed after retries.",
		}),
		AISearch: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "search_seconds",
			Help:      "Time taken by engine searches.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		HostState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hostlink",
			Name:      "events_state",
			Help:      "1 for the current state of the host event stream.",
		}, []string{"state"}),
	}
}

// CommandDone counts one dispatched command.
func (m *Metrics) CommandDone(name string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if name == "" {
		name = "unknown"
	}
	m.Commands.WithLabelValues(name, outcome).Inc()
}

// SearchDone observes one engine search.
func (m *Metrics) SearchDone(elapsed time.Duration) {
	m.AISearch.Observe(elapsed.Seconds())
}

// SetHostState marks state as the only active event stream state.
func (m *Metrics) SetHostState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		m.HostState.WithLabelValues(s).Set(v)
	}
}
