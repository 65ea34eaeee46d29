// Package metrics exposes the engine counters on a Prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter the engine emits. One instance per process.
type Metrics struct {
	Assignments   *prometheus.CounterVec // by service type and travel source
	SolverErrors  *prometheus.CounterVec // by kind: vroom, osrm, chain
	CrewsSkipped  prometheus.Counter
	DaysSimulated prometheus.Counter
	BacklogSize   prometheus.Gauge
}

// New registers the engine collectors on reg and returns them. Pass
// prometheus.NewRegistry() in tests to avoid global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rotas",
			Name:      "assignments_total",
			Help:      "Orders assigned, by service type and travel source.",
		}, []string{"type", "source"}),
		SolverErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rotas",
			Name:      "solver_errors_total",
			Help:      "External solver and routing failures, by backend.",
		}, []string{"backend"}),
		CrewsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rotas",
			Name:      "crews_skipped_total",
			Help:      "Crew dispatches abandoned after every travel tier failed.",
		}),
		DaysSimulated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rotas",
			Name:      "days_simulated_total",
			Help:      "Simulated days completed.",
		}),
		BacklogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rotas",
			Name:      "backlog_size",
			Help:      "Orders currently pending in the backlog.",
		}),
	}
	reg.MustRegister(m.Assignments, m.SolverErrors, m.CrewsSkipped, m.DaysSimulated, m.BacklogSize)
	return m
}
