// Package obsmetrics exposes Prometheus collectors for the coordinator.
//
// Grounded in the retrieved pack's docdb/internal/metrics exporter: one
// struct owning named counters/gauges, registered on its own Registry so
// a host process can mount it under /metrics without colliding with the
// default global registry.
package obsmetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every collector the coordinator updates during a tick.
type Metrics struct {
	registry *prometheus.Registry

	Ticks              prometheus.Counter
	OperationsGranted  *prometheus.CounterVec // label: kind (read|write)
	OperationsBlocked  *prometheus.CounterVec // label: kind (read|write)
	Commits            prometheus.Counter
	Aborts             *prometheus.CounterVec // label: reason
	DeadlocksResolved  prometheus.Counter
	SitesUp            prometheus.Gauge
	VariablesUnavailable prometheus.Gauge
}

// New builds and registers a fresh Metrics set.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "txsim_ticks_total",
			Help: "Number of input commands processed.",
		}),
		OperationsGranted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "txsim_operations_granted_total",
			Help: "Read/write operations granted by a site.",
		}, []string{"kind"}),
		OperationsBlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "txsim_operations_blocked_total",
			Help: "Read/write operations left queued this tick.",
		}, []string{"kind"}),
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "txsim_commits_total",
			Help: "Transactions committed.",
		}),
		Aborts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "txsim_aborts_total",
			Help: "Transactions aborted, by reason.",
		}, []string{"reason"}),
		DeadlocksResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "txsim_deadlocks_resolved_total",
			Help: "Waits-for cycles broken by aborting a victim.",
		}),
		SitesUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "txsim_sites_up",
			Help: "Number of sites currently up.",
		}),
		VariablesUnavailable: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "txsim_variables_unavailable",
			Help: "Number of replicated-variable copies currently unavailable.",
		}),
	}

	reg.MustRegister(
		m.Ticks,
		m.OperationsGranted,
		m.OperationsBlocked,
		m.Commits,
		m.Aborts,
		m.DeadlocksResolved,
		m.SitesUp,
		m.VariablesUnavailable,
	)

	return m
}

// Registry returns the Prometheus registry for HTTP exposition.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
