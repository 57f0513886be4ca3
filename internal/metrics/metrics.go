package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the set of control-plane collectors.
type Metrics struct {
	adminOps        *prometheus.CounterVec
	adminDuration   *prometheus.HistogramVec
	workersSpawned  prometheus.Counter
	workersRunning  prometheus.Gauge
	workerExits     prometheus.Counter
	connsAccepted   prometheus.Counter
	connsActive     prometheus.Gauge
	parentProbes    *prometheus.CounterVec
	consoleCommands *prometheus.CounterVec
}

// New registers the collectors with reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		adminOps: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cacheserver_admin_operations_total",
				Help: "Administrative engine operations by operation and result",
			},
			[]string{"op", "result"}, // result: "ok", "error", "rejected"
		),
		adminDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "cacheserver_admin_operation_duration_seconds",
				Help: "Duration of administrative engine operations",
				Buckets: []float64{
					0.001, // 1ms - empty reset
					0.01,
					0.1,
					1,
					10,
					60, // large save
				},
			},
			[]string{"op"},
		),
		workersSpawned: f.NewCounter(prometheus.CounterOpts{
			Name: "cacheserver_workers_spawned_total",
			Help: "Worker processes spawned by the master",
		}),
		workersRunning: f.NewGauge(prometheus.GaugeOpts{
			Name: "cacheserver_workers_running",
			Help: "Worker processes currently running",
		}),
		workerExits: f.NewCounter(prometheus.CounterOpts{
			Name: "cacheserver_worker_exits_total",
			Help: "Worker processes that exited",
		}),
		connsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "cacheserver_connections_accepted_total",
			Help: "Client connections accepted by the in-process server",
		}),
		connsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "cacheserver_connections_active",
			Help: "Client connections currently being served",
		}),
		parentProbes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cacheserver_parent_probes_total",
				Help: "Liveness probes of the monitored parent process by outcome",
			},
			[]string{"outcome"}, // "alive", "dead"
		),
		consoleCommands: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cacheserver_console_commands_total",
				Help: "Console commands read from the operator",
			},
			[]string{"command"}, // "quit", "save", "reset", "ignored"
		),
	}
}

// ObserveAdminOp records a completed administrative operation.
func (m *Metrics) ObserveAdminOp(op string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.adminOps.WithLabelValues(op, result).Inc()
	m.adminDuration.WithLabelValues(op).Observe(d.Seconds())
}

// AdminOpRejected records an operation refused because another was in flight.
func (m *Metrics) AdminOpRejected(op string) {
	if m == nil {
		return
	}
	m.adminOps.WithLabelValues(op, "rejected").Inc()
}

// WorkerSpawned records a successful spawn.
func (m *Metrics) WorkerSpawned() {
	if m == nil {
		return
	}
	m.workersSpawned.Inc()
	m.workersRunning.Inc()
}

// WorkerExited records a worker exit.
func (m *Metrics) WorkerExited() {
	if m == nil {
		return
	}
	m.workerExits.Inc()
	m.workersRunning.Dec()
}

// ConnOpened records an accepted connection.
func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.connsAccepted.Inc()
	m.connsActive.Inc()
}

// ConnClosed records the end of a connection.
func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.connsActive.Dec()
}

// ParentProbe records the outcome of a watchdog probe.
func (m *Metrics) ParentProbe(alive bool) {
	if m == nil {
		return
	}
	outcome := "alive"
	if !alive {
		outcome = "dead"
	}
	m.parentProbes.WithLabelValues(outcome).Inc()
}

// ConsoleCommand records a command read by the console.
func (m *Metrics) ConsoleCommand(command string) {
	if m == nil {
		return
	}
	m.consoleCommands.WithLabelValues(command).Inc()
}
