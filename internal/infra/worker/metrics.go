package worker

import (
	"blog-tweeter/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the scheduler loop.
// It embeds the standard ConfigMetrics for configuration monitoring.
//
// Embedded metrics (from ConfigMetrics):
//   - bot_config_load_timestamp
//   - bot_config_validation_errors_total
//   - bot_config_fallbacks_total
//   - bot_config_fallback_active
//
// Scheduler metrics:
//   - bot_cycle_runs_total: Cycle runs by status (success/failure) and reason
//   - bot_cycle_duration_seconds: Duration histogram of a cycle
//   - bot_cycle_last_success_timestamp: Unix timestamp of the last successful cycle
//   - bot_cycle_next_run_timestamp: Unix timestamp of the next scheduled cycle
//   - bot_scheduler_state: 1 for the current state, 0 for the others
type WorkerMetrics struct {
	*config.ConfigMetrics

	CycleRunsTotal            *prometheus.CounterVec
	CycleDurationSeconds      prometheus.Histogram
	CycleLastSuccessTimestamp prometheus.Gauge
	CycleNextRunTimestamp     prometheus.Gauge
	SchedulerState            *prometheus.GaugeVec
}

// NewWorkerMetrics creates and registers the scheduler metrics with reg.
// A nil registerer means prometheus.DefaultRegisterer.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("bot", reg),

		CycleRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_cycle_runs_total",
			Help: "Total number of announce cycles by status and reason",
		}, []string{"status", "reason"}),

		CycleDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bot_cycle_duration_seconds",
			Help:    "Duration of announce cycles in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300},
		}),

		CycleLastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bot_cycle_last_success_timestamp",
			Help: "Unix timestamp of the last successful announce cycle",
		}),

		CycleNextRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bot_cycle_next_run_timestamp",
			Help: "Unix timestamp of the next scheduled announce cycle",
		}),

		SchedulerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bot_scheduler_state",
			Help: "Current scheduler state (1 for the active state)",
		}, []string{"state"}),
	}
}

// RecordCycle records one finished cycle.
// reason is "ok" for successful cycles.
func (m *WorkerMetrics) RecordCycle(status, reason string, seconds float64) {
	m.CycleRunsTotal.WithLabelValues(status, reason).Inc()
	m.CycleDurationSeconds.Observe(seconds)
}

// RecordLastSuccess records the current time as the last successful cycle.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.CycleLastSuccessTimestamp.SetToCurrentTime()
}

// SetNextRun records when the next cycle is due, as a Unix timestamp.
func (m *WorkerMetrics) SetNextRun(unix int64) {
	m.CycleNextRunTimestamp.Set(float64(unix))
}

// SetState marks state as the active one.
func (m *WorkerMetrics) SetState(state State) {
	for _, s := range States() {
		v := 0.0
		if s == state {
			v = 1
		}
		m.SchedulerState.WithLabelValues(string(s)).Set(v)
	}
}
