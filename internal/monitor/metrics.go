// Package monitor exposes Prometheus metrics for the deadline bot.
package monitor

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/t77yq/deadline-bot/internal/model"
)

// Metrics holds the bot's Prometheus collectors
type Metrics struct {
	Events          *prometheus.CounterVec
	ActiveDeadlines prometheus.Gauge
	RunningTasks    prometheus.Gauge
	CPUUsage        prometheus.Gauge
	MemoryUsage     prometheus.Gauge
}

// NewMetrics registers the collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "deadline_events_total",
			Help: "Deadline lifecycle events by type",
		}, []string{"type"}),
		ActiveDeadlines: factory.NewGauge(prometheus.GaugeOpts{
			Name: "deadline_active",
			Help: "Number of stored deadlines, including abandoned ones",
		}),
		RunningTasks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "deadline_tasks_running",
			Help: "Number of deadlines with a live polling task",
		}),
		CPUUsage: factory.NewGauge(prometheus.GaugeOpts{
			Name: "deadline_bot_host_cpu_percent",
			Help: "Host CPU usage percent at the last sample",
		}),
		MemoryUsage: factory.NewGauge(prometheus.GaugeOpts{
			Name: "deadline_bot_host_memory_percent",
			Help: "Host memory usage percent at the last sample",
		}),
	}
}

// Emit implements scheduler.EventSink
func (m *Metrics) Emit(ctx context.Context, event *model.DeadlineEvent) error {
	m.Events.WithLabelValues(string(event.Type)).Inc()
	return nil
}
