package monitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/t77yq/deadline-bot/internal/model"
)

type fixedCounter struct {
	n       atomic.Int64
	running atomic.Int64
}

func (c *fixedCounter) ActiveCount() int {
	return int(c.n.Load())
}

func (c *fixedCounter) RunningCount() int {
	return int(c.running.Load())
}

func TestStatsCollector_Collect(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	counter := &fixedCounter{}
	counter.n.Store(3)
	counter.running.Store(2)

	collector := NewStatsCollector(counter, metrics, time.Minute, zap.NewNop())
	stats := collector.Collect()

	assert.Equal(t, 3, stats.ActiveDeadlines)
	assert.Equal(t, 2, stats.RunningTasks)
	assert.GreaterOrEqual(t, stats.CPUUsage, 0.0)
	assert.LessOrEqual(t, stats.CPUUsage, 100.0)
	assert.GreaterOrEqual(t, stats.MemoryUsage, 0.0)
	assert.LessOrEqual(t, stats.MemoryUsage, 100.0)
	assert.False(t, stats.Timestamp.IsZero())

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ActiveDeadlines))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RunningTasks))
	assert.Equal(t, stats, collector.lastSample())
}

func TestStatsCollector_Loop(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	counter := &fixedCounter{}

	collector := NewStatsCollector(counter, metrics, 20*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, collector.Start(ctx))
	defer collector.Stop()

	counter.n.Store(5)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.ActiveDeadlines) == 5
	}, 2*time.Second, 10*time.Millisecond)

	collector.Stop()
	collector.Stop()
}

func TestStatsCollector_RejectsInvalidInterval(t *testing.T) {
	collector := NewStatsCollector(&fixedCounter{}, NewMetrics(prometheus.NewRegistry()), 0, zap.NewNop())
	assert.Error(t, collector.Start(context.Background()))
}

func TestMetrics_Emit(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	for _, eventType := range []model.DeadlineEventType{
		model.DeadlineEventCreated,
		model.DeadlineEventProgress,
		model.DeadlineEventProgress,
		model.DeadlineEventReached,
	} {
		require.NoError(t, metrics.Emit(context.Background(), &model.DeadlineEvent{Type: eventType}))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Events.WithLabelValues("progress")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Events.WithLabelValues("reached")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Events.WithLabelValues("abandoned")))
}
