package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// ActiveCounter reports how many deadlines are stored and how many are polled
type ActiveCounter interface {
	ActiveCount() int
	RunningCount() int
}

// Stats is one sample taken by the collector
type Stats struct {
	Timestamp       time.Time `json:"timestamp"`
	CPUUsage        float64   `json:"cpu_usage"`
	MemoryUsage     float64   `json:"memory_usage"`
	ActiveDeadlines int       `json:"active_deadlines"`
	RunningTasks    int       `json:"running_tasks"`
}

// StatsCollector periodically samples host usage and the deadline count into metrics
type StatsCollector struct {
	logger   *zap.Logger
	metrics  *Metrics
	source   ActiveCounter
	interval time.Duration
	mu       sync.RWMutex
	last     Stats
	stop     chan struct{}
	once     sync.Once
}

// NewStatsCollector creates a new stats collector
func NewStatsCollector(source ActiveCounter, metrics *Metrics, interval time.Duration, logger *zap.Logger) *StatsCollector {
	return &StatsCollector{
		logger:   logger.Named("stats-collector"),
		metrics:  metrics,
		source:   source,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start starts the collection loop
func (c *StatsCollector) Start(ctx context.Context) error {
	if c.interval <= 0 {
		return fmt.Errorf("invalid stats interval: %s", c.interval)
	}

	c.logger.Info("Starting stats collector", zap.Duration("interval", c.interval))
	go c.collectLoop(ctx)
	return nil
}

// Stop stops the collection loop
func (c *StatsCollector) Stop() {
	c.once.Do(func() {
		c.logger.Info("Stopping stats collector")
		close(c.stop)
	})
}

func (c *StatsCollector) collectLoop(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Collect()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			c.Collect()
		}
	}
}

// Collect takes one sample and updates the gauges.
// Host usage that cannot be read is left at its previous value.
func (c *StatsCollector) Collect() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.last
	stats.Timestamp = time.Now()
	stats.ActiveDeadlines = c.source.ActiveCount()
	stats.RunningTasks = c.source.RunningCount()

	if cpuPercent, err := cpu.Percent(0, false); err != nil {
		c.logger.Warn("Failed to get CPU usage", zap.Error(err))
	} else if len(cpuPercent) > 0 {
		stats.CPUUsage = cpuPercent[0]
	}

	if memInfo, err := mem.VirtualMemory(); err != nil {
		c.logger.Warn("Failed to get memory usage", zap.Error(err))
	} else {
		stats.MemoryUsage = memInfo.UsedPercent
	}

	c.metrics.ActiveDeadlines.Set(float64(stats.ActiveDeadlines))
	c.metrics.RunningTasks.Set(float64(stats.RunningTasks))
	c.metrics.CPUUsage.Set(stats.CPUUsage)
	c.metrics.MemoryUsage.Set(stats.MemoryUsage)
	c.last = stats

	c.logger.Debug("Stats collected",
		zap.Float64("cpu_usage", stats.CPUUsage),
		zap.Float64("memory_usage", stats.MemoryUsage),
		zap.Int("active_deadlines", stats.ActiveDeadlines),
		zap.Int("running_tasks", stats.RunningTasks))

	return stats
}

// lastSample returns the most recent sample
func (c *StatsCollector) lastSample() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}
