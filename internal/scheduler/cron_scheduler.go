package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseCronExpression validates a maintenance job expression.
// Expressions take an optional leading seconds field and accept descriptors like @daily.
func ParseCronExpression(expression string) (cron.Schedule, error) {
	spec, err := cronParser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expression, err)
	}
	return spec, nil
}

// JobFunc is a periodic maintenance job
type JobFunc func(ctx context.Context) error

// CronScheduler runs periodic maintenance jobs such as history pruning
type CronScheduler struct {
	logger   *zap.Logger
	cron     *cron.Cron
	entryIDs sync.Map
	ctx      context.Context
	cancel   context.CancelFunc
}

// cronLogger adapts zap.Logger to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, zap.Any("details", keysAndValues))
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}

// NewCronScheduler creates a new maintenance scheduler
func NewCronScheduler(logger *zap.Logger) *CronScheduler {
	cronLogger := &cronLogger{logger: logger.Named("cron")}
	cronOptions := []cron.Option{
		cron.WithParser(cronParser),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &CronScheduler{
		logger: logger.Named("maintenance"),
		cron:   cron.New(cronOptions...),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start starts running registered jobs
func (s *CronScheduler) Start() {
	s.cron.Start()
	s.logger.Info("Maintenance scheduler started", zap.Strings("jobs", s.jobs()))
}

// Stop stops the scheduler and waits for running jobs
func (s *CronScheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// AddJob registers a named job; an existing job with the same name is replaced
func (s *CronScheduler) AddJob(name, expression string, fn JobFunc) error {
	spec, err := ParseCronExpression(expression)
	if err != nil {
		return err
	}

	if old, ok := s.entryIDs.Load(name); ok {
		s.cron.Remove(old.(cron.EntryID))
	}

	entryID := s.cron.Schedule(spec, &cronJob{scheduler: s, name: name, fn: fn})
	s.entryIDs.Store(name, entryID)

	s.logger.Info("Added maintenance job",
		zap.String("name", name),
		zap.String("expression", expression),
		zap.Time("next_run", spec.Next(time.Now())))

	return nil
}

// removeJob removes a named job
func (s *CronScheduler) removeJob(name string) error {
	entryIDVal, ok := s.entryIDs.LoadAndDelete(name)
	if !ok {
		return fmt.Errorf("maintenance job not found: %s", name)
	}

	s.cron.Remove(entryIDVal.(cron.EntryID))
	s.logger.Info("Removed maintenance job", zap.String("name", name))
	return nil
}

// RunNow runs a named job synchronously
func (s *CronScheduler) RunNow(name string) error {
	entryIDVal, ok := s.entryIDs.Load(name)
	if !ok {
		return fmt.Errorf("maintenance job not found: %s", name)
	}

	s.cron.Entry(entryIDVal.(cron.EntryID)).Job.Run()
	return nil
}

// jobs lists the registered job names in order
func (s *CronScheduler) jobs() []string {
	var names []string
	s.entryIDs.Range(func(key, value interface{}) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)
	return names
}

// cronJob implements cron.Job
type cronJob struct {
	scheduler *CronScheduler
	name      string
	fn        JobFunc
}

// Run implements cron.Job
func (j *cronJob) Run() {
	start := time.Now()
	if err := j.fn(j.scheduler.ctx); err != nil {
		j.scheduler.logger.Error("Maintenance job failed",
			zap.String("name", j.name),
			zap.Error(err))
		return
	}

	j.scheduler.logger.Debug("Executed maintenance job",
		zap.String("name", j.name),
		zap.Duration("duration", time.Since(start)))
}

// HistoryPruner deletes history older than a cutoff
type HistoryPruner interface {
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// PruneHistoryJob deletes history entries older than retention
func PruneHistoryJob(history HistoryPruner, retention time.Duration, clock clockwork.Clock) JobFunc {
	return func(ctx context.Context) error {
		cutoff := clock.Now().Add(-retention)
		if _, err := history.DeleteBefore(ctx, cutoff); err != nil {
			return fmt.Errorf("failed to prune history before %s: %w", cutoff.Format(time.RFC3339), err)
		}
		return nil
	}
}
