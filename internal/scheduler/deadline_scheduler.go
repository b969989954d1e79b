package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/t77yq/deadline-bot/internal/model"
	"github.com/t77yq/deadline-bot/internal/progress"
)

// Config controls the per-channel polling loop
type Config struct {
	Interval time.Duration
	BarWidth int
	BarStyle progress.Style

	// PurgeOrphans removes the persisted record of a deadline whose status
	// message can no longer be fetched or edited
	PurgeOrphans bool

	Clock clockwork.Clock
}

// taskHandle cancels the polling task of one channel.
// gen distinguishes a task from the one that replaced it.
type taskHandle struct {
	gen    uint64
	cancel context.CancelFunc
}

// DeadlineScheduler owns the channel to deadline mapping and drives one
// polling task per active channel
type DeadlineScheduler struct {
	logger    *zap.Logger
	store     Store
	messenger Messenger
	sinks     []EventSink
	config    Config
	clock     clockwork.Clock

	mu      sync.Mutex
	records map[string]model.DeadlineRecord
	tasks   map[string]*taskHandle
	// running counts live goroutines per channel, including ones already
	// replaced in tasks; only tests read it
	running map[string]int
	nextGen uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDeadlineScheduler creates a scheduler with an empty mapping; call Start to
// load persisted deadlines and resume their tasks
func NewDeadlineScheduler(store Store, messenger Messenger, config Config, logger *zap.Logger, sinks ...EventSink) *DeadlineScheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.BarWidth <= 0 {
		config.BarWidth = DefaultBarWidth
	}
	if config.BarStyle == "" {
		config.BarStyle = DefaultBarStyle
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &DeadlineScheduler{
		logger:    logger.Named("deadline-scheduler"),
		store:     store,
		messenger: messenger,
		sinks:     sinks,
		config:    config,
		clock:     config.Clock,
		records:   make(map[string]model.DeadlineRecord),
		tasks:     make(map[string]*taskHandle),
		running:   make(map[string]int),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start loads the persisted deadlines and resumes a task for each of them
func (s *DeadlineScheduler) Start(ctx context.Context) error {
	if err := s.Load(ctx); err != nil {
		return err
	}

	resumed := s.ResumeAll()
	s.logger.Info("Deadline scheduler started", zap.Int("resumed", resumed))
	return nil
}

// Stop cancels every polling task and waits for them to return
func (s *DeadlineScheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	s.logger.Info("Deadline scheduler stopped")
}

// Load replaces the in-memory mapping with the persisted snapshot
func (s *DeadlineScheduler) Load(ctx context.Context) error {
	records, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to load deadlines: %w", ErrStorageFailure, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]model.DeadlineRecord, len(records))
	for channelID, record := range records {
		record.ChannelID = channelID
		s.records[channelID] = record
	}

	s.logger.Info("Loaded deadlines", zap.Int("count", len(s.records)))
	return nil
}

// ResumeAll starts a polling task for every loaded deadline that has none.
// Status messages are reused, not re-posted.
func (s *DeadlineScheduler) ResumeAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	resumed := 0
	for _, channelID := range s.channelsLocked() {
		if _, ok := s.tasks[channelID]; ok {
			continue
		}
		s.logger.Info("Resuming deadline", zap.String("channel_id", channelID))
		s.startLocked(s.records[channelID])
		resumed++
	}
	return resumed
}

// Create registers a deadline for the channel, replacing any existing one
func (s *DeadlineScheduler) Create(ctx context.Context, channelID string, target time.Time) (*model.DeadlineRecord, error) {
	now := s.clock.Now()
	if !target.After(now) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDeadline, target.Format(dateLayout))
	}

	messageID, err := s.messenger.PostMessage(ctx, channelID, placeholderMessage(target))
	if err != nil {
		return nil, fmt.Errorf("failed to post status message: %w", err)
	}

	record := model.DeadlineRecord{
		ChannelID:       channelID,
		TargetTime:      target,
		CreatedTime:     now,
		StatusMessageID: messageID,
	}

	s.mu.Lock()
	previous, hadPrevious := s.records[channelID]
	s.records[channelID] = record
	if err := s.persistLocked(ctx); err != nil {
		if hadPrevious {
			s.records[channelID] = previous
		} else {
			delete(s.records, channelID)
		}
		s.mu.Unlock()
		return nil, err
	}
	s.startLocked(record)
	s.mu.Unlock()

	s.logger.Info("Created deadline",
		zap.String("channel_id", channelID),
		zap.String("message_id", messageID),
		zap.Time("target", target),
		zap.Bool("replaced", hadPrevious))

	s.emit(ctx, &record, model.DeadlineEventCreated, 0, nil)
	return &record, nil
}

// Clear removes the channel's deadline and cancels its polling task
func (s *DeadlineScheduler) Clear(ctx context.Context, channelID string) error {
	s.mu.Lock()
	record, ok := s.records[channelID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: channel %s", ErrNotFound, channelID)
	}

	delete(s.records, channelID)
	if err := s.persistLocked(ctx); err != nil {
		s.records[channelID] = record
		s.mu.Unlock()
		return err
	}
	if h, ok := s.tasks[channelID]; ok {
		h.cancel()
		delete(s.tasks, channelID)
	}
	s.mu.Unlock()

	s.logger.Info("Cleared deadline", zap.String("channel_id", channelID))

	s.emit(ctx, &record, model.DeadlineEventCleared, s.percentAt(&record), nil)
	return nil
}

// Get returns a copy of the channel's deadline
func (s *DeadlineScheduler) Get(channelID string) (*model.DeadlineRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[channelID]
	if !ok {
		return nil, false
	}
	return &record, true
}

// ActiveCount returns the number of stored deadlines, including ones whose
// task was abandoned
func (s *DeadlineScheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// RunningCount returns the number of deadlines with a live polling task
func (s *DeadlineScheduler) RunningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *DeadlineScheduler) channelsLocked() []string {
	channels := make([]string, 0, len(s.records))
	for channelID := range s.records {
		channels = append(channels, channelID)
	}
	sort.Strings(channels)
	return channels
}

// startLocked replaces the channel's task with a new one for record
func (s *DeadlineScheduler) startLocked(record model.DeadlineRecord) {
	if h, ok := s.tasks[record.ChannelID]; ok {
		h.cancel()
	}

	s.nextGen++
	ctx, cancel := context.WithCancel(s.ctx)
	h := &taskHandle{gen: s.nextGen, cancel: cancel}
	s.tasks[record.ChannelID] = h
	s.running[record.ChannelID]++

	s.wg.Add(1)
	go s.run(ctx, record, h.gen)
}

func (s *DeadlineScheduler) persistLocked(ctx context.Context) error {
	snapshot := make(map[string]model.DeadlineRecord, len(s.records))
	for channelID, record := range s.records {
		snapshot[channelID] = record
	}

	if err := s.store.Save(ctx, snapshot); err != nil {
		s.logger.Error("Failed to save deadlines", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return nil
}

// owns reports whether the task with gen is still the channel's current task
func (s *DeadlineScheduler) owns(ctx context.Context, channelID string, gen uint64) bool {
	if ctx.Err() != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.tasks[channelID]
	return ok && h.gen == gen
}

// run is the polling loop of one channel
func (s *DeadlineScheduler) run(ctx context.Context, record model.DeadlineRecord, gen uint64) {
	defer s.finish(record.ChannelID, gen)

	logger := s.logger.With(
		zap.String("channel_id", record.ChannelID),
		zap.String("message_id", record.StatusMessageID))

	for {
		if !s.owns(ctx, record.ChannelID, gen) {
			logger.Debug("Deadline task no longer current")
			return
		}

		done, err := s.tick(ctx, &record, gen)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.abandon(ctx, &record, gen, err)
			return
		}
		if done {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(s.config.Interval):
		}
	}
}

// tick refreshes the status message once and reports whether the deadline reached its terminal state
func (s *DeadlineScheduler) tick(ctx context.Context, record *model.DeadlineRecord, gen uint64) (bool, error) {
	if err := s.messenger.FetchMessage(ctx, record.ChannelID, record.StatusMessageID); err != nil {
		return false, fmt.Errorf("failed to fetch status message: %w", err)
	}

	now := s.clock.Now()
	if record.Reached(now) {
		if err := s.messenger.EditMessage(ctx, record.ChannelID, record.StatusMessageID, reachedMessage(record.TargetTime)); err != nil {
			return false, fmt.Errorf("failed to edit status message: %w", err)
		}
		if s.retire(ctx, record, gen) {
			s.emit(ctx, record, model.DeadlineEventReached, 100, nil)
		}
		return true, nil
	}

	bar, percent := progress.Render(
		record.Elapsed(now).Seconds(),
		record.Total().Seconds(),
		s.config.BarWidth,
		s.config.BarStyle)

	if err := s.messenger.EditMessage(ctx, record.ChannelID, record.StatusMessageID, progressMessage(record.TargetTime, now, bar, percent)); err != nil {
		return false, fmt.Errorf("failed to edit status message: %w", err)
	}

	s.emit(ctx, record, model.DeadlineEventProgress, percent, nil)
	return false, nil
}

// retire deletes a reached deadline if gen still owns the channel
func (s *DeadlineScheduler) retire(ctx context.Context, record *model.DeadlineRecord, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.tasks[record.ChannelID]
	if !ok || h.gen != gen {
		return false
	}

	delete(s.tasks, record.ChannelID)
	delete(s.records, record.ChannelID)
	if err := s.persistLocked(ctx); err != nil {
		// kept in memory so the next start resolves it again
		s.records[record.ChannelID] = *record
		s.logger.Error("Failed to retire deadline",
			zap.String("channel_id", record.ChannelID),
			zap.Error(err))
		return false
	}

	s.logger.Info("Deadline reached",
		zap.String("channel_id", record.ChannelID),
		zap.Time("target", record.TargetTime))
	return true
}

// abandon ends a task whose status message is unavailable
func (s *DeadlineScheduler) abandon(ctx context.Context, record *model.DeadlineRecord, gen uint64, cause error) {
	s.logger.Warn("Abandoning deadline task",
		zap.String("channel_id", record.ChannelID),
		zap.String("message_id", record.StatusMessageID),
		zap.Bool("purge", s.config.PurgeOrphans),
		zap.Error(cause))

	s.mu.Lock()
	h, ok := s.tasks[record.ChannelID]
	if !ok || h.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.tasks, record.ChannelID)

	if s.config.PurgeOrphans {
		delete(s.records, record.ChannelID)
		if err := s.persistLocked(ctx); err != nil {
			s.records[record.ChannelID] = *record
		}
	}
	s.mu.Unlock()

	s.emit(ctx, record, model.DeadlineEventAbandoned, s.percentAt(record), cause)
}

func (s *DeadlineScheduler) finish(channelID string, gen uint64) {
	s.mu.Lock()
	if h, ok := s.tasks[channelID]; ok && h.gen == gen {
		h.cancel()
		delete(s.tasks, channelID)
	}
	s.running[channelID]--
	if s.running[channelID] <= 0 {
		delete(s.running, channelID)
	}
	s.mu.Unlock()

	s.wg.Done()
}

// runningTasks returns how many polling goroutines exist for the channel
func (s *DeadlineScheduler) runningTasks(channelID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[channelID]
}

func (s *DeadlineScheduler) percentAt(record *model.DeadlineRecord) float64 {
	return progress.Fraction(record.Elapsed(s.clock.Now()).Seconds(), record.Total().Seconds()) * 100
}

func (s *DeadlineScheduler) emit(ctx context.Context, record *model.DeadlineRecord, eventType model.DeadlineEventType, percent float64, cause error) {
	if len(s.sinks) == 0 {
		return
	}

	event := &model.DeadlineEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		ChannelID:  record.ChannelID,
		MessageID:  record.StatusMessageID,
		TargetTime: record.TargetTime,
		Percent:    percent,
		OccurredAt: s.clock.Now(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}

	for _, sink := range s.sinks {
		if err := sink.Emit(ctx, event); err != nil {
			s.logger.Warn("Failed to emit deadline event",
				zap.String("type", string(eventType)),
				zap.String("channel_id", record.ChannelID),
				zap.Error(err))
		}
	}
}
