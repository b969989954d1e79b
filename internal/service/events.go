// Package service publishes deadline lifecycle events on NATS JetStream.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/t77yq/deadline-bot/internal/model"
)

const (
	EventStreamName    = "DEADLINES"
	EventSubjectPrefix = "deadline."
	eventSubjects      = EventSubjectPrefix + "*"
	eventStreamMaxAge  = 7 * 24 * time.Hour
)

// EventPublisher publishes deadline events to JetStream
type EventPublisher struct {
	js     nats.JetStreamContext
	logger *zap.Logger
}

// NewEventPublisher creates a publisher and makes sure the event stream exists
func NewEventPublisher(js nats.JetStreamContext, logger *zap.Logger) (*EventPublisher, error) {
	p := &EventPublisher{
		js:     js,
		logger: logger.Named("events"),
	}

	if err := p.setupStream(); err != nil {
		return nil, fmt.Errorf("failed to setup event stream: %w", err)
	}

	return p, nil
}

func (p *EventPublisher) setupStream() error {
	_, err := p.js.StreamInfo(EventStreamName)
	if err == nil {
		p.logger.Info("Using existing event stream", zap.String("name", EventStreamName))
		return nil
	}
	if err != nats.ErrStreamNotFound {
		return fmt.Errorf("failed to get stream info: %w", err)
	}

	_, err = p.js.AddStream(&nats.StreamConfig{
		Name:     EventStreamName,
		Subjects: []string{eventSubjects},
		Storage:  nats.FileStorage,
		MaxAge:   eventStreamMaxAge,
		MaxMsgs:  -1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	p.logger.Info("Created event stream", zap.String("name", EventStreamName))
	return nil
}

// Subject returns the subject an event type is published on
func Subject(eventType model.DeadlineEventType) string {
	return EventSubjectPrefix + string(eventType)
}

// Emit implements scheduler.EventSink
func (p *EventPublisher) Emit(ctx context.Context, event *model.DeadlineEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.Publish(Subject(event.Type), data, nats.Context(ctx), nats.MsgId(event.ID)); err != nil {
		p.logger.Error("Failed to publish event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Error(err))
		return err
	}

	p.logger.Debug("Event published",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("channel_id", event.ChannelID))
	return nil
}

// subscribe delivers every deadline event to handler until ctx is done
func (p *EventPublisher) subscribe(ctx context.Context, handler func(*model.DeadlineEvent)) error {
	sub, err := p.js.Subscribe(eventSubjects, func(msg *nats.Msg) {
		var event model.DeadlineEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			p.logger.Error("Failed to unmarshal event", zap.Error(err))
			msg.Term()
			return
		}

		handler(&event)
		msg.Ack()
	}, nats.ManualAck())
	if err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}

	go func() {
		<-ctx.Done()
		sub.Unsubscribe()
	}()

	return nil
}
