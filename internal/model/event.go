package model

import "time"

// DeadlineEventType represents a lifecycle transition of a deadline
type DeadlineEventType string

const (
	DeadlineEventCreated   DeadlineEventType = "created"
	DeadlineEventProgress  DeadlineEventType = "progress"
	DeadlineEventReached   DeadlineEventType = "reached"
	DeadlineEventCleared   DeadlineEventType = "cleared"
	DeadlineEventAbandoned DeadlineEventType = "abandoned"
)

// DeadlineEvent is emitted by the scheduler on every lifecycle transition
type DeadlineEvent struct {
	ID         string            `json:"id"`
	Type       DeadlineEventType `json:"type"`
	ChannelID  string            `json:"channel_id"`
	MessageID  string            `json:"message_id,omitempty"`
	TargetTime time.Time         `json:"target_time"`
	Percent    float64           `json:"percent"`
	Error      string            `json:"error,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
