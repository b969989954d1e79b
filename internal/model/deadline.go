package model

import "time"

// DeadlineRecord is the persisted state of one channel's deadline
type DeadlineRecord struct {
	ChannelID       string    `json:"channel_id"`
	TargetTime      time.Time `json:"target_time"`
	CreatedTime     time.Time `json:"created_time"`
	StatusMessageID string    `json:"status_message_id"`
}

// Total returns the full span the deadline covers
func (r *DeadlineRecord) Total() time.Duration {
	return r.TargetTime.Sub(r.CreatedTime)
}

// Elapsed returns how much of the span has passed at now
func (r *DeadlineRecord) Elapsed(now time.Time) time.Duration {
	return now.Sub(r.CreatedTime)
}

// Reached reports whether the deadline has passed at now
func (r *DeadlineRecord) Reached(now time.Time) bool {
	return r.Elapsed(now) >= r.Total()
}
