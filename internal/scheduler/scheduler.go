package scheduler

import (
	"context"
	"time"

	"github.com/t77yq/deadline-bot/internal/model"
)

// Store persists the full channel to deadline mapping
type Store interface {
	// Load returns every persisted record keyed by channel ID
	Load(ctx context.Context) (map[string]model.DeadlineRecord, error)

	// Save overwrites the persisted mapping
	Save(ctx context.Context, records map[string]model.DeadlineRecord) error
}

// Messenger delivers status messages to the chat platform.
// Implementations wrap ErrMessageGone when a message or channel no longer exists.
type Messenger interface {
	// PostMessage sends a new message and returns its ID
	PostMessage(ctx context.Context, channelID string, msg *model.Message) (string, error)

	// EditMessage replaces the content of an existing message
	EditMessage(ctx context.Context, channelID, messageID string, msg *model.Message) error

	// FetchMessage checks that a message still exists
	FetchMessage(ctx context.Context, channelID, messageID string) error
}

// EventSink receives deadline lifecycle events
type EventSink interface {
	Emit(ctx context.Context, event *model.DeadlineEvent) error
}

// DeadlineService is the command-facing surface of the scheduler
type DeadlineService interface {
	Create(ctx context.Context, channelID string, target time.Time) (*model.DeadlineRecord, error)
	Clear(ctx context.Context, channelID string) error
	Get(channelID string) (*model.DeadlineRecord, bool)
}
