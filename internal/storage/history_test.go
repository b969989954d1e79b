package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/t77yq/deadline-bot/internal/model"
)

func newTestHistory(t *testing.T) *SQLiteHistory {
	t.Helper()

	history, err := NewSQLiteHistory(zap.NewNop(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { history.Close() })
	return history
}

func newEvent(channelID string, eventType model.DeadlineEventType, at time.Time) *model.DeadlineEvent {
	return &model.DeadlineEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		ChannelID:  channelID,
		MessageID:  "m-" + channelID,
		TargetTime: at.Add(48 * time.Hour),
		Percent:    12.5,
		OccurredAt: at,
	}
}

func TestSQLiteHistory_EmitAndList(t *testing.T) {
	history := newTestHistory(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, history.Emit(ctx, newEvent("a", model.DeadlineEventCreated, base)))
	require.NoError(t, history.Emit(ctx, newEvent("a", model.DeadlineEventProgress, base.Add(time.Hour))))
	abandoned := newEvent("b", model.DeadlineEventAbandoned, base.Add(2*time.Hour))
	abandoned.Error = "status message gone"
	require.NoError(t, history.Emit(ctx, abandoned))

	events, err := history.List(ctx, "a", 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.DeadlineEventProgress, events[0].Type)
	assert.Equal(t, model.DeadlineEventCreated, events[1].Type)
	assert.Equal(t, "m-a", events[0].MessageID)
	assert.Equal(t, 12.5, events[0].Percent)
	assert.True(t, events[0].OccurredAt.Equal(base.Add(time.Hour)))

	all, err := history.List(ctx, "", 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "status message gone", all[0].Error)

	page, err := history.List(ctx, "", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, model.DeadlineEventProgress, page[0].Type)

	count, err := history.Count(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteHistory_DeleteBefore(t *testing.T) {
	history := newTestHistory(t)
	ctx := context.Background()
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, history.Emit(ctx, newEvent("c", model.DeadlineEventProgress, base.Add(time.Duration(i)*24*time.Hour))))
	}

	deleted, err := history.DeleteBefore(ctx, base.Add(72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	count, err := history.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSQLiteHistory_ReopenKeepsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	history, err := NewSQLiteHistory(zap.NewNop(), path)
	require.NoError(t, err)
	require.NoError(t, history.Emit(ctx, newEvent("d", model.DeadlineEventReached, time.Now())))
	require.NoError(t, history.Close())

	reopened, err := NewSQLiteHistory(zap.NewNop(), path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
