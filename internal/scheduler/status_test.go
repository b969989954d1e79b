package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysLeft(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, daysLeft(now.Add(23*time.Hour), now))
	assert.Equal(t, 1, daysLeft(now.Add(24*time.Hour), now))
	assert.Equal(t, 9, daysLeft(now.Add(10*24*time.Hour-time.Minute), now))
	assert.Equal(t, -1, daysLeft(now.Add(-time.Hour), now))
}

func TestProgressMessage(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	target := time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC)

	msg := progressMessage(target, now, "▓▓░░", 33.3333)
	require.NotNil(t, msg.Embed)
	assert.Empty(t, msg.Content)
	assert.Equal(t, colorBlurple, msg.Embed.Color)
	require.Len(t, msg.Embed.Fields, 3)

	assert.Equal(t, "`2026-12-25`", msg.Embed.Fields[0].Value)
	assert.Equal(t, "```▓▓░░  33.33%```", msg.Embed.Fields[1].Value)
	assert.Equal(t, "`68 days`", msg.Embed.Fields[2].Value)
	assert.True(t, msg.Embed.Fields[2].Inline)
	assert.False(t, msg.Embed.Fields[0].Inline)
}

func TestReachedMessage(t *testing.T) {
	msg := reachedMessage(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC))

	require.NotNil(t, msg.Embed)
	assert.Equal(t, titleReached, msg.Embed.Title)
	assert.Equal(t, "**2027-01-01** has arrived!", msg.Embed.Description)
	assert.Equal(t, colorGreen, msg.Embed.Color)
}
