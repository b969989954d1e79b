package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t77yq/deadline-bot/internal/progress"
	"github.com/t77yq/deadline-bot/internal/scheduler"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DEADLINEBOT_DISCORD_TOKEN", "")
	t.Setenv("DISCORD_BOT_TOKEN", "")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "deadline-bot", cfg.App.Name)
	assert.Equal(t, "deadlines.json", cfg.Storage.SnapshotPath)
	assert.Equal(t, scheduler.DefaultInterval, cfg.Scheduler.Interval)
	assert.Equal(t, scheduler.DefaultBarWidth, cfg.Scheduler.BarWidth)
	assert.Equal(t, string(scheduler.DefaultBarStyle), cfg.Scheduler.BarStyle)
	assert.False(t, cfg.Scheduler.PurgeOrphans)
	assert.Equal(t, "@daily", cfg.History.PruneSchedule)
	assert.Empty(t, cfg.NATS.URL)
	assert.ErrorIs(t, cfg.Validate(), ErrMissingToken)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("DEADLINEBOT_DISCORD_TOKEN", "")
	t.Setenv("DISCORD_BOT_TOKEN", "")
	dir := writeConfig(t, `
app:
  name: test-bot
discord:
  token: file-token
  guild_id: "42"
scheduler:
  interval: 15m
  bar_width: 10
  bar_style: emoji
  purge_orphans: true
nats:
  url: nats://localhost:4222
  reconnect_wait: 1s
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "test-bot", cfg.App.Name)
	assert.Equal(t, "file-token", cfg.Discord.Token)
	assert.Equal(t, "42", cfg.Discord.GuildID)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, time.Second, cfg.NATS.ReconnectWait)

	sc := cfg.SchedulerConfig()
	assert.Equal(t, 15*time.Minute, sc.Interval)
	assert.Equal(t, 10, sc.BarWidth)
	assert.Equal(t, progress.StyleEmoji, sc.BarStyle)
	assert.True(t, sc.PurgeOrphans)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := writeConfig(t, `
discord:
  token: file-token
scheduler:
  interval: 15m
`)
	t.Setenv("DEADLINEBOT_SCHEDULER_INTERVAL", "2h")
	t.Setenv("DEADLINEBOT_DISCORD_TOKEN", "")
	t.Setenv("DISCORD_BOT_TOKEN", "env-token")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, "env-token", cfg.Discord.Token)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := writeConfig(t, "scheduler: [unterminated")

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Discord:   DiscordConfig{Token: "token"},
			Storage:   StorageConfig{SnapshotPath: "deadlines.json", HistoryPath: "history.db"},
			Scheduler: SchedulerConfig{Interval: time.Hour, BarWidth: 20},
			History:   HistoryConfig{Retention: time.Hour, PruneSchedule: "@daily"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero interval", func(c *Config) { c.Scheduler.Interval = 0 }},
		{"zero width", func(c *Config) { c.Scheduler.BarWidth = 0 }},
		{"no snapshot path", func(c *Config) { c.Storage.SnapshotPath = "" }},
		{"bad prune schedule", func(c *Config) { c.History.PruneSchedule = "not a schedule" }},
		{"zero retention", func(c *Config) { c.History.Retention = 0 }},
		{"zero sample interval", func(c *Config) { c.Metrics.Addr = ":9090" }},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("history disabled skips schedule", func(t *testing.T) {
		cfg := valid()
		cfg.Storage.HistoryPath = ""
		cfg.History.PruneSchedule = ""
		assert.NoError(t, cfg.Validate())
	})
}
