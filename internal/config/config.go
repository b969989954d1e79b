// Package config loads the bot configuration from file, environment and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/t77yq/deadline-bot/internal/progress"
	"github.com/t77yq/deadline-bot/internal/scheduler"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "DEADLINEBOT"

// ErrMissingToken is returned when no bot token is configured
var ErrMissingToken = errors.New("discord token is required")

// Config is the complete bot configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Discord   DiscordConfig   `mapstructure:"discord"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	History   HistoryConfig   `mapstructure:"history"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
}

type DiscordConfig struct {
	Token string `mapstructure:"token"`
	// GuildID registers commands in one guild instead of globally
	GuildID string `mapstructure:"guild_id"`
}

type StorageConfig struct {
	SnapshotPath string `mapstructure:"snapshot_path"`
	// HistoryPath disables the event history when empty
	HistoryPath string `mapstructure:"history_path"`
}

type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	BarWidth     int           `mapstructure:"bar_width"`
	BarStyle     string        `mapstructure:"bar_style"`
	PurgeOrphans bool          `mapstructure:"purge_orphans"`
}

type HistoryConfig struct {
	Retention     time.Duration `mapstructure:"retention"`
	PruneSchedule string        `mapstructure:"prune_schedule"`
}

// NATSConfig configures the event stream. An empty URL disables publishing.
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr           string        `mapstructure:"addr"`
	SampleInterval time.Duration `mapstructure:"sample_interval"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "deadline-bot")
	v.SetDefault("discord.token", "")
	v.SetDefault("discord.guild_id", "")
	v.SetDefault("storage.snapshot_path", "deadlines.json")
	v.SetDefault("storage.history_path", "deadline_history.db")
	v.SetDefault("scheduler.interval", scheduler.DefaultInterval)
	v.SetDefault("scheduler.bar_width", scheduler.DefaultBarWidth)
	v.SetDefault("scheduler.bar_style", string(scheduler.DefaultBarStyle))
	v.SetDefault("scheduler.purge_orphans", false)
	v.SetDefault("history.retention", 30*24*time.Hour)
	v.SetDefault("history.prune_schedule", "@daily")
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("nats.connect_timeout", 5*time.Second)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.sample_interval", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads config.yaml from the given directories (./config and . when none
// are given), then applies environment overrides. A missing file is not an error.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./config", "."}
	}
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("discord.token", EnvPrefix+"_DISCORD_TOKEN", "DISCORD_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind token env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings the bot cannot run without
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Discord.Token) == "" {
		return ErrMissingToken
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive, got %s", c.Scheduler.Interval)
	}
	if c.Scheduler.BarWidth <= 0 {
		return fmt.Errorf("scheduler.bar_width must be positive, got %d", c.Scheduler.BarWidth)
	}
	if c.Storage.SnapshotPath == "" {
		return fmt.Errorf("storage.snapshot_path is required")
	}
	if c.Storage.HistoryPath != "" {
		if c.History.Retention <= 0 {
			return fmt.Errorf("history.retention must be positive, got %s", c.History.Retention)
		}
		if _, err := scheduler.ParseCronExpression(c.History.PruneSchedule); err != nil {
			return fmt.Errorf("history.prune_schedule: %w", err)
		}
	}
	if c.Metrics.Addr != "" && c.Metrics.SampleInterval <= 0 {
		return fmt.Errorf("metrics.sample_interval must be positive, got %s", c.Metrics.SampleInterval)
	}
	return nil
}

// SchedulerConfig converts the settings into a scheduler configuration
func (c *Config) SchedulerConfig() scheduler.Config {
	return scheduler.Config{
		Interval:     c.Scheduler.Interval,
		BarWidth:     c.Scheduler.BarWidth,
		BarStyle:     progress.ParseStyle(c.Scheduler.BarStyle),
		PurgeOrphans: c.Scheduler.PurgeOrphans,
	}
}
