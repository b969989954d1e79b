package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/t77yq/deadline-bot/internal/config"
	"github.com/t77yq/deadline-bot/internal/discord"
	"github.com/t77yq/deadline-bot/internal/handler"
	"github.com/t77yq/deadline-bot/internal/monitor"
	"github.com/t77yq/deadline-bot/internal/scheduler"
	"github.com/t77yq/deadline-bot/internal/service"
	"github.com/t77yq/deadline-bot/internal/storage"
)

const (
	natsConnectRetries = 5
	shutdownTimeout    = 10 * time.Second
	pruneJobName       = "prune-history"
)

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zapConfig.Level = level

	return zapConfig.Build()
}

func connectNATS(cfg *config.Config, logger *zap.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(cfg.App.Name),
		nats.MaxReconnects(cfg.NATS.MaxReconnects),
		nats.ReconnectWait(cfg.NATS.ReconnectWait),
		nats.Timeout(cfg.NATS.ConnectTimeout),
		nats.PingInterval(20 * time.Second),
		nats.MaxPingsOutstanding(5),
		nats.DrainTimeout(10 * time.Second),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			fields := []zap.Field{zap.Error(err)}
			if sub != nil {
				fields = append(fields, zap.String("subject", sub.Subject))
			}
			logger.Error("NATS connection error", fields...)
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	var nc *nats.Conn
	var err error
	for i := 0; i < natsConnectRetries; i++ {
		nc, err = nats.Connect(cfg.NATS.URL, opts...)
		if err == nil {
			break
		}
		logger.Warn("Failed to connect to NATS, retrying...",
			zap.Int("attempt", i+1),
			zap.Error(err))
		time.Sleep(time.Second * time.Duration(i+1))
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Connected to NATS successfully", zap.String("url", nc.ConnectedUrl()))
	return nc, nil
}

func main() {
	configDir := flag.String("config", "", "directory containing config.yaml")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	var paths []string
	if *configDir != "" {
		paths = append(paths, *configDir)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var sinks []scheduler.EventSink

	// Metrics
	var metrics *monitor.Metrics
	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = monitor.NewMetrics(registry)
		sinks = append(sinks, metrics)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
		logger.Info("Serving metrics", zap.String("addr", cfg.Metrics.Addr))
	}

	// Event history
	var history *storage.SQLiteHistory
	if cfg.Storage.HistoryPath != "" {
		history, err = storage.NewSQLiteHistory(logger, cfg.Storage.HistoryPath)
		if err != nil {
			logger.Fatal("Failed to create history storage", zap.Error(err))
		}
		defer history.Close()
		sinks = append(sinks, history)
	}

	// Event stream
	if cfg.NATS.URL != "" {
		nc, err := connectNATS(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to connect to NATS after retries", zap.Error(err))
		}
		defer nc.Drain()

		js, err := nc.JetStream()
		if err != nil {
			logger.Fatal("Failed to create JetStream context", zap.Error(err))
		}

		publisher, err := service.NewEventPublisher(js, logger)
		if err != nil {
			logger.Fatal("Failed to create event publisher", zap.Error(err))
		}
		sinks = append(sinks, publisher)
	}

	// Discord session
	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logger.Fatal("Failed to create Discord session", zap.Error(err))
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	store := storage.NewSnapshotStore(afero.NewOsFs(), cfg.Storage.SnapshotPath, logger)
	deadlines := scheduler.NewDeadlineScheduler(store, discord.NewMessenger(session, logger), cfg.SchedulerConfig(), logger, sinks...)
	if err := deadlines.Load(ctx); err != nil {
		logger.Fatal("Failed to load deadlines", zap.Error(err))
	}

	router := handler.NewDeadlineRouter(deadlines, logger)
	bot := discord.NewBot(session, router, cfg.Discord.GuildID, func() {
		resumed := deadlines.ResumeAll()
		logger.Info("Resumed deadlines", zap.Int("count", resumed))
	}, logger)

	if err := bot.Open(); err != nil {
		logger.Fatal("Failed to start bot", zap.Error(err))
	}

	// Maintenance
	maintenance := scheduler.NewCronScheduler(logger)
	if history != nil {
		job := scheduler.PruneHistoryJob(history, cfg.History.Retention, clockwork.NewRealClock())
		if err := maintenance.AddJob(pruneJobName, cfg.History.PruneSchedule, job); err != nil {
			logger.Fatal("Failed to schedule history pruning", zap.Error(err))
		}
	}
	maintenance.Start()
	if history != nil {
		if err := maintenance.RunNow(pruneJobName); err != nil {
			logger.Warn("Failed to prune history at startup", zap.Error(err))
		}
	}

	var stats *monitor.StatsCollector
	if metrics != nil {
		stats = monitor.NewStatsCollector(deadlines, metrics, cfg.Metrics.SampleInterval, logger)
		if err := stats.Start(ctx); err != nil {
			logger.Fatal("Failed to start stats collector", zap.Error(err))
		}
	}

	logger.Info("Deadline bot running", zap.String("app", cfg.App.Name))

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	if err := bot.Close(); err != nil {
		logger.Warn("Failed to close Discord session", zap.Error(err))
	}
	deadlines.Stop()
	maintenance.Stop()
	if stats != nil {
		stats.Stop()
	}

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to stop metrics server", zap.Error(err))
		}
	}

	logger.Info("Deadline bot shut down gracefully")
}
