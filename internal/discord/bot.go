package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/t77yq/deadline-bot/internal/model"
)

// commandTimeout bounds a single command including the status message post
const commandTimeout = 30 * time.Second

// CommandRouter answers a command with reply text
type CommandRouter interface {
	Handle(ctx context.Context, cmd *model.Command) string
}

// Bot owns the gateway connection and dispatches slash commands
type Bot struct {
	logger    *zap.Logger
	session   *discordgo.Session
	router    CommandRouter
	guildID   string
	onReady   func()
	readyOnce sync.Once
	removers  []func()
}

// NewBot creates a bot. onReady runs once, after the first gateway Ready event.
func NewBot(session *discordgo.Session, router CommandRouter, guildID string, onReady func(), logger *zap.Logger) *Bot {
	return &Bot{
		logger:  logger.Named("bot"),
		session: session,
		router:  router,
		guildID: guildID,
		onReady: onReady,
	}
}

// Open connects to the gateway and registers the slash commands
func (b *Bot) Open() error {
	b.removers = append(b.removers,
		b.session.AddHandler(b.handleReady),
		b.session.AddHandler(b.handleInteraction),
	)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	appID := b.session.State.User.ID
	if _, err := b.session.ApplicationCommandBulkOverwrite(appID, b.guildID, ApplicationCommands); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	b.logger.Info("Registered commands",
		zap.String("guild_id", b.guildID),
		zap.Int("count", len(ApplicationCommands)))
	return nil
}

// Close disconnects from the gateway
func (b *Bot) Close() error {
	for _, remove := range b.removers {
		remove()
	}
	b.removers = nil
	return b.session.Close()
}

func (b *Bot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("Connected to gateway",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)))

	b.readyOnce.Do(func() {
		if b.onReady != nil {
			b.onReady()
		}
	})
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	cmd := commandFromInteraction(i)
	if cmd == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}, discordgo.WithContext(ctx))
	if err != nil {
		b.logger.Error("Failed to acknowledge command",
			zap.String("name", cmd.Name),
			zap.String("channel_id", cmd.ChannelID),
			zap.Error(err))
		return
	}

	reply := b.router.Handle(ctx, cmd)

	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &reply}, discordgo.WithContext(ctx)); err != nil {
		b.logger.Error("Failed to send command reply",
			zap.String("name", cmd.Name),
			zap.String("channel_id", cmd.ChannelID),
			zap.Error(err))
	}
}
