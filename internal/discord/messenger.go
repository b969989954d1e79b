// Package discord connects the deadline scheduler to Discord.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/t77yq/deadline-bot/internal/model"
	"github.com/t77yq/deadline-bot/internal/scheduler"
)

// Messenger implements scheduler.Messenger over a Discord session
type Messenger struct {
	logger  *zap.Logger
	session *discordgo.Session
}

// NewMessenger creates a messenger using the given session
func NewMessenger(session *discordgo.Session, logger *zap.Logger) *Messenger {
	return &Messenger{
		logger:  logger.Named("messenger"),
		session: session,
	}
}

// PostMessage implements scheduler.Messenger.PostMessage
func (m *Messenger) PostMessage(ctx context.Context, channelID string, msg *model.Message) (string, error) {
	sent, err := m.session.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return "", mapError(err)
	}

	m.logger.Debug("Posted message",
		zap.String("channel_id", channelID),
		zap.String("message_id", sent.ID))
	return sent.ID, nil
}

// EditMessage implements scheduler.Messenger.EditMessage
func (m *Messenger) EditMessage(ctx context.Context, channelID, messageID string, msg *model.Message) error {
	if _, err := m.session.ChannelMessageEditComplex(toMessageEdit(channelID, messageID, msg), discordgo.WithContext(ctx)); err != nil {
		return mapError(err)
	}
	return nil
}

// FetchMessage implements scheduler.Messenger.FetchMessage
func (m *Messenger) FetchMessage(ctx context.Context, channelID, messageID string) error {
	if _, err := m.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return mapError(err)
	}
	return nil
}

// mapError marks errors for deleted messages and channels as scheduler.ErrMessageGone
func mapError(err error) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}

	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return fmt.Errorf("%w: %w", scheduler.ErrMessageGone, err)
		}
	}
	if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", scheduler.ErrMessageGone, err)
	}
	return err
}

func toEmbed(embed *model.Embed) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(embed.Fields))
	for _, f := range embed.Fields {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}

	return &discordgo.MessageEmbed{
		Title:       embed.Title,
		Description: embed.Description,
		Color:       embed.Color,
		Fields:      fields,
	}
}

func toEmbeds(msg *model.Message) []*discordgo.MessageEmbed {
	if msg.Embed == nil {
		return []*discordgo.MessageEmbed{}
	}
	return []*discordgo.MessageEmbed{toEmbed(msg.Embed)}
}

func toMessageSend(msg *model.Message) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: msg.Content,
		Embeds:  toEmbeds(msg),
	}
}

// toMessageEdit replaces both content and embeds so a placeholder's text does
// not linger once the progress embed is shown
func toMessageEdit(channelID, messageID string, msg *model.Message) *discordgo.MessageEdit {
	return discordgo.NewMessageEdit(channelID, messageID).
		SetContent(msg.Content).
		SetEmbeds(toEmbeds(msg))
}
