package discord

import (
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t77yq/deadline-bot/internal/handler"
	"github.com/t77yq/deadline-bot/internal/model"
	"github.com/t77yq/deadline-bot/internal/scheduler"
)

func restError(status int, code int) *discordgo.RESTError {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status, Status: http.StatusText(status)},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: "error"},
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		gone bool
	}{
		{"unknown message", restError(http.StatusNotFound, discordgo.ErrCodeUnknownMessage), true},
		{"unknown channel", restError(http.StatusNotFound, discordgo.ErrCodeUnknownChannel), true},
		{"plain 404", restError(http.StatusNotFound, 0), true},
		{"forbidden", restError(http.StatusForbidden, discordgo.ErrCodeMissingAccess), false},
		{"server error", restError(http.StatusInternalServerError, 0), false},
		{"network", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapError(tt.err)
			assert.Equal(t, tt.gone, errors.Is(mapped, scheduler.ErrMessageGone))
			assert.ErrorIs(t, mapped, tt.err)
		})
	}
}

func TestToMessageSend(t *testing.T) {
	msg := &model.Message{
		Embed: &model.Embed{
			Title: "⏳ Deadline Progress",
			Color: 0x5865F2,
			Fields: []model.EmbedField{
				{Name: "📅 Deadline", Value: "2026-10-20"},
				{Name: "⏳ Time Left", Value: "3 days", Inline: true},
			},
		},
	}

	send := toMessageSend(msg)
	assert.Empty(t, send.Content)
	require.Len(t, send.Embeds, 1)

	embed := send.Embeds[0]
	assert.Equal(t, "⏳ Deadline Progress", embed.Title)
	assert.Equal(t, 0x5865F2, embed.Color)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "2026-10-20", embed.Fields[0].Value)
	assert.True(t, embed.Fields[1].Inline)
}

func TestToMessageEdit(t *testing.T) {
	t.Run("embed replaces placeholder text", func(t *testing.T) {
		edit := toMessageEdit("c1", "m1", &model.Message{Embed: &model.Embed{Title: "🎉 Deadline Reached!"}})

		assert.Equal(t, "c1", edit.Channel)
		assert.Equal(t, "m1", edit.ID)
		require.NotNil(t, edit.Content)
		assert.Empty(t, *edit.Content)
		require.NotNil(t, edit.Embeds)
		require.Len(t, *edit.Embeds, 1)
		assert.Equal(t, "🎉 Deadline Reached!", (*edit.Embeds)[0].Title)
	})

	t.Run("text clears embeds", func(t *testing.T) {
		edit := toMessageEdit("c1", "m1", &model.Message{Content: "⏳ Creating deadline for 20-10-2026..."})

		require.NotNil(t, edit.Content)
		assert.Equal(t, "⏳ Creating deadline for 20-10-2026...", *edit.Content)
		require.NotNil(t, edit.Embeds)
		assert.Empty(t, *edit.Embeds)
	})
}

func TestCommandFromInteraction(t *testing.T) {
	t.Run("guild command", func(t *testing.T) {
		i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			ChannelID: "c1",
			Member:    &discordgo.Member{User: &discordgo.User{ID: "u1"}},
			Data: discordgo.ApplicationCommandInteractionData{
				Name: handler.CommandDeadline,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: handler.OptionDate, Type: discordgo.ApplicationCommandOptionString, Value: "20-10-2026"},
				},
			},
		}}

		cmd := commandFromInteraction(i)
		require.NotNil(t, cmd)
		assert.Equal(t, handler.CommandDeadline, cmd.Name)
		assert.Equal(t, "c1", cmd.ChannelID)
		assert.Equal(t, "u1", cmd.UserID)
		assert.Equal(t, "20-10-2026", cmd.Option(handler.OptionDate))
	})

	t.Run("direct message", func(t *testing.T) {
		i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			ChannelID: "dm",
			User:      &discordgo.User{ID: "u2"},
			Data:      discordgo.ApplicationCommandInteractionData{Name: handler.CommandClearDeadline},
		}}

		cmd := commandFromInteraction(i)
		require.NotNil(t, cmd)
		assert.Equal(t, "u2", cmd.UserID)
		assert.Empty(t, cmd.Options)
	})

	t.Run("other interaction", func(t *testing.T) {
		i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionPing,
		}}
		assert.Nil(t, commandFromInteraction(i))
	})
}

func TestApplicationCommands(t *testing.T) {
	names := make([]string, 0, len(ApplicationCommands))
	for _, c := range ApplicationCommands {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{handler.CommandDeadline, handler.CommandClearDeadline}, names)

	require.Len(t, ApplicationCommands[0].Options, 1)
	assert.True(t, ApplicationCommands[0].Options[0].Required)
}
