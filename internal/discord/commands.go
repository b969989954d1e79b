package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/t77yq/deadline-bot/internal/handler"
	"github.com/t77yq/deadline-bot/internal/model"
)

// ApplicationCommands are the slash commands registered by the bot
var ApplicationCommands = []*discordgo.ApplicationCommand{
	{
		Name:        handler.CommandDeadline,
		Description: "Set a deadline for this channel",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        handler.OptionDate,
				Description: "Deadline date (DD-MM-YYYY)",
				Required:    true,
			},
		},
	},
	{
		Name:        handler.CommandClearDeadline,
		Description: "Clear the deadline for this channel",
	},
}

// commandFromInteraction converts a slash command interaction.
// It returns nil for any other interaction type.
func commandFromInteraction(i *discordgo.InteractionCreate) *model.Command {
	if i.Interaction == nil || i.Type != discordgo.InteractionApplicationCommand {
		return nil
	}

	data := i.ApplicationCommandData()
	cmd := &model.Command{
		Name:      data.Name,
		ChannelID: i.ChannelID,
		Options:   make(map[string]string, len(data.Options)),
	}

	switch {
	case i.Member != nil && i.Member.User != nil:
		cmd.UserID = i.Member.User.ID
	case i.User != nil:
		cmd.UserID = i.User.ID
	}

	for _, opt := range data.Options {
		if opt.Value != nil {
			cmd.Options[opt.Name] = fmt.Sprint(opt.Value)
		}
	}

	return cmd
}
