package model

// Command is a slash command invocation received from the chat platform
type Command struct {
	Name      string            `json:"name"`
	ChannelID string            `json:"channel_id"`
	UserID    string            `json:"user_id,omitempty"`
	Options   map[string]string `json:"options,omitempty"`
}

// Option returns the named option value, or "" when absent
func (c *Command) Option(name string) string {
	if c.Options == nil {
		return ""
	}
	return c.Options[name]
}
