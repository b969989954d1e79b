// Package handler turns slash command invocations into scheduler calls and user-facing replies.
package handler

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/t77yq/deadline-bot/internal/model"
	"github.com/t77yq/deadline-bot/internal/scheduler"
)

const (
	replyUnknownCommand = "❓ Unknown command."
	replyStorageFailure = "❌ Could not save the deadline, try again later."
	replyInternalError  = "❌ Something went wrong, try again later."
)

// CommandHandler executes one command and returns the reply text.
// Expected user mistakes are answered with a reply; errors are reserved for failures.
type CommandHandler interface {
	Execute(ctx context.Context, cmd *model.Command) (string, error)
}

// Router dispatches commands to their handlers by name
type Router struct {
	logger   *zap.Logger
	handlers map[string]CommandHandler
}

// NewRouter creates an empty router
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		logger:   logger.Named("commands"),
		handlers: make(map[string]CommandHandler),
	}
}

// NewDeadlineRouter creates a router serving the deadline commands
func NewDeadlineRouter(service scheduler.DeadlineService, logger *zap.Logger) *Router {
	r := NewRouter(logger)
	r.Register(CommandDeadline, NewDeadlineHandler(service, logger))
	r.Register(CommandClearDeadline, NewClearHandler(service, logger))
	return r
}

// Register adds or replaces the handler for a command name
func (r *Router) Register(name string, h CommandHandler) {
	r.handlers[name] = h
}

// names returns the registered command names in order
func (r *Router) names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Handle runs the command and always returns a reply
func (r *Router) Handle(ctx context.Context, cmd *model.Command) string {
	h, ok := r.handlers[cmd.Name]
	if !ok {
		r.logger.Warn("Unknown command", zap.String("name", cmd.Name))
		return replyUnknownCommand
	}

	reply, err := h.Execute(ctx, cmd)
	if err != nil {
		r.logger.Error("Command failed",
			zap.String("name", cmd.Name),
			zap.String("channel_id", cmd.ChannelID),
			zap.Error(err))

		if errors.Is(err, scheduler.ErrStorageFailure) {
			return replyStorageFailure
		}
		return replyInternalError
	}

	return reply
}
