package handler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/t77yq/deadline-bot/internal/model"
	"github.com/t77yq/deadline-bot/internal/scheduler"
)

const CommandClearDeadline = "clear_deadline"

// ClearHandler handles the clear_deadline command
type ClearHandler struct {
	logger  *zap.Logger
	service scheduler.DeadlineService
}

// NewClearHandler creates a new clear handler
func NewClearHandler(service scheduler.DeadlineService, logger *zap.Logger) *ClearHandler {
	return &ClearHandler{
		logger:  logger,
		service: service,
	}
}

// Execute removes the channel's deadline
func (h *ClearHandler) Execute(ctx context.Context, cmd *model.Command) (string, error) {
	if err := h.service.Clear(ctx, cmd.ChannelID); err != nil {
		if errors.Is(err, scheduler.ErrNotFound) {
			return "⚠️ No deadline set.", nil
		}
		return "", fmt.Errorf("failed to clear deadline: %w", err)
	}

	return "🧹 Deadline cleared!", nil
}
