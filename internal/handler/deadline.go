package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/deadline-bot/internal/model"
	"github.com/t77yq/deadline-bot/internal/scheduler"
)

const (
	CommandDeadline = "deadline"
	OptionDate      = "date"

	// DateLayout is the DD-MM-YYYY format dates are shown in
	DateLayout = "02-01-2006"

	// inputLayout also accepts a day or month without its leading zero
	inputLayout = "2-1-2006"
)

// DeadlineHandler handles the deadline command
type DeadlineHandler struct {
	logger   *zap.Logger
	service  scheduler.DeadlineService
	location *time.Location
}

// NewDeadlineHandler creates a handler parsing dates in local time
func NewDeadlineHandler(service scheduler.DeadlineService, logger *zap.Logger) *DeadlineHandler {
	return &DeadlineHandler{
		logger:   logger,
		service:  service,
		location: time.Local,
	}
}

// Execute parses the date option and registers the deadline
func (h *DeadlineHandler) Execute(ctx context.Context, cmd *model.Command) (string, error) {
	raw := strings.TrimSpace(cmd.Option(OptionDate))

	target, err := time.ParseInLocation(inputLayout, raw, h.location)
	if err != nil {
		h.logger.Debug("Rejected deadline date",
			zap.String("channel_id", cmd.ChannelID),
			zap.String("date", raw))
		return "❌ Use format: DD-MM-YYYY", nil
	}

	if _, err := h.service.Create(ctx, cmd.ChannelID, target); err != nil {
		if errors.Is(err, scheduler.ErrInvalidDeadline) {
			return "❌ Deadline must be in the future.", nil
		}
		return "", fmt.Errorf("failed to create deadline: %w", err)
	}

	return fmt.Sprintf("✅ Deadline set for %s.", target.Format(DateLayout)), nil
}
