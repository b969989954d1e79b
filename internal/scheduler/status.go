package scheduler

import (
	"fmt"
	"math"
	"time"

	"github.com/t77yq/deadline-bot/internal/model"
)

const (
	fieldDeadline = "📅 Deadline"
	fieldProgress = "📊 Progress"
	fieldTimeLeft = "⏳ Time Left"

	titleProgress = "⏳ Deadline Progress"
	titleReached  = "🎉 Deadline Reached!"
)

func placeholderMessage(target time.Time) *model.Message {
	return &model.Message{
		Content: fmt.Sprintf("⏳ Creating deadline for %s...", target.Format("02-01-2006")),
	}
}

func progressMessage(target, now time.Time, bar string, percent float64) *model.Message {
	return &model.Message{
		Embed: &model.Embed{
			Title: titleProgress,
			Color: colorBlurple,
			Fields: []model.EmbedField{
				{Name: fieldDeadline, Value: fmt.Sprintf("`%s`", target.Format(dateLayout))},
				{Name: fieldProgress, Value: fmt.Sprintf("```%s  %.2f%%```", bar, percent)},
				{Name: fieldTimeLeft, Value: fmt.Sprintf("`%d days`", daysLeft(target, now)), Inline: true},
			},
		},
	}
}

func reachedMessage(target time.Time) *model.Message {
	return &model.Message{
		Embed: &model.Embed{
			Title:       titleReached,
			Description: fmt.Sprintf("**%s** has arrived!", target.Format(dateLayout)),
			Color:       colorGreen,
		},
	}
}

// daysLeft is the whole number of days until target, rounded down
func daysLeft(target, now time.Time) int {
	return int(math.Floor(target.Sub(now).Hours() / 24))
}
