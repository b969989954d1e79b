package scheduler

import (
	"time"

	"github.com/t77yq/deadline-bot/internal/progress"
)

const (
	DefaultInterval = time.Hour
	DefaultBarWidth = 20
	DefaultBarStyle = progress.StyleSmooth

	dateLayout = "2006-01-02"

	colorBlurple = 0x5865F2
	colorGreen   = 0x2ECC71
)
