package util

import (
	"fmt"
	"time"
)

// DurationToHuman returns human readable format of d, rounded down to seconds.
func DurationToHuman(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	total := int64(d / time.Second)
	hours, minutes, seconds := total/3600, total%3600/60, total%60

	switch {
	case hours > 0:
		return fmt.Sprintf("%02dh %02dm %02ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%02dm %02ds", minutes, seconds)
	default:
		return fmt.Sprintf("%02ds", seconds)
	}
}
