package reminder

import (
	"fmt"
	"strings"
	"time"
)

// NoTimeLeft is what Countdown shows once the reminder is due.
const NoTimeLeft = "no time left"

// Countdown renders the time remaining until due. Days, hours and minutes
// are shown when non-zero; seconds only when nothing larger remains.
func Countdown(due, now time.Time) string {
	if !due.After(now) {
		return NoTimeLeft
	}

	total := int64((due.Sub(now) + time.Second - 1) / time.Second)
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60

	if days == 0 && hours == 0 && minutes == 0 {
		return fmt.Sprintf("%ds", seconds)
	}

	parts := make([]string, 0, 3)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	return strings.Join(parts, " ")
}
