package util

import (
	"fmt"
	"strings"
	"time"
)

// FormatDuration formats a duration as hours, minutes and seconds with
// millisecond precision (e.g., "1 hour, 2 minutes and 3.004 seconds").
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	totalSeconds := int64(d / time.Second)
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	millis := int64(d%time.Second) / int64(time.Millisecond)
	return FormatDurationParts(hours, minutes, seconds, millis)
}

// FormatDurationParts renders pre-split duration components. Hours and
// minutes are omitted when zero; seconds and milliseconds are always shown.
func FormatDurationParts(hours, minutes, seconds, millis int64) string {
	var parts []string
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d hour%s", hours, plural(hours)))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d minute%s", minutes, plural(minutes)))
	}
	parts = append(parts, fmt.Sprintf("%d.%03d second%s", seconds, millis, plural(seconds)))

	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}

func plural(n int64) string {
	if n == 1 {
		return ""
	}
	return "s"
}
