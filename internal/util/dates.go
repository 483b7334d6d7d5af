package util

import (
	"fmt"
	"math"
	"time"

	"gitorbit/internal/config"
)

// FormatDate renders t as a medium date with a short time in the given clock
func FormatDate(t time.Time, hourFormat config.HourFormat) string {
	if hourFormat == config.Hour12 {
		return t.Format("Jan 2, 2006, 3:04 PM")
	}
	return t.Format("Jan 2, 2006, 15:04")
}

// DifferenceInDays counts calendar days between the dates of a and b
func DifferenceInDays(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Abs(db.Sub(da).Hours()) / 24)
}

// DifferenceInMinutes counts whole minutes between a and b
func DifferenceInMinutes(a, b time.Time) int {
	return int(math.Abs(b.Sub(a).Minutes()))
}

// DaysAgo describes how long before now t was
func DaysAgo(t, now time.Time) string {
	days := DifferenceInDays(t, now)
	minutes := DifferenceInMinutes(t, now)
	hours := int(math.Round(float64(minutes) / 60))

	switch {
	case minutes == 0:
		return "Just now"
	case minutes < 60:
		return fmt.Sprintf("%d minutes ago", minutes)
	case days == 0:
		return fmt.Sprintf("%d hours ago", hours)
	case days == 1:
		return "Yesterday"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}
