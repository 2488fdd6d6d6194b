// Package timeutil provides world-time conversions. World time is an integer
// second count owned by the host calendar, not wall-clock time.
package timeutil

import "fmt"

// Units of world time in seconds.
const (
	Minute int64 = 60
	Hour   int64 = Minute * 60
	Day    int64 = Hour * 24
)

// DaysFromSeconds converts seconds into whole elapsed days, flooring toward
// negative infinity. Negative input yields a negative result; callers clamp.
func DaysFromSeconds(seconds int64) int64 {
	d := seconds / Day
	if seconds%Day < 0 {
		d--
	}
	return d
}

// SecondsSince returns now - timestamp.
func SecondsSince(timestamp, now int64) int64 {
	return now - timestamp
}

// FormatHours renders a second count as "5h 30m" for roster reports.
func FormatHours(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / Hour
	minutes := (seconds % Hour) / Minute
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
