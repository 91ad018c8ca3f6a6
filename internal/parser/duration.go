package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DurationResult represents the result of parsing a duration.
type DurationResult struct {
	Duration time.Duration
	Valid    bool
	Error    error
}

const (
	unitPattern = `d|day|days|h|hr|hrs|hour|hours|m|min|mins|minute|minutes|s|sec|secs|second|seconds`
	day         = 24 * time.Hour
)

// durationPattern matches expressions like "2h", "30 minutes", "1h30m", "2.5h" or "1d 12h".
var durationPattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(` + unitPattern + `)?\s*(?:(\d+(?:\.\d+)?)\s*(` + unitPattern + `))?$`)

// ParseDuration parses a human-readable duration string. Go duration syntax
// is accepted as is; a bare number means hours.
func ParseDuration(input string) DurationResult {
	input = strings.TrimSpace(input)
	if input == "" {
		return DurationResult{Error: fmt.Errorf("duration is required")}
	}

	if d, err := time.ParseDuration(input); err == nil {
		if d <= 0 {
			return DurationResult{Error: fmt.Errorf("duration must be positive")}
		}
		return DurationResult{Duration: d, Valid: true}
	}

	matches := durationPattern.FindStringSubmatch(input)
	if matches == nil {
		return DurationResult{Error: NewDurationError(input)}
	}

	var total time.Duration
	value, _ := strconv.ParseFloat(matches[1], 64)
	total += unitToDuration(value, strings.ToLower(matches[2]))
	if matches[3] != "" {
		value, _ := strconv.ParseFloat(matches[3], 64)
		total += unitToDuration(value, strings.ToLower(matches[4]))
	}

	if total <= 0 {
		return DurationResult{Error: fmt.Errorf("duration must be positive")}
	}
	return DurationResult{Duration: total, Valid: true}
}

func unitToDuration(value float64, unit string) time.Duration {
	switch unit {
	case "d", "day", "days":
		return time.Duration(value * float64(day))
	case "m", "min", "mins", "minute", "minutes":
		return time.Duration(value * float64(time.Minute))
	case "s", "sec", "secs", "second", "seconds":
		return time.Duration(value * float64(time.Second))
	default:
		return time.Duration(value * float64(time.Hour))
	}
}

// FormatDuration renders d as "1d 2h", "3h 15m", "45m" or "30s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	days := int(d / day)
	hours := int(d%day) / int(time.Hour)
	minutes := int(d%time.Hour) / int(time.Minute)

	switch {
	case days > 0 && hours > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case days > 0:
		return fmt.Sprintf("%dd", days)
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%ds", int(d/time.Second))
}
