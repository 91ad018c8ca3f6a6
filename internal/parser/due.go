package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
)

// DueResult holds a parsed due date and any error.
type DueResult struct {
	Time  time.Time
	Error error
}

// relativeRegex matches relative time expressions like "+5m", "+1h", "+2d".
var relativeRegex = regexp.MustCompile(`^\+(\d+)([smhdw])$`)

// ParseDueDate parses a natural language due date relative to now.
// Supported forms:
//   - "+5m", "+1h", "+2d", "+1w" (relative)
//   - "friday 5pm", "tomorrow 2pm", "in 3 days" (natural language)
//   - "2026-01-15 14:00" (ISO)
//
// A time earlier today rolls over to tomorrow; anything else in the past is
// rejected.
func ParseDueDate(input string, now time.Time) DueResult {
	input = strings.TrimSpace(input)
	if input == "" {
		return DueResult{Error: fmt.Errorf("due date is required")}
	}

	if match := relativeRegex.FindStringSubmatch(input); match != nil {
		return parseRelative(match[1], match[2], now)
	}

	result, err := dateparser.Parse(&dateparser.Configuration{CurrentTime: now}, input)
	if err != nil || result.Time.IsZero() {
		return DueResult{Error: NewDueDateError(input)}
	}

	t := result.Time
	if t.Before(now) {
		if !isSameDay(t, now) {
			return DueResult{Error: fmt.Errorf("due date %q is in the past", input)}
		}
		t = t.AddDate(0, 0, 1)
	}
	return DueResult{Time: t}
}

// ParseDueDateArgs joins args and parses them as one due date.
func ParseDueDateArgs(args []string, now time.Time) DueResult {
	if len(args) == 0 {
		return DueResult{Error: fmt.Errorf("due date is required")}
	}
	return ParseDueDate(strings.Join(args, " "), now)
}

func parseRelative(numStr, unit string, now time.Time) DueResult {
	num, _ := strconv.Atoi(numStr)
	if num <= 0 {
		return DueResult{Error: fmt.Errorf("invalid duration: must be positive")}
	}

	var d time.Duration
	switch unit {
	case "s":
		d = time.Second
	case "m":
		d = time.Minute
	case "h":
		d = time.Hour
	case "d":
		d = day
	case "w":
		d = 7 * day
	}
	return DueResult{Time: now.Add(time.Duration(num) * d)}
}

func isSameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.In(t1.Location()).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// FormatDue formats a due date or event start relative to now, for example
// "Today at 3:00 PM", "Tomorrow at 9:00 AM", "Friday at 5:00 PM" or
// "Mon, Jan 2 at 10:00 AM".
func FormatDue(t, now time.Time) string {
	t = t.In(now.Location())

	var datePart string
	switch {
	case isSameDay(t, now):
		datePart = "Today"
	case isSameDay(t, now.AddDate(0, 0, 1)):
		datePart = "Tomorrow"
	case isSameDay(t, now.AddDate(0, 0, -1)):
		datePart = "Yesterday"
	case t.After(now) && t.Sub(now) < 7*day:
		datePart = t.Format("Monday")
	default:
		datePart = t.Format("Mon, Jan 2")
	}
	return fmt.Sprintf("%s at %s", datePart, t.Format("3:04 PM"))
}

// FormatTimeUntil describes the time from now until t.
func FormatTimeUntil(t, now time.Time) string {
	diff := t.Sub(now)
	if diff < 0 {
		return "overdue by " + FormatDuration(-diff)
	}

	switch {
	case diff < time.Minute:
		return "now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < day:
		hours := int(diff.Hours())
		mins := int(diff.Minutes()) % 60
		if mins > 0 {
			return plural(hours, "hour") + " " + strconv.Itoa(mins) + " min"
		}
		return plural(hours, "hour")
	case diff < 7*day:
		return plural(int(diff/day), "day")
	}
	return plural(int(diff/(7*day)), "week")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "in 1 " + unit
	}
	return fmt.Sprintf("in %d %ss", n, unit)
}
