package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
)

// TimestampResult holds the parsed timestamp and any error.
type TimestampResult struct {
	Time  time.Time
	Error error
}

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// periodRegex matches period expressions like "this week", "next month".
var periodRegex = regexp.MustCompile(`(?i)^(this|current|last|previous|next)\s+(day|week|month|year)$`)

// ParseTimestamp parses a natural language point in time relative to now.
// Day and period names resolve to their start, so "today" is midnight and
// "next week" is the coming Monday.
func ParseTimestamp(input string, now time.Time) TimestampResult {
	input = strings.ToLower(strings.TrimSpace(input))
	switch input {
	case "", "now":
		return TimestampResult{Time: now}
	case "today":
		return TimestampResult{Time: StartOfDay(now)}
	case "tomorrow":
		return TimestampResult{Time: StartOfDay(now).AddDate(0, 0, 1)}
	case "yesterday":
		return TimestampResult{Time: StartOfDay(now).AddDate(0, 0, -1)}
	}

	if periodRegex.MatchString(input) {
		return TimestampResult{Time: GetPeriodRange(input, now).Start}
	}

	result, err := dateparser.Parse(&dateparser.Configuration{CurrentTime: now}, input)
	if err != nil || result.Time.IsZero() {
		return TimestampResult{Error: NewTimestampError(input)}
	}
	return TimestampResult{Time: result.Time}
}

// GetPeriodRange returns the range a named period covers. Unknown names
// fall back to today.
func GetPeriodRange(period string, now time.Time) TimeRange {
	period = strings.ToLower(strings.TrimSpace(period))
	today := StartOfDay(now)

	offset := 0
	switch {
	case strings.HasPrefix(period, "last"), strings.HasPrefix(period, "previous"):
		offset = -1
	case strings.HasPrefix(period, "next"):
		offset = 1
	}

	switch {
	case period == "tomorrow":
		return TimeRange{Start: today.AddDate(0, 0, 1), End: today.AddDate(0, 0, 2)}
	case period == "yesterday":
		return TimeRange{Start: today.AddDate(0, 0, -1), End: today}
	case strings.HasSuffix(period, "week"):
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start := today.AddDate(0, 0, 1-weekday+7*offset)
		return TimeRange{Start: start, End: start.AddDate(0, 0, 7)}
	case strings.HasSuffix(period, "month"):
		start := time.Date(now.Year(), now.Month()+time.Month(offset), 1, 0, 0, 0, 0, now.Location())
		return TimeRange{Start: start, End: start.AddDate(0, 1, 0)}
	case strings.HasSuffix(period, "year"):
		start := time.Date(now.Year()+offset, 1, 1, 0, 0, 0, 0, now.Location())
		return TimeRange{Start: start, End: start.AddDate(1, 0, 0)}
	case strings.HasSuffix(period, "day"):
		start := today.AddDate(0, 0, offset)
		return TimeRange{Start: start, End: start.AddDate(0, 0, 1)}
	}
	return TimeRange{Start: today, End: today.AddDate(0, 0, 1)}
}

// isPeriod reports whether s names a whole period.
func isPeriod(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "today" || s == "tomorrow" || s == "yesterday" || periodRegex.MatchString(s)
}

// ParseRange resolves --from/--to style bounds. With neither set the range
// is the next defaultSpan from the start of today. A period name alone for
// from covers that whole period. A to that names a day or period is
// inclusive of it.
func ParseRange(from, to string, now time.Time, defaultSpan time.Duration) (TimeRange, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)

	var r TimeRange
	switch {
	case from == "":
		r.Start = StartOfDay(now)
	case isPeriod(from) && to == "":
		return GetPeriodRange(from, now), nil
	default:
		res := ParseTimestamp(from, now)
		if res.Error != nil {
			return TimeRange{}, res.Error
		}
		r.Start = res.Time
	}

	switch {
	case to == "":
		r.End = r.Start.Add(defaultSpan)
	case isPeriod(to):
		r.End = GetPeriodRange(to, now).End
	default:
		res := ParseTimestamp(to, now)
		if res.Error != nil {
			return TimeRange{}, res.Error
		}
		r.End = res.Time
	}

	if !r.End.After(r.Start) {
		return TimeRange{}, NewDateRangeError(fmt.Sprintf("%s..%s", from, to))
	}
	return r, nil
}
