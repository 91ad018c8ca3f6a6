package ics

import (
	"strings"
	"testing"
	"time"
)

// FuzzParse feeds arbitrary feed bodies to the parser.
// Run with: go test ./internal/ics/... -fuzz=FuzzParse -fuzztime=30s
func FuzzParse(f *testing.F) {
	seeds := []string{
		"",
		"BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n",
		"BEGIN:VCALENDAR\nBEGIN:VEVENT\nUID:a\nDTSTART:20260105T090000Z\nSUMMARY:Standup\nEND:VEVENT\nEND:VCALENDAR\n",
		"BEGIN:VCALENDAR\nBEGIN:VEVENT\nDTSTART;VALUE=DATE:20260105\nSUMMARY:Holiday\nEND:VEVENT\nEND:VCALENDAR\n",
		"BEGIN:VCALENDAR\nBEGIN:VEVENT\nUID:b\nDTSTART;TZID=Europe/Berlin:20260105T090000\nRRULE:FREQ=DAILY;COUNT=3\nEXDATE;TZID=Europe/Berlin:20260106T090000\nEND:VEVENT\nEND:VCALENDAR\n",
		"BEGIN:VCALENDAR\nBEGIN:VEVENT\nSUMMARY:Folded\n  line\nDESCRIPTION:a\\nb\\,c\nEND:VEVENT\n",
		"BEGIN:VEVENT\nBEGIN:VEVENT\nEND:VCALENDAR",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		cal, err := ParseString(input)
		if err != nil || cal == nil {
			return
		}
		from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		_ = ExpandCalendar(cal, ExpandOptions{From: from, Horizon: from.AddDate(0, 1, 0), MaxOccurrences: 50})
	})
}

// FuzzExpandRRule checks that any accepted rule stays within the
// occurrence cap and the horizon.
// Run with: go test ./internal/ics/... -fuzz=FuzzExpandRRule -fuzztime=30s
func FuzzExpandRRule(f *testing.F) {
	seeds := []string{
		"FREQ=DAILY",
		"FREQ=DAILY;INTERVAL=3;COUNT=10",
		"FREQ=WEEKLY;BYDAY=MO,WE,FR",
		"FREQ=WEEKLY;INTERVAL=2;BYDAY=TU;UNTIL=20260401T000000Z",
		"FREQ=MONTHLY;BYDAY=-1FR",
		"FREQ=MONTHLY;BYMONTHDAY=31",
		"FREQ=YEARLY;BYMONTH=2;BYMONTHDAY=29",
		"FREQ=HOURLY",
		"INTERVAL=0",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	const limit = 40
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	horizon := from.AddDate(0, 3, 0)

	f.Fuzz(func(t *testing.T, rule string) {
		if strings.ContainsAny(rule, "\r\n") {
			return
		}
		if _, err := ParseRRule(rule); err != nil {
			return
		}
		body := "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nUID:fuzz\r\n" +
			"DTSTART:20260105T090000Z\r\nDTEND:20260105T093000Z\r\n" +
			"RRULE:" + rule + "\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
		cal, err := ParseString(body)
		if err != nil {
			return
		}

		occs := ExpandCalendar(cal, ExpandOptions{From: from, Horizon: horizon, MaxOccurrences: limit})
		if len(occs) > limit {
			t.Fatalf("rule %q produced %d occurrences, cap is %d", rule, len(occs), limit)
		}
		for _, o := range occs {
			if o.Start.After(horizon) {
				t.Fatalf("rule %q produced %s past the horizon", rule, o.Start)
			}
		}
	})
}
