package ics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRRule(t *testing.T) {
	r, err := ParseRRule("FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE;COUNT=10")
	require.NoError(t, err)
	assert.Equal(t, Weekly, r.Freq)
	assert.Equal(t, 2, r.Interval)
	assert.Equal(t, 10, r.Count)
	assert.Equal(t, []WeekdayNum{{Day: time.Monday}, {Day: time.Wednesday}}, r.ByDay)
	assert.Equal(t, "FREQ=WEEKLY;INTERVAL=2;COUNT=10;BYDAY=MO,WE", r.String())

	r, err = ParseRRule("RRULE:FREQ=MONTHLY;BYDAY=-1FR,2TU")
	require.NoError(t, err)
	assert.Equal(t, []WeekdayNum{{N: -1, Day: time.Friday}, {N: 2, Day: time.Tuesday}}, r.ByDay)

	r, err = ParseRRule("FREQ=DAILY;UNTIL=20240131")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), r.Until)
	assert.True(t, r.untilWall)

	r, err = ParseRRule("FREQ=DAILY;UNTIL=20240131T120000Z;WKST=SU;X-CUSTOM=1")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC), r.Until)
	assert.False(t, r.untilWall)

	r, err = ParseRRule("freq=monthly;bymonthday=1,-1")
	require.NoError(t, err)
	assert.Equal(t, Monthly, r.Freq)
	assert.Equal(t, []int{1, -1}, r.ByMonthDay)
}

func TestParseRRuleInvalid(t *testing.T) {
	invalid := []string{
		"",
		"INTERVAL=2",
		"FREQ=HOURLY",
		"FREQ=DAILY;COUNT=0",
		"FREQ=DAILY;INTERVAL=-1",
		"FREQ=WEEKLY;BYDAY=XX",
		"FREQ=MONTHLY;BYDAY=9MO",
		"FREQ=MONTHLY;BYMONTHDAY=32",
		"FREQ=DAILY;UNTIL=soon",
	}
	for _, s := range invalid {
		t.Run(s, func(t *testing.T) {
			_, err := ParseRRule(s)
			assert.Error(t, err)
		})
	}
}

// eventFrom parses a single-event feed so expansion sees the resolved zone.
func eventFrom(t *testing.T, body string) Event {
	t.Helper()
	cal, err := ParseString("BEGIN:VCALENDAR\nBEGIN:VEVENT\nUID:ev\n" + body + "\nEND:VEVENT\nEND:VCALENDAR\n")
	require.NoError(t, err)
	require.Len(t, cal.Events, 1, "warnings: %v", cal.Warnings)
	return cal.Events[0]
}

func starts(occs []Occurrence) []time.Time {
	out := make([]time.Time, len(occs))
	for i, o := range occs {
		out[i] = o.Start.UTC()
	}
	return out
}

func utc(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

var jan2024 = ExpandOptions{From: utc(2024, 1, 1, 0), Horizon: utc(2026, 1, 1, 0)}

func TestExpandNonRecurring(t *testing.T) {
	ev := eventFrom(t, "DTSTART:20240110T100000Z\nDTEND:20240110T110000Z")

	occs := Expand(ev, jan2024)
	require.Len(t, occs, 1)
	assert.Equal(t, "ev", occs[0].OccurrenceUID)
	assert.False(t, occs[0].Recurring)

	occs = Expand(ev, ExpandOptions{From: utc(2024, 2, 1, 0)})
	assert.Empty(t, occs)
}

func TestExpandKeepsLocalTimeAcrossDST(t *testing.T) {
	ev := eventFrom(t, "DTSTART;TZID=America/New_York:20240304T090000\n"+
		"DTEND;TZID=America/New_York:20240304T093000\n"+
		"RRULE:FREQ=WEEKLY;COUNT=3")

	occs := Expand(ev, jan2024)
	assert.Equal(t, []time.Time{
		time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 11, 13, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 18, 13, 0, 0, 0, time.UTC),
	}, starts(occs))
	assert.Equal(t, "ev_20240304T140000Z", occs[0].OccurrenceUID)
	assert.Equal(t, "ev_20240311T130000Z", occs[1].OccurrenceUID)
	for _, o := range occs {
		assert.True(t, o.Recurring)
		assert.Equal(t, 30*time.Minute, o.End.Sub(o.Start))
	}
}

func TestExpandDaily(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		opts     ExpandOptions
		expected []time.Time
	}{
		{
			name: "count",
			body: "DTSTART:20240101T100000Z\nRRULE:FREQ=DAILY;COUNT=3",
			opts: jan2024,
			expected: []time.Time{
				utc(2024, 1, 1, 10), utc(2024, 1, 2, 10), utc(2024, 1, 3, 10),
			},
		},
		{
			name: "interval",
			body: "DTSTART:20240101T100000Z\nRRULE:FREQ=DAILY;INTERVAL=2;COUNT=3",
			opts: jan2024,
			expected: []time.Time{
				utc(2024, 1, 1, 10), utc(2024, 1, 3, 10), utc(2024, 1, 5, 10),
			},
		},
		{
			name: "exdate",
			body: "DTSTART:20240101T100000Z\nRRULE:FREQ=DAILY;COUNT=5\nEXDATE:20240103T100000Z",
			opts: jan2024,
			expected: []time.Time{
				utc(2024, 1, 1, 10), utc(2024, 1, 2, 10), utc(2024, 1, 4, 10), utc(2024, 1, 5, 10),
			},
		},
		{
			name: "until_utc_inclusive",
			body: "DTSTART:20240101T100000Z\nRRULE:FREQ=DAILY;UNTIL=20240103T100000Z",
			opts: jan2024,
			expected: []time.Time{
				utc(2024, 1, 1, 10), utc(2024, 1, 2, 10), utc(2024, 1, 3, 10),
			},
		},
		{
			name: "until_date",
			body: "DTSTART:20240101T100000Z\nRRULE:FREQ=DAILY;UNTIL=20240103",
			opts: jan2024,
			expected: []time.Time{
				utc(2024, 1, 1, 10), utc(2024, 1, 2, 10), utc(2024, 1, 3, 10),
			},
		},
		{
			name: "count_includes_instances_before_window",
			body: "DTSTART:20240101T100000Z\nDURATION:PT1H\nRRULE:FREQ=DAILY;COUNT=5",
			opts: ExpandOptions{From: utc(2024, 1, 4, 0)},
			expected: []time.Time{
				utc(2024, 1, 4, 10), utc(2024, 1, 5, 10),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := eventFrom(t, tt.body)
			assert.Equal(t, tt.expected, starts(Expand(ev, tt.opts)))
		})
	}
}

func TestExpandWeeklyByDay(t *testing.T) {
	// 2024-01-03 is a Wednesday.
	ev := eventFrom(t, "DTSTART:20240103T090000Z\nRRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR;COUNT=4")
	assert.Equal(t, []time.Time{
		utc(2024, 1, 3, 9), utc(2024, 1, 5, 9), utc(2024, 1, 8, 9), utc(2024, 1, 10, 9),
	}, starts(Expand(ev, jan2024)))

	ev = eventFrom(t, "DTSTART:20240101T090000Z\nRRULE:FREQ=WEEKLY;INTERVAL=2;BYDAY=TU;COUNT=3")
	assert.Equal(t, []time.Time{
		utc(2024, 1, 2, 9), utc(2024, 1, 16, 9), utc(2024, 1, 30, 9),
	}, starts(Expand(ev, jan2024)))
}

func TestExpandMonthly(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected []time.Time
	}{
		{
			name: "skips_short_months",
			body: "DTSTART:20240131T100000Z\nRRULE:FREQ=MONTHLY;COUNT=4",
			expected: []time.Time{
				utc(2024, 1, 31, 10), utc(2024, 3, 31, 10), utc(2024, 5, 31, 10), utc(2024, 7, 31, 10),
			},
		},
		{
			name: "last_day",
			body: "DTSTART:20240131T100000Z\nRRULE:FREQ=MONTHLY;BYMONTHDAY=-1;COUNT=3",
			expected: []time.Time{
				utc(2024, 1, 31, 10), utc(2024, 2, 29, 10), utc(2024, 3, 31, 10),
			},
		},
		{
			name: "second_tuesday",
			body: "DTSTART:20240109T100000Z\nRRULE:FREQ=MONTHLY;BYDAY=2TU;COUNT=3",
			expected: []time.Time{
				utc(2024, 1, 9, 10), utc(2024, 2, 13, 10), utc(2024, 3, 12, 10),
			},
		},
		{
			name: "first_and_fifteenth",
			body: "DTSTART:20240101T100000Z\nRRULE:FREQ=MONTHLY;BYMONTHDAY=15,1;COUNT=4",
			expected: []time.Time{
				utc(2024, 1, 1, 10), utc(2024, 1, 15, 10), utc(2024, 2, 1, 10), utc(2024, 2, 15, 10),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := eventFrom(t, tt.body)
			assert.Equal(t, tt.expected, starts(Expand(ev, jan2024)))
		})
	}
}

func TestExpandYearlyLeapDay(t *testing.T) {
	ev := eventFrom(t, "DTSTART;VALUE=DATE:20240229\nRRULE:FREQ=YEARLY;COUNT=2")
	occs := Expand(ev, ExpandOptions{From: utc(2024, 1, 1, 0), Horizon: utc(2030, 1, 1, 0)})
	require.Len(t, occs, 2)
	assert.Equal(t, utc(2024, 2, 29, 0), occs[0].Start)
	assert.Equal(t, utc(2028, 2, 29, 0), occs[1].Start)
	assert.True(t, occs[1].AllDay)
	assert.Equal(t, 24*time.Hour, occs[1].End.Sub(occs[1].Start))
}

func TestExpandYearly(t *testing.T) {
	window := ExpandOptions{From: utc(2025, 1, 1, 0), Horizon: utc(2031, 1, 1, 0)}
	tests := []struct {
		name     string
		body     string
		expected []time.Time
	}{
		{
			name: "last_day_of_february",
			body: "DTSTART:20250228T100000Z\nRRULE:FREQ=YEARLY;BYMONTHDAY=-1;COUNT=4",
			expected: []time.Time{
				utc(2025, 2, 28, 10), utc(2026, 2, 28, 10), utc(2027, 2, 28, 10), utc(2028, 2, 29, 10),
			},
		},
		{
			name: "several_days_in_month",
			body: "DTSTART:20250301T090000Z\nRRULE:FREQ=YEARLY;BYMONTHDAY=15,1;COUNT=3",
			expected: []time.Time{
				utc(2025, 3, 1, 9), utc(2025, 3, 15, 9), utc(2026, 3, 1, 9),
			},
		},
		{
			name: "plain_anniversary",
			body: "DTSTART:20250610T080000Z\nRRULE:FREQ=YEARLY;COUNT=2",
			expected: []time.Time{
				utc(2025, 6, 10, 8), utc(2026, 6, 10, 8),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := eventFrom(t, tt.body)
			assert.Equal(t, tt.expected, starts(Expand(ev, window)))
		})
	}
}

func TestExpandLimits(t *testing.T) {
	ev := eventFrom(t, "DTSTART:20240101T100000Z\nRRULE:FREQ=DAILY")

	// Default horizon is six months after From.
	occs := Expand(ev, ExpandOptions{From: utc(2024, 1, 1, 0), MaxOccurrences: 1000})
	assert.Len(t, occs, 182)
	assert.Equal(t, utc(2024, 6, 30, 10), occs[len(occs)-1].Start)

	// Default cap is 365 occurrences.
	occs = Expand(ev, ExpandOptions{From: utc(2024, 1, 1, 0), Horizon: utc(2027, 1, 1, 0)})
	assert.Len(t, occs, DefaultMaxOccurrences)

	occs = Expand(ev, ExpandOptions{From: utc(2024, 1, 1, 0), MaxOccurrences: 10})
	assert.Len(t, occs, 10)
}

func TestExpandEndNeverBeforeStart(t *testing.T) {
	ev := eventFrom(t, "DTSTART;TZID=America/Chicago:20240301T230000\n"+
		"DURATION:PT2H\nRRULE:FREQ=DAILY;COUNT=30")
	for _, o := range Expand(ev, jan2024) {
		assert.False(t, o.End.Before(o.Start))
	}
}

const overrideFeed = `BEGIN:VCALENDAR
BEGIN:VEVENT
UID:weekly@example.com
SUMMARY:Sync
DTSTART:20240101T150000Z
DTEND:20240101T160000Z
RRULE:FREQ=WEEKLY;COUNT=3
END:VEVENT
BEGIN:VEVENT
UID:weekly@example.com
SUMMARY:Sync (moved)
RECURRENCE-ID:20240108T150000Z
DTSTART:20240108T170000Z
DTEND:20240108T180000Z
SEQUENCE:1
END:VEVENT
BEGIN:VEVENT
UID:single@example.com
SUMMARY:One-off
DTSTART:20240102T090000Z
DTEND:20240102T100000Z
END:VEVENT
END:VCALENDAR`

func TestExpandCalendarOverrides(t *testing.T) {
	cal, err := ParseString(overrideFeed)
	require.NoError(t, err)

	occs := ExpandCalendar(cal, jan2024)
	require.Len(t, occs, 4)

	assert.Equal(t, []time.Time{
		utc(2024, 1, 1, 15), utc(2024, 1, 2, 9), utc(2024, 1, 8, 17), utc(2024, 1, 15, 15),
	}, starts(occs))

	moved := occs[2]
	assert.Equal(t, "Sync (moved)", moved.Summary)
	assert.Equal(t, "weekly@example.com_20240108T150000Z", moved.OccurrenceUID)
	assert.True(t, moved.Recurring)

	assert.Equal(t, "single@example.com", occs[1].OccurrenceUID)
}

func TestExpandCalendarKeepsHighestSequence(t *testing.T) {
	cal, err := ParseString(`BEGIN:VCALENDAR
BEGIN:VEVENT
UID:dup
SUMMARY:Newer
SEQUENCE:2
DTSTART:20240110T100000Z
END:VEVENT
BEGIN:VEVENT
UID:dup
SUMMARY:Older
SEQUENCE:0
DTSTART:20240110T100000Z
END:VEVENT
END:VCALENDAR`)
	require.NoError(t, err)

	occs := ExpandCalendar(cal, jan2024)
	require.Len(t, occs, 1)
	assert.Equal(t, "Newer", occs[0].Summary)
}

func TestExpandCalendarNil(t *testing.T) {
	assert.Nil(t, ExpandCalendar(nil, jan2024))
}
