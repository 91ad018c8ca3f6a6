package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manav03panchal/projecthub/internal/errors"
)

const teamFeed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Example//Calendar//EN
X-WR-CALNAME:Team Calendar
X-WR-TIMEZONE:America/New_York
BEGIN:VTIMEZONE
TZID:America/New_York
BEGIN:STANDARD
DTSTART:19701101T020000
TZOFFSETFROM:-0400
TZOFFSETTO:-0500
END:STANDARD
END:VTIMEZONE
BEGIN:VEVENT
UID:standup@example.com
SUMMARY:Daily standup
DESCRIPTION:Line one\nLine two\, with comma
LOCATION:Room 1
STATUS:CONFIRMED
DTSTART;TZID=America/New_York:20240115T090000
DTEND;TZID=America/New_York:20240115T091500
ORGANIZER;CN=Alice:mailto:alice@example.com
ATTENDEE;CN=Bob;ROLE=REQ-PARTICIPANT;PARTSTAT=ACCEPTED:MAILTO:bob@example.com
ATTENDEE;CN="Doe, Jane":mailto:jane@example.com
BEGIN:VALARM
ACTION:DISPLAY
TRIGGER:-PT10M
DESCRIPTION:Reminder
END:VALARM
END:VEVENT
BEGIN:VEVENT
UID:offsite@example.com
SUMMARY:Offsite
DTSTART;VALUE=DATE:20240301
END:VEVENT
BEGIN:VEVENT
UID:broken@example.com
SUMMARY:No start
END:VEVENT
BEGIN:VEVENT
SUMMARY:Floating lunch
DTSTART:20240115T120000
DURATION:PT1H
END:VEVENT
END:VCALENDAR
`

func TestParseTeamFeed(t *testing.T) {
	cal, err := ParseString(teamFeed)
	require.NoError(t, err)

	assert.Equal(t, "Team Calendar", cal.Name)
	assert.Equal(t, "America/New_York", cal.DefaultTZID)
	require.Len(t, cal.Events, 3)
	require.NotEmpty(t, cal.Warnings)
	assert.Contains(t, strings.Join(cal.Warnings, "\n"), "DTSTART")

	standup := cal.Events[0]
	assert.Equal(t, "standup@example.com", standup.UID)
	assert.Equal(t, "Daily standup", standup.Summary)
	assert.Equal(t, "Line one\nLine two, with comma", standup.Description)
	assert.Equal(t, "Room 1", standup.Location)
	assert.Equal(t, "CONFIRMED", standup.Status)
	assert.Equal(t, "America/New_York", standup.TZID)
	assert.True(t, time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC).Equal(standup.Start))
	assert.True(t, time.Date(2024, 1, 15, 14, 15, 0, 0, time.UTC).Equal(standup.End))
	assert.False(t, standup.AllDay)

	require.NotNil(t, standup.Organizer)
	assert.Equal(t, "Alice", standup.Organizer.Name)
	assert.Equal(t, "alice@example.com", standup.Organizer.Email)

	require.Len(t, standup.Attendees, 2)
	assert.Equal(t, "bob@example.com", standup.Attendees[0].Email)
	assert.Equal(t, "REQ-PARTICIPANT", standup.Attendees[0].Role)
	assert.Equal(t, "ACCEPTED", standup.Attendees[0].Status)
	assert.Equal(t, "Doe, Jane", standup.Attendees[1].Name)
	assert.Equal(t, "Doe, Jane <jane@example.com>", standup.Attendees[1].Display())

	offsite := cal.Events[1]
	assert.True(t, offsite.AllDay)
	assert.True(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Equal(offsite.Start))
	assert.True(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC).Equal(offsite.End))

	lunch := cal.Events[2]
	assert.True(t, strings.HasPrefix(lunch.UID, "generated-"))
	assert.True(t, time.Date(2024, 1, 15, 17, 0, 0, 0, time.UTC).Equal(lunch.Start))
	assert.Equal(t, time.Hour, lunch.Duration())
}

func TestParseSyntheticUIDIsStable(t *testing.T) {
	a, err := ParseString(teamFeed)
	require.NoError(t, err)
	b, err := ParseString(teamFeed)
	require.NoError(t, err)
	assert.Equal(t, a.Events[2].UID, b.Events[2].UID)
}

func TestParseRejectsNonCalendar(t *testing.T) {
	_, err := ParseString("<html>not a feed</html>")
	assert.True(t, errors.Is(err, errors.ErrInvalidFeed))

	_, err = Parse(strings.NewReader(""))
	assert.True(t, errors.Is(err, errors.ErrInvalidFeed))
}

func TestParseFoldedCRLF(t *testing.T) {
	feed := "\uFEFFBEGIN:VCALENDAR\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:folded\r\n" +
		"SUMMARY:A very long\r\n" +
		"  title\r\n" +
		"DTSTART:20240110T100000Z\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"

	cal, err := ParseString(feed)
	require.NoError(t, err)
	require.Len(t, cal.Events, 1)
	assert.Equal(t, "A very long title", cal.Events[0].Summary)
	assert.True(t, cal.Events[0].Start.Equal(cal.Events[0].End))
}

func TestParseClampsEndBeforeStart(t *testing.T) {
	feed := `BEGIN:VCALENDAR
BEGIN:VEVENT
UID:backwards
SUMMARY:Backwards
DTSTART:20240110T100000Z
DTEND:20240110T090000Z
END:VEVENT
END:VCALENDAR`

	cal, err := ParseString(feed)
	require.NoError(t, err)
	require.Len(t, cal.Events, 1)
	assert.Equal(t, cal.Events[0].Start, cal.Events[0].End)
	assert.NotEmpty(t, cal.Warnings)
}

func TestParseBadRRuleKeepsEvent(t *testing.T) {
	feed := `BEGIN:VCALENDAR
BEGIN:VEVENT
UID:weird
SUMMARY:Hourly
DTSTART:20240110T100000Z
RRULE:FREQ=HOURLY;COUNT=3
END:VEVENT
END:VCALENDAR`

	cal, err := ParseString(feed)
	require.NoError(t, err)
	require.Len(t, cal.Events, 1)
	assert.Nil(t, cal.Events[0].RRule)
	assert.Contains(t, strings.Join(cal.Warnings, "\n"), "HOURLY")
}

func TestParseUnknownTZIDFallsBackToUTC(t *testing.T) {
	feed := `BEGIN:VCALENDAR
BEGIN:VEVENT
UID:mars
SUMMARY:Mars
DTSTART;TZID=Mars/Olympus_Mons:20240110T100000
END:VEVENT
END:VCALENDAR`

	cal, err := ParseString(feed)
	require.NoError(t, err)
	require.Len(t, cal.Events, 1)
	assert.True(t, time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC).Equal(cal.Events[0].Start))
	assert.Contains(t, strings.Join(cal.Warnings, "\n"), "Mars/Olympus_Mons")
}

func TestParseUnparseableDateSkipsEvent(t *testing.T) {
	feed := `BEGIN:VCALENDAR
BEGIN:VEVENT
UID:bad-date
DTSTART:next tuesday
END:VEVENT
BEGIN:VEVENT
UID:good
DTSTART:20240110T100000Z
END:VEVENT
END:VCALENDAR`

	cal, err := ParseString(feed)
	require.NoError(t, err)
	require.Len(t, cal.Events, 1)
	assert.Equal(t, "good", cal.Events[0].UID)
	assert.Len(t, cal.Warnings, 1)
}

func TestParseExDateAndRecurrenceID(t *testing.T) {
	feed := `BEGIN:VCALENDAR
BEGIN:VEVENT
UID:series
DTSTART:20240101T100000Z
RRULE:FREQ=DAILY;COUNT=5
EXDATE:20240102T100000Z,20240103T100000Z
EXDATE:20240104T100000Z
SEQUENCE:3
END:VEVENT
BEGIN:VEVENT
UID:series
RECURRENCE-ID:20240105T100000Z
DTSTART:20240105T120000Z
END:VEVENT
END:VCALENDAR`

	cal, err := ParseString(feed)
	require.NoError(t, err)
	require.Len(t, cal.Events, 2)

	master := cal.Events[0]
	require.NotNil(t, master.RRule)
	assert.True(t, master.IsRecurring())
	assert.Len(t, master.ExDates, 3)
	assert.Equal(t, 3, master.Sequence)

	override := cal.Events[1]
	assert.True(t, time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC).Equal(override.RecurrenceID))
}
