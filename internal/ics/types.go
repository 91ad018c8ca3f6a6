// Package ics parses iCalendar (RFC 5545) feeds into events and expands
// their recurrence rules into concrete occurrences.
//
// The parser is lenient: a malformed event is skipped and reported in
// Calendar.Warnings instead of failing the whole feed. Timezones are resolved
// with fixed US daylight-saving rules for the four continental US zones and
// with the system zone database for everything else.
package ics

import (
	"time"
)

// Frequency is an RRULE FREQ value.
type Frequency string

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

// Calendar is a parsed VCALENDAR.
type Calendar struct {
	Name        string
	DefaultTZID string
	Events      []Event
	Warnings    []string
}

// Person is an ORGANIZER or ATTENDEE.
type Person struct {
	Name   string
	Email  string
	Role   string
	Status string
}

// Display returns "Name <email>", or whichever part is present.
func (p Person) Display() string {
	switch {
	case p.Name != "" && p.Email != "":
		return p.Name + " <" + p.Email + ">"
	case p.Name != "":
		return p.Name
	}
	return p.Email
}

// WeekdayNum is a BYDAY entry such as MO, 2TU or -1FR. N is zero when the
// entry has no ordinal.
type WeekdayNum struct {
	N   int
	Day time.Weekday
}

// RRule is the supported subset of an RFC 5545 recurrence rule.
type RRule struct {
	Freq       Frequency
	Interval   int
	Count      int
	Until      time.Time
	ByDay      []WeekdayNum
	ByMonthDay []int

	// untilWall is set when UNTIL was a date or floating date-time and must be
	// compared against local wall time rather than the UTC instant.
	untilWall bool
}

// Event is a parsed VEVENT. Start and End are UTC instants.
type Event struct {
	UID          string
	Summary      string
	Description  string
	Location     string
	URL          string
	Status       string
	Start        time.Time
	End          time.Time
	AllDay       bool
	TZID         string
	Organizer    *Person
	Attendees    []Person
	RRule        *RRule
	ExDates      []time.Time
	RecurrenceID time.Time
	Sequence     int

	zone      Zone
	wallStart time.Time
}

// IsRecurring reports whether the event carries an RRULE.
func (e *Event) IsRecurring() bool {
	return e.RRule != nil
}

// Duration returns End - Start.
func (e *Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Occurrence is a single instance of an event. For non-recurring events
// OccurrenceUID equals the UID.
type Occurrence struct {
	Event
	OccurrenceUID string
	Recurring     bool
}
