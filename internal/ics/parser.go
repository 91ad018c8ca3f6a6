package ics

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/manav03panchal/projecthub/internal/errors"
)

// Parse reads an iCalendar stream. It fails only when the input is not a
// VCALENDAR at all; individual bad events are skipped with a warning.
func Parse(r io.Reader) (*Calendar, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read feed")
	}
	return ParseString(string(data))
}

// ParseString parses iCalendar text.
func ParseString(content string) (*Calendar, error) {
	content = strings.TrimPrefix(content, "\uFEFF")
	lines := unfold(content)

	if !hasCalendar(lines) {
		return nil, errors.ErrInvalidFeed
	}

	cal := &Calendar{}
	var (
		rawEvents [][]Property
		current   []Property
		inEvent   bool
		depth     int // nested components inside VEVENT (VALARM)
		inTZ      bool
	)

	for n, line := range lines {
		prop, err := parseProperty(line)
		if err != nil {
			cal.warn("line %d: %v", n+1, err)
			continue
		}

		switch prop.Name {
		case "BEGIN":
			comp := strings.ToUpper(strings.TrimSpace(prop.Value))
			switch {
			case inEvent:
				depth++
			case comp == "VEVENT":
				inEvent = true
				current = nil
			case comp == "VTIMEZONE":
				inTZ = true
			}
			continue
		case "END":
			comp := strings.ToUpper(strings.TrimSpace(prop.Value))
			switch {
			case inEvent && depth > 0:
				depth--
			case inEvent && comp == "VEVENT":
				rawEvents = append(rawEvents, current)
				inEvent = false
			case comp == "VTIMEZONE":
				inTZ = false
			}
			continue
		}

		if inEvent {
			if depth == 0 {
				current = append(current, prop)
			}
			continue
		}
		if inTZ {
			continue
		}

		switch prop.Name {
		case "X-WR-CALNAME":
			cal.Name = unescapeText(prop.Value)
		case "X-WR-TIMEZONE":
			cal.DefaultTZID = strings.TrimSpace(prop.Value)
		}
	}
	if inEvent {
		cal.warn("unterminated VEVENT at end of feed")
	}

	defaultZone := UTC
	if cal.DefaultTZID != "" {
		z, ok := ResolveZone(cal.DefaultTZID)
		if !ok {
			cal.warn("unknown calendar timezone %q, using UTC", cal.DefaultTZID)
		}
		defaultZone = z
	}

	for i, props := range rawEvents {
		ev, err := buildEvent(props, defaultZone, cal)
		if err != nil {
			cal.warn("event %d skipped: %v", i+1, err)
			continue
		}
		cal.Events = append(cal.Events, ev)
	}
	return cal, nil
}

func hasCalendar(lines []string) bool {
	for _, l := range lines {
		if strings.EqualFold(strings.TrimSpace(l), "BEGIN:VCALENDAR") {
			return true
		}
	}
	return false
}

func (c *Calendar) warn(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// resolved is a date value converted to an instant.
type resolved struct {
	utc    time.Time
	wall   time.Time
	zone   Zone
	isDate bool
}

func resolveDate(dv dateValue, defaultZone Zone, cal *Calendar) resolved {
	switch {
	case dv.isDate:
		return resolved{utc: dv.wall, wall: dv.wall, zone: UTC, isDate: true}
	case dv.isUTC:
		return resolved{utc: dv.wall, wall: dv.wall, zone: UTC}
	case dv.tzid != "":
		z, ok := ResolveZone(dv.tzid)
		if !ok {
			cal.warn("unknown timezone %q, using UTC", dv.tzid)
		}
		return resolved{utc: z.ToUTC(dv.wall), wall: dv.wall, zone: z}
	default:
		return resolved{utc: defaultZone.ToUTC(dv.wall), wall: dv.wall, zone: defaultZone}
	}
}

func buildEvent(props []Property, defaultZone Zone, cal *Calendar) (Event, error) {
	var (
		ev       Event
		start    *resolved
		endProp  *Property
		duration string
		rrule    string
	)

	for i := range props {
		p := props[i]
		switch p.Name {
		case "UID":
			ev.UID = strings.TrimSpace(p.Value)
		case "SUMMARY":
			ev.Summary = unescapeText(p.Value)
		case "DESCRIPTION":
			ev.Description = unescapeText(p.Value)
		case "LOCATION":
			ev.Location = unescapeText(p.Value)
		case "URL":
			ev.URL = strings.TrimSpace(p.Value)
		case "STATUS":
			ev.Status = strings.ToUpper(strings.TrimSpace(p.Value))
		case "SEQUENCE":
			if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
				ev.Sequence = n
			}
		case "DTSTART":
			dv, err := parseDateValue(p)
			if err != nil {
				return Event{}, err
			}
			r := resolveDate(dv, defaultZone, cal)
			start = &r
			ev.TZID = dv.tzid
		case "DTEND":
			endProp = &props[i]
		case "DURATION":
			duration = p.Value
		case "RRULE":
			rrule = p.Value
		case "EXDATE":
			for _, v := range strings.Split(p.Value, ",") {
				dv, err := parseDateValue(Property{Name: p.Name, Params: p.Params, Value: v})
				if err != nil {
					cal.warn("EXDATE ignored: %v", err)
					continue
				}
				ev.ExDates = append(ev.ExDates, resolveDate(dv, defaultZone, cal).utc)
			}
		case "RECURRENCE-ID":
			dv, err := parseDateValue(p)
			if err != nil {
				cal.warn("RECURRENCE-ID ignored: %v", err)
				continue
			}
			ev.RecurrenceID = resolveDate(dv, defaultZone, cal).utc
		case "ORGANIZER":
			person := parsePerson(p)
			ev.Organizer = &person
		case "ATTENDEE":
			ev.Attendees = append(ev.Attendees, parsePerson(p))
		}
	}

	if start == nil {
		return Event{}, fmt.Errorf("missing DTSTART (uid %q)", ev.UID)
	}
	ev.Start = start.utc
	ev.AllDay = start.isDate
	ev.zone = start.zone
	ev.wallStart = start.wall

	switch {
	case endProp != nil:
		dv, err := parseDateValue(*endProp)
		if err != nil {
			return Event{}, err
		}
		ev.End = resolveDate(dv, defaultZone, cal).utc
	case duration != "":
		d, err := parseDuration(duration)
		if err != nil {
			return Event{}, err
		}
		ev.End = ev.Start.Add(d)
	case ev.AllDay:
		ev.End = ev.Start.AddDate(0, 0, 1)
	default:
		ev.End = ev.Start
	}
	if ev.End.Before(ev.Start) {
		cal.warn("event %q ends before it starts, clamped", ev.Summary)
		ev.End = ev.Start
	}

	if ev.UID == "" {
		ev.UID = syntheticUID(ev.Summary, ev.Start)
	}

	if rrule != "" {
		rule, err := ParseRRule(rrule)
		if err != nil {
			cal.warn("event %q: %v, treated as single occurrence", ev.Summary, err)
		} else {
			ev.RRule = rule
		}
	}
	return ev, nil
}

func parsePerson(p Property) Person {
	email := strings.TrimSpace(p.Value)
	if len(email) >= 7 && strings.EqualFold(email[:7], "mailto:") {
		email = email[7:]
	}
	return Person{
		Name:   unescapeText(p.Param("CN")),
		Email:  email,
		Role:   p.Param("ROLE"),
		Status: p.Param("PARTSTAT"),
	}
}

func syntheticUID(summary string, start time.Time) string {
	sum := sha1.Sum([]byte(summary + "|" + start.UTC().Format(utcLayout)))
	return "generated-" + hex.EncodeToString(sum[:])[:16]
}
