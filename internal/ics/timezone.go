package ics

import (
	"strings"
	"time"
	_ "time/tzdata" // zone database for hosts without one
)

// Zone converts local wall-clock times to UTC instants.
type Zone interface {
	// ToUTC interprets wall's date and clock fields (its location is
	// ignored) as local time in the zone.
	ToUTC(wall time.Time) time.Time
	// Name is a display name for the zone.
	Name() string
}

// UTC is the zero-offset zone used for Z times, all-day dates and as the
// fallback for unknown TZIDs.
var UTC Zone = utcZone{}

type utcZone struct{}

func (utcZone) ToUTC(wall time.Time) time.Time {
	return fields(wall, time.UTC)
}

func (utcZone) Name() string { return "UTC" }

// usZone applies the post-2007 US daylight-saving rule: DST runs from the
// second Sunday of March at 02:00 local standard time to the first Sunday of
// November at 02:00 local daylight time.
type usZone struct {
	name    string
	stdHour int
	dst     bool
}

func (z usZone) Name() string { return z.name }

func (z usZone) ToUTC(wall time.Time) time.Time {
	offset := z.stdHour
	if z.dst && inUSDaylightTime(wall) {
		offset++
	}
	return fields(wall, time.UTC).Add(-time.Duration(offset) * time.Hour)
}

// inUSDaylightTime evaluates the rule on wall-clock fields.
func inUSDaylightTime(wall time.Time) bool {
	year := wall.Year()
	start := nthWeekday(year, time.March, time.Sunday, 2).Add(2 * time.Hour)
	end := nthWeekday(year, time.November, time.Sunday, 1).Add(2 * time.Hour)
	w := fields(wall, time.UTC)
	return !w.Before(start) && w.Before(end)
}

// locationZone resolves through the IANA database.
type locationZone struct {
	loc *time.Location
}

func (z locationZone) Name() string { return z.loc.String() }

func (z locationZone) ToUTC(wall time.Time) time.Time {
	return fields(wall, z.loc).UTC()
}

var (
	usEastern  = usZone{name: "America/New_York", stdHour: -5, dst: true}
	usCentral  = usZone{name: "America/Chicago", stdHour: -6, dst: true}
	usMountain = usZone{name: "America/Denver", stdHour: -7, dst: true}
	usArizona  = usZone{name: "America/Phoenix", stdHour: -7}
	usPacific  = usZone{name: "America/Los_Angeles", stdHour: -8, dst: true}
)

var usAliases = []struct {
	zone    usZone
	aliases []string
}{
	{usEastern, []string{"america/new_york", "us/eastern", "america/detroit", "america/toronto",
		"america/indiana/indianapolis", "america/kentucky/louisville", "est5edt", "eastern standard time", "eastern"}},
	{usCentral, []string{"america/chicago", "us/central", "america/winnipeg", "america/mexico_city",
		"cst6cdt", "central standard time", "central"}},
	{usArizona, []string{"america/phoenix", "us/arizona", "arizona", "us mountain standard time"}},
	{usMountain, []string{"america/denver", "us/mountain", "america/edmonton", "america/boise",
		"mst7mdt", "mountain standard time", "mountain"}},
	{usPacific, []string{"america/los_angeles", "us/pacific", "america/vancouver", "america/tijuana",
		"pst8pdt", "pacific standard time", "pacific"}},
}

// windowsZones maps common Windows zone names to IANA ids.
var windowsZones = map[string]string{
	"gmt standard time":              "Europe/London",
	"w. europe standard time":        "Europe/Berlin",
	"romance standard time":          "Europe/Paris",
	"central europe standard time":   "Europe/Budapest",
	"india standard time":            "Asia/Kolkata",
	"tokyo standard time":            "Asia/Tokyo",
	"aus eastern standard time":      "Australia/Sydney",
	"utc":                            "UTC",
	"coordinated universal time":     "UTC",
	"greenwich standard time":        "Atlantic/Reykjavik",
	"china standard time":            "Asia/Shanghai",
	"e. south america standard time": "America/Sao_Paulo",
}

// ResolveZone maps a TZID to a Zone. The second result is false when the id
// was not recognised and UTC was substituted.
func ResolveZone(tzid string) (Zone, bool) {
	norm := normalizeTZID(tzid)
	if norm == "" || norm == "utc" || norm == "z" || norm == "etc/utc" || norm == "gmt" {
		return UTC, true
	}

	for _, entry := range usAliases {
		for _, alias := range entry.aliases {
			if norm == alias {
				return entry.zone, true
			}
		}
	}
	// Loose match for decorated ids such as "America/New_York (EST)".
	for _, entry := range usAliases {
		for _, alias := range entry.aliases {
			if strings.Contains(alias, "/") && strings.Contains(norm, alias) {
				return entry.zone, true
			}
		}
	}

	if iana, ok := windowsZones[norm]; ok {
		if iana == "UTC" {
			return UTC, true
		}
		if loc, err := time.LoadLocation(iana); err == nil {
			return locationZone{loc: loc}, true
		}
	}

	if loc, err := time.LoadLocation(strings.Trim(strings.TrimSpace(tzid), `"`)); err == nil {
		return locationZone{loc: loc}, true
	}
	return UTC, false
}

func normalizeTZID(tzid string) string {
	s := strings.ToLower(strings.Trim(strings.TrimSpace(tzid), `"`))
	// Mozilla-style ids: /mozilla.org/20050126_1/America/New_York
	if i := strings.Index(s, "america/"); i > 0 {
		s = s[i:]
	}
	return strings.TrimPrefix(s, "/")
}

// fields rebuilds t's wall-clock fields in loc.
func fields(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

// nthWeekday returns midnight of the nth weekday of a month. Negative n
// counts from the end of the month. The zero time is returned when the month
// has no such day.
func nthWeekday(year int, month time.Month, day time.Weekday, n int) time.Time {
	if n > 0 {
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		delta := (int(day) - int(first.Weekday()) + 7) % 7
		d := first.AddDate(0, 0, delta+7*(n-1))
		if d.Month() != month {
			return time.Time{}
		}
		return d
	}
	if n < 0 {
		last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
		delta := (int(last.Weekday()) - int(day) + 7) % 7
		d := last.AddDate(0, 0, -delta+7*(n+1))
		if d.Month() != month {
			return time.Time{}
		}
		return d
	}
	return time.Time{}
}
