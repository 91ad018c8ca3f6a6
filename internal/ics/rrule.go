package ics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultHorizonMonths bounds expansion after ExpandOptions.From.
	DefaultHorizonMonths = 6
	// DefaultMaxOccurrences caps the instances emitted for one event.
	DefaultMaxOccurrences = 365

	// maxPeriods stops runaway rules whose periods never produce a candidate.
	maxPeriods = 200000
)

var weekdayCodes = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

// ParseRRule parses an RRULE value such as "FREQ=WEEKLY;BYDAY=MO,WE;COUNT=10".
// Unsupported parts are ignored. A missing or unknown FREQ is an error.
func ParseRRule(s string) (*RRule, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 6 && strings.EqualFold(s[:6], "RRULE:") {
		s = s[6:]
	}

	rule := &RRule{Interval: 1}
	for _, part := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		k = strings.ToUpper(strings.TrimSpace(k))
		v = strings.TrimSpace(v)

		switch k {
		case "FREQ":
			rule.Freq = Frequency(strings.ToUpper(v))
		case "INTERVAL":
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid RRULE INTERVAL %q", v)
			}
			rule.Interval = n
		case "COUNT":
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid RRULE COUNT %q", v)
			}
			rule.Count = n
		case "UNTIL":
			dv, err := parseDateValue(Property{Name: "UNTIL", Value: v})
			if err != nil {
				return nil, fmt.Errorf("invalid RRULE: %w", err)
			}
			switch {
			case dv.isDate:
				rule.Until = dv.wall.Add(24*time.Hour - time.Second)
				rule.untilWall = true
			case dv.isUTC:
				rule.Until = dv.wall
			default:
				rule.Until = dv.wall
				rule.untilWall = true
			}
		case "BYDAY":
			for _, code := range strings.Split(v, ",") {
				wd, err := parseWeekdayNum(code)
				if err != nil {
					return nil, err
				}
				rule.ByDay = append(rule.ByDay, wd)
			}
		case "BYMONTHDAY":
			for _, raw := range strings.Split(v, ",") {
				n, err := strconv.Atoi(strings.TrimSpace(raw))
				if err != nil || n == 0 || n < -31 || n > 31 {
					return nil, fmt.Errorf("invalid RRULE BYMONTHDAY %q", raw)
				}
				rule.ByMonthDay = append(rule.ByMonthDay, n)
			}
		}
	}

	switch rule.Freq {
	case Daily, Weekly, Monthly, Yearly:
	case "":
		return nil, fmt.Errorf("RRULE without FREQ")
	default:
		return nil, fmt.Errorf("unsupported RRULE FREQ %q", rule.Freq)
	}
	return rule, nil
}

func parseWeekdayNum(code string) (WeekdayNum, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 2 {
		return WeekdayNum{}, fmt.Errorf("invalid RRULE BYDAY %q", code)
	}
	day, ok := weekdayCodes[code[len(code)-2:]]
	if !ok {
		return WeekdayNum{}, fmt.Errorf("invalid RRULE BYDAY %q", code)
	}
	wd := WeekdayNum{Day: day}
	if prefix := code[:len(code)-2]; prefix != "" {
		n, err := strconv.Atoi(prefix)
		if err != nil || n == 0 || n < -5 || n > 5 {
			return WeekdayNum{}, fmt.Errorf("invalid RRULE BYDAY %q", code)
		}
		wd.N = n
	}
	return wd, nil
}

// String renders the rule back to RRULE syntax.
func (r *RRule) String() string {
	parts := []string{"FREQ=" + string(r.Freq)}
	if r.Interval > 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(r.Interval))
	}
	if r.Count > 0 {
		parts = append(parts, "COUNT="+strconv.Itoa(r.Count))
	}
	if !r.Until.IsZero() {
		layout := utcLayout
		if r.untilWall {
			layout = wallLayout
		}
		parts = append(parts, "UNTIL="+r.Until.Format(layout))
	}
	if len(r.ByDay) > 0 {
		codes := make([]string, len(r.ByDay))
		for i, wd := range r.ByDay {
			code := strings.ToUpper(wd.Day.String()[:2])
			if wd.N != 0 {
				code = strconv.Itoa(wd.N) + code
			}
			codes[i] = code
		}
		parts = append(parts, "BYDAY="+strings.Join(codes, ","))
	}
	if len(r.ByMonthDay) > 0 {
		days := make([]string, len(r.ByMonthDay))
		for i, d := range r.ByMonthDay {
			days[i] = strconv.Itoa(d)
		}
		parts = append(parts, "BYMONTHDAY="+strings.Join(days, ","))
	}
	return strings.Join(parts, ";")
}

// ExpandOptions bounds recurrence expansion.
type ExpandOptions struct {
	// From drops occurrences that end before it. Zero means no lower bound.
	From time.Time
	// Horizon stops expansion. Zero means From plus DefaultHorizonMonths.
	Horizon time.Time
	// MaxOccurrences caps emitted instances per event. Zero means
	// DefaultMaxOccurrences.
	MaxOccurrences int
}

func (o ExpandOptions) withDefaults() ExpandOptions {
	if o.MaxOccurrences <= 0 {
		o.MaxOccurrences = DefaultMaxOccurrences
	}
	if o.Horizon.IsZero() {
		base := o.From
		if base.IsZero() {
			base = time.Now()
		}
		o.Horizon = base.AddDate(0, DefaultHorizonMonths, 0)
	}
	return o
}

// OccurrenceUID identifies one instance of a recurring event.
func OccurrenceUID(uid string, start time.Time) string {
	return uid + "_" + start.UTC().Format(occurrenceStamp)
}

// Expand returns the instances of ev inside the options window. A
// non-recurring event yields itself unless it ended before From.
func Expand(ev Event, opts ExpandOptions) []Occurrence {
	opts = opts.withDefaults()

	if ev.RRule == nil {
		if !opts.From.IsZero() && ev.End.Before(opts.From) {
			return nil
		}
		return []Occurrence{{Event: ev, OccurrenceUID: ev.UID}}
	}

	zone := ev.zone
	if zone == nil {
		zone = UTC
	}
	wallStart := ev.wallStart
	if wallStart.IsZero() {
		wallStart = fields(ev.Start, time.UTC)
	}
	rule := ev.RRule
	duration := ev.Duration()

	var (
		out     []Occurrence
		counted int
	)
	for period := 0; period < maxPeriods; period++ {
		anchor, candidates := periodCandidates(rule, wallStart, period)
		if zone.ToUTC(anchor).After(opts.Horizon) {
			break
		}
		if rule.untilWall && !rule.Until.IsZero() && anchor.After(rule.Until) {
			break
		}

		for _, wall := range candidates {
			if wall.Before(wallStart) {
				continue
			}
			start := zone.ToUTC(wall)

			if !rule.Until.IsZero() {
				if rule.untilWall && wall.After(rule.Until) {
					return out
				}
				if !rule.untilWall && start.After(rule.Until) {
					return out
				}
			}
			if start.After(opts.Horizon) {
				return out
			}

			counted++
			if rule.Count > 0 && counted > rule.Count {
				return out
			}
			if isExcluded(ev.ExDates, start) {
				continue
			}
			end := start.Add(duration)
			if !opts.From.IsZero() && end.Before(opts.From) {
				continue
			}

			occ := Occurrence{Event: ev, Recurring: true}
			occ.Start = start
			occ.End = end
			occ.OccurrenceUID = OccurrenceUID(ev.UID, start)
			out = append(out, occ)
			if len(out) >= opts.MaxOccurrences {
				return out
			}
		}
	}
	return out
}

func isExcluded(exdates []time.Time, start time.Time) bool {
	for _, ex := range exdates {
		if ex.Equal(start) {
			return true
		}
	}
	return false
}

// periodCandidates returns the wall-clock start of the n-th period and the
// sorted candidate starts inside it. Candidates may precede DTSTART in the
// first period; the caller filters those.
func periodCandidates(rule *RRule, wallStart time.Time, n int) (time.Time, []time.Time) {
	step := n * rule.Interval
	h, m, s := wallStart.Clock()
	at := func(y int, mo time.Month, d int) time.Time {
		return time.Date(y, mo, d, h, m, s, 0, time.UTC)
	}

	switch rule.Freq {
	case Daily:
		day := wallStart.AddDate(0, 0, step)
		if len(rule.ByDay) > 0 && !hasWeekday(rule.ByDay, day.Weekday()) {
			return day, nil
		}
		return day, []time.Time{day}

	case Weekly:
		if len(rule.ByDay) == 0 {
			day := wallStart.AddDate(0, 0, 7*step)
			return day, []time.Time{day}
		}
		offset := (int(wallStart.Weekday()) + 6) % 7
		monday := wallStart.AddDate(0, 0, -offset+7*step)
		anchor := at(monday.Year(), monday.Month(), monday.Day())
		var out []time.Time
		for _, wd := range rule.ByDay {
			out = append(out, anchor.AddDate(0, 0, (int(wd.Day)+6)%7))
		}
		return anchor, sortUnique(out)

	case Monthly:
		first := time.Date(wallStart.Year(), wallStart.Month()+time.Month(step), 1, 0, 0, 0, 0, time.UTC)
		y, mo := first.Year(), first.Month()
		dim := daysIn(y, mo)
		var out []time.Time
		switch {
		case len(rule.ByMonthDay) > 0:
			for _, d := range rule.ByMonthDay {
				if d < 0 {
					d = dim + d + 1
				}
				if d >= 1 && d <= dim {
					out = append(out, at(y, mo, d))
				}
			}
		case len(rule.ByDay) > 0:
			for _, wd := range rule.ByDay {
				if wd.N != 0 {
					if d := nthWeekday(y, mo, wd.Day, wd.N); !d.IsZero() {
						out = append(out, at(y, mo, d.Day()))
					}
					continue
				}
				for i := 1; i <= 5; i++ {
					if d := nthWeekday(y, mo, wd.Day, i); !d.IsZero() {
						out = append(out, at(y, mo, d.Day()))
					}
				}
			}
		default:
			if d := wallStart.Day(); d <= dim {
				out = append(out, at(y, mo, d))
			}
		}
		return at(y, mo, 1), sortUnique(out)

	case Yearly:
		y := wallStart.Year() + step
		anchor := at(y, time.January, 1)
		mo := wallStart.Month()
		if len(rule.ByMonthDay) > 0 {
			dim := daysIn(y, mo)
			var out []time.Time
			for _, d := range rule.ByMonthDay {
				if d < 0 {
					d = dim + d + 1
				}
				if d >= 1 && d <= dim {
					out = append(out, at(y, mo, d))
				}
			}
			return anchor, sortUnique(out)
		}
		if wallStart.Day() > daysIn(y, mo) {
			return anchor, nil
		}
		return anchor, []time.Time{at(y, wallStart.Month(), wallStart.Day())}
	}
	return wallStart, nil
}

func hasWeekday(days []WeekdayNum, wd time.Weekday) bool {
	for _, d := range days {
		if d.Day == wd {
			return true
		}
	}
	return false
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func sortUnique(ts []time.Time) []time.Time {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
	out := ts[:0]
	for i, t := range ts {
		if i > 0 && t.Equal(ts[i-1]) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ExpandCalendar expands every event, applies RECURRENCE-ID overrides and
// returns the occurrences sorted by start. Duplicate occurrence UIDs keep
// the instance with the highest SEQUENCE.
func ExpandCalendar(cal *Calendar, opts ExpandOptions) []Occurrence {
	if cal == nil {
		return nil
	}
	opts = opts.withDefaults()

	overridden := make(map[string]bool)
	for _, ev := range cal.Events {
		if !ev.RecurrenceID.IsZero() {
			overridden[OccurrenceUID(ev.UID, ev.RecurrenceID)] = true
		}
	}

	byUID := make(map[string]Occurrence)
	var order []string
	add := func(occ Occurrence) {
		prev, seen := byUID[occ.OccurrenceUID]
		if !seen {
			order = append(order, occ.OccurrenceUID)
		}
		if !seen || occ.Sequence >= prev.Sequence {
			byUID[occ.OccurrenceUID] = occ
		}
	}

	for _, ev := range cal.Events {
		if !ev.RecurrenceID.IsZero() {
			if !opts.From.IsZero() && ev.End.Before(opts.From) {
				continue
			}
			if ev.Start.After(opts.Horizon) {
				continue
			}
			add(Occurrence{Event: ev, OccurrenceUID: OccurrenceUID(ev.UID, ev.RecurrenceID), Recurring: true})
			continue
		}
		for _, occ := range Expand(ev, opts) {
			if occ.Recurring && overridden[occ.OccurrenceUID] {
				continue
			}
			add(occ)
		}
	}

	out := make([]Occurrence, 0, len(order))
	for _, uid := range order {
		out = append(out, byUID[uid])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].OccurrenceUID < out[j].OccurrenceUID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}
