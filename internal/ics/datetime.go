package ics

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout      = "20060102"
	wallLayout      = "20060102T150405"
	utcLayout       = "20060102T150405Z"
	occurrenceStamp = "20060102T150405Z"
)

// dateValue is a decoded DATE or DATE-TIME value before timezone resolution.
type dateValue struct {
	wall   time.Time // wall clock fields, location UTC
	isDate bool
	isUTC  bool
	tzid   string
}

// parseDateValue decodes a DTSTART-like property. VALUE=DATE forces a date
// even when the value is longer than eight characters.
func parseDateValue(prop Property) (dateValue, error) {
	raw := strings.TrimSpace(prop.Value)
	dv := dateValue{tzid: prop.Param("TZID")}

	if strings.EqualFold(prop.Param("VALUE"), "DATE") && len(raw) >= 8 {
		raw = raw[:8]
	}

	var err error
	switch {
	case len(raw) == 8:
		dv.wall, err = time.Parse(dateLayout, raw)
		dv.isDate = true
	case len(raw) == 16 && (raw[15] == 'Z' || raw[15] == 'z'):
		dv.wall, err = time.Parse(utcLayout, strings.ToUpper(raw))
		dv.isUTC = true
	case len(raw) == 15:
		dv.wall, err = time.Parse(wallLayout, raw)
	default:
		err = fmt.Errorf("unrecognised date format %q", raw)
	}
	if err != nil {
		return dateValue{}, fmt.Errorf("%s: %w", prop.Name, err)
	}
	return dv, nil
}

// parseDuration decodes an RFC 5545 DURATION such as PT1H30M, P1D or -P1W.
func parseDuration(s string) (time.Duration, error) {
	orig := s
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	sign := time.Duration(1)
	switch s[0] {
	case '-':
		sign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") || len(s) < 2 {
		return 0, fmt.Errorf("invalid duration %q", orig)
	}
	s = s[1:]

	var (
		total  time.Duration
		inTime bool
		num    strings.Builder
	)
	for _, r := range s {
		switch {
		case r == 'T':
			inTime = true
		case r >= '0' && r <= '9':
			num.WriteRune(r)
		default:
			if num.Len() == 0 {
				return 0, fmt.Errorf("invalid duration %q", orig)
			}
			n, err := strconv.Atoi(num.String())
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: %w", orig, err)
			}
			num.Reset()
			v := time.Duration(n)
			switch {
			case r == 'W' && !inTime:
				total += v * 7 * 24 * time.Hour
			case r == 'D' && !inTime:
				total += v * 24 * time.Hour
			case r == 'H' && inTime:
				total += v * time.Hour
			case r == 'M' && inTime:
				total += v * time.Minute
			case r == 'S' && inTime:
				total += v * time.Second
			default:
				return 0, fmt.Errorf("invalid duration %q", orig)
			}
		}
	}
	if num.Len() > 0 {
		return 0, fmt.Errorf("invalid duration %q: trailing number", orig)
	}
	return sign * total, nil
}
