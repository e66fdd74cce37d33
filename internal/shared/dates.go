package shared

import (
	"strings"
	"time"
)

// DateLayout is the wire format for date-only values.
const DateLayout = "2006-01-02"

// DateOf drops the clock part of t, keeping its calendar day as UTC midnight.
// Dates are calendar values, never instants, so no timezone conversion happens.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a date-only value.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a date in one of the accepted layouts. Blank input yields
// nil without error.
func ParseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{DateLayout, time.RFC3339, "02.01.2006", "2006/01/02", "02-01-2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			d := DateOf(t)
			return &d, nil
		}
	}
	return nil, Validation("date", "%q is not a valid date", raw)
}

// FormatDate renders d in DateLayout, or "" for nil.
func FormatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(DateLayout)
}
