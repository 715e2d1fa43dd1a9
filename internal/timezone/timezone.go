// Package timezone parses the timestamps flight providers send. Itinerary
// times are airport-local wall clock; when a timestamp has no offset it is
// kept as wall clock in the fallback location (UTC unless told otherwise).
package timezone

import (
	"strings"
	"time"
)

var offsetFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700", // Without colon
	"2006-01-02T15:04-07:00",
}

var wallClockFormats = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// Location resolves an IANA name, returning UTC for empty or unknown names.
func Location(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "UTC") {
		return time.UTC
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.UTC
}

// Parse reads s with an explicit offset if it has one, otherwise as wall
// clock in loc. A nil loc means UTC.
func Parse(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, format := range offsetFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	if loc == nil {
		loc = time.UTC
	}
	for _, format := range wallClockFormats {
		if t, err := time.ParseInLocation(format, s, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &time.ParseError{
		Value:   s,
		Message: "unable to parse time string",
	}
}
