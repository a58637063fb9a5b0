package utils

import (
	"fmt"
	"strings"
	"time"
)

// Report producers emit ISO-8601 with or without a zone offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp returns a time from the provided ISO-8601 string or an error.
// Values without a zone are interpreted as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse time: unsupported format %q", value)
}

// NowUTC returns the current UTC time truncated to whole seconds, the resolution
// used for persisted lifecycle timestamps.
func NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
