package transform

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedTimestamp is returned when a timestamp field cannot be parsed.
// It fails the whole batch.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// timestampLayouts are tried in order. Fractional seconds are accepted by
// time.Parse after the seconds field even though no layout spells them out.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// NormalizeTimestamp parses s, drops sub-second precision and discards the
// offset while keeping the wall clock. The result is in time.UTC so that it
// compares and formats as a naive value.
func NormalizeTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrMalformedTimestamp)
	}
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return Naive(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
}

// Naive returns t's wall clock at second precision, relocated to UTC.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
