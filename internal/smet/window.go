package smet

import (
	"fmt"
	"time"
)

const (
	// QueryTimeLayout is the provider's start/end format.
	QueryTimeLayout = "200601021504"
	// queryTimeLayoutSeconds is accepted as well and passed through untouched.
	queryTimeLayoutSeconds = "20060102150405"
)

// SeasonStart returns 5 October 00:00 UTC of the snow season containing now.
func SeasonStart(now time.Time) time.Time {
	now = now.UTC()
	year := now.Year()
	if now.Month() < time.October {
		year--
	}
	return time.Date(year, time.October, 5, 0, 0, 0, 0, time.UTC)
}

// DefaultWindow returns the query window used when none is given: season
// start through the current hour.
func DefaultWindow(now time.Time) (start, end string) {
	now = now.UTC()
	end = time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, time.UTC).Format(QueryTimeLayout)
	return SeasonStart(now).Format(QueryTimeLayout), end
}

// ParseQueryTime parses a YYYYMMDDHHMM or YYYYMMDDHHmmss UTC string.
func ParseQueryTime(s string) (time.Time, error) {
	switch len(s) {
	case len(QueryTimeLayout):
		return time.Parse(QueryTimeLayout, s)
	case len(queryTimeLayoutSeconds):
		return time.Parse(queryTimeLayoutSeconds, s)
	default:
		return time.Time{}, fmt.Errorf("query time %q: want YYYYMMDDHHMM or YYYYMMDDHHmmss", s)
	}
}
