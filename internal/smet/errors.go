package smet

import (
	"errors"
	"fmt"
)

var (
	// ErrForecastUnavailable marks a forecast failure. It is logged and never
	// aborts a run.
	ErrForecastUnavailable = errors.New("forecast unavailable")

	// ErrNoSamples is wrapped in a FetchError when the window holds no
	// observations. No file is written in that case.
	ErrNoSamples = errors.New("no samples in window")

	// ErrInvalidCorrection is returned when a correction record fails validation.
	ErrInvalidCorrection = errors.New("invalid correction")
)

// FetchError wraps a failure to obtain observations for a station.
type FetchError struct {
	StationID string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch observations for %s: %v", e.StationID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MissingFieldError reports a required field absent from the response with no
// fallback available.
type MissingFieldError struct {
	Field Field
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required field %s missing from response", e.Field)
}

// FormatMismatchError reports a column whose length disagrees with the
// timestamp axis. It always indicates a bug upstream of the writer.
type FormatMismatchError struct {
	Field Field
	Got   int
	Want  int
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("field %s has %d samples, want %d", e.Field, e.Got, e.Want)
}
