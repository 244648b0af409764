package smet

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	// EndMarkerFile holds the last timestamp written to the SMET file.
	EndMarkerFile = "smet_end_datetime.dat"
	// CurrentMarkerFile holds the wall-clock time of the run.
	CurrentMarkerFile = "smet_current_datetime.dat"

	// lookahead is how far past now the *_10 fields of the current marker point.
	lookahead = 14 * 24 * time.Hour
)

var errNoDataLine = errors.New("smet file has no data lines")

// WriteEndMarker reads the last line of the SMET file at smetPath and writes
// its date components to markerPath as key = value lines.
func WriteEndMarker(smetPath, markerPath string) error {
	last, err := lastLine(smetPath)
	if err != nil {
		return err
	}
	if len(last) < 16 || strings.HasPrefix(last, "[") {
		return fmt.Errorf("%s: %w", smetPath, errNoDataLine)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "end_year = %s\n", last[0:4])
	fmt.Fprintf(&b, "end_month = %s\n", last[5:7])
	fmt.Fprintf(&b, "end_day = %s\n", last[8:10])
	fmt.Fprintf(&b, "end_hour = %s\n", last[11:13])
	fmt.Fprintf(&b, "end_min = %s\n", last[14:16])

	return os.WriteFile(markerPath, []byte(b.String()), 0o644)
}

// WriteCurrentMarker writes the run time, plus the day and month two weeks
// ahead, to markerPath. Minutes are always 00.
func WriteCurrentMarker(now time.Time, markerPath string) error {
	now = now.UTC()
	ahead := now.Add(lookahead)

	var b strings.Builder
	fmt.Fprintf(&b, "current_year = %s\n", now.Format("2006"))
	fmt.Fprintf(&b, "current_month = %s\n", now.Format("01"))
	fmt.Fprintf(&b, "current_mon_10 = %s\n", ahead.Format("01"))
	fmt.Fprintf(&b, "current_day = %s\n", now.Format("02"))
	fmt.Fprintf(&b, "current_10 = %s\n", ahead.Format("02"))
	fmt.Fprintf(&b, "current_hour = %s\n", now.Format("15"))
	b.WriteString("current_min = 00\n")

	return os.WriteFile(markerPath, []byte(b.String()), 0o644)
}

func lastLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var last string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := sc.Text(); strings.TrimSpace(line) != "" {
			last = line
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return last, nil
}
