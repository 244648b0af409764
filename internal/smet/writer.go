package smet

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	smetSignature = "SMET 1.1 ASCII"

	// TimestampLayout is the data-line timestamp: ISO 8601 without zone.
	TimestampLayout = "2006-01-02T15:04:05"
)

// FileName returns the SMET file name for a station.
func FileName(stationID string) string {
	return stationID + ".smet"
}

// FieldsHeader is the value of the header's fields line.
func FieldsHeader() string {
	names := make([]string, 0, len(OutputFields)+1)
	names = append(names, "timestamp")
	for _, f := range OutputFields {
		names = append(names, string(f))
	}
	return strings.Join(names, " ")
}

// Write renders a complete SMET document: header followed by one data line
// per sample.
func Write(w io.Writer, st Station, s *Series) error {
	if err := checkShape(s); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	writeHeader(bw, st)
	if err := writeRows(bw, s); err != nil {
		return err
	}
	return bw.Flush()
}

// AppendRows writes data lines only. It is used to extend an existing file
// without touching its header.
func AppendRows(w io.Writer, s *Series) error {
	if err := checkShape(s); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	if err := writeRows(bw, s); err != nil {
		return err
	}
	return bw.Flush()
}

func checkShape(s *Series) error {
	n := s.Len()
	for _, f := range OutputFields {
		col, ok := s.Columns[f]
		if !ok {
			return &FormatMismatchError{Field: f, Got: 0, Want: n}
		}
		if len(col) != n {
			return &FormatMismatchError{Field: f, Got: len(col), Want: n}
		}
	}
	return nil
}

func writeHeader(w *bufio.Writer, st Station) {
	source := st.Source
	if source == "" {
		source = DefaultSource
	}
	tz := st.TZ
	if tz == 0 {
		tz = TimeZone
	}

	w.WriteString(smetSignature + "\n")
	w.WriteString("[HEADER]\n")
	headerLine(w, "station_id", st.ID)
	headerLine(w, "station_name", st.Name)
	headerLine(w, "latitude", formatHeaderFloat(st.Latitude))
	headerLine(w, "longitude", formatHeaderFloat(st.Longitude))
	headerLine(w, "altitude", formatHeaderFloat(st.Altitude))
	headerLine(w, "nodata", strconv.Itoa(int(NoData)))
	headerLine(w, "tz", strconv.Itoa(tz))
	headerLine(w, "source", source)
	headerLine(w, "fields", FieldsHeader())
	w.WriteString("[DATA]\n")
}

// headerLine pads keys so that every '=' lines up in column 18.
func headerLine(w *bufio.Writer, key, value string) {
	fmt.Fprintf(w, "%-17s= %s\n", key, value)
}

func writeRows(w *bufio.Writer, s *Series) error {
	cols := make([][]float64, len(OutputFields))
	for i, f := range OutputFields {
		cols[i] = s.Columns[f]
	}

	var line []byte
	for i, ts := range s.Timestamps {
		line = line[:0]
		line = ts.AppendFormat(line, TimestampLayout)
		for _, col := range cols {
			line = append(line, ' ')
			line = strconv.AppendFloat(line, col[i], 'f', 2, 64)
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}

// formatHeaderFloat renders the shortest representation that round-trips,
// always keeping one decimal ("40.0", "1524.0").
func formatHeaderFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}
