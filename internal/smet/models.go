package smet

import (
	"time"
)

const (
	// NoData is the sentinel written for every absent sample.
	NoData = -999.0

	// FreezingK is 0 °C in Kelvin. Ground temperature is not measured and is
	// assumed to sit at this value.
	FreezingK = 273.15

	// FeetToMeters converts the provider's elevation into SMET altitude.
	FeetToMeters = 0.3048

	// DefaultSource is the provenance string written into the header.
	DefaultSource = "University of Utah EFD Lab"

	// TimeZone is the fixed tz header value expected by the model.
	TimeZone = 1
)

// Field names a physical quantity carried through the pipeline.
type Field string

const (
	FieldTA   Field = "TA"   // air temperature, K
	FieldRH   Field = "RH"   // relative humidity, fraction
	FieldTSG  Field = "TSG"  // ground surface temperature, K
	FieldTSS  Field = "TSS"  // snow surface temperature, K
	FieldHS   Field = "HS"   // snow height, m
	FieldVW   Field = "VW"   // wind speed, m/s
	FieldDW   Field = "DW"   // wind direction, degrees
	FieldISWR Field = "ISWR" // incoming shortwave, W/m2
	FieldRSWR Field = "RSWR" // reflected shortwave, W/m2
)

// OutputFields is the column order of every data line. The radiation column
// is always declared as ISWR, even when it was filled from RSWR.
var OutputFields = []Field{FieldTA, FieldRH, FieldTSG, FieldTSS, FieldHS, FieldVW, FieldDW, FieldISWR}

// Station is the header metadata of a SMET file.
type Station struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"` // meters
	TZ        int     `json:"tz"`
	Source    string  `json:"source"`
}

// RawSeries is the provider's view of a station time series before any unit
// handling. A nil entry in a field slice is an absent sample; a field missing
// from Fields was not reported at all.
type RawSeries struct {
	Timestamps []time.Time
	Fields     map[Field][]*float64
}

// Observations is what a Fetcher hands to the pipeline.
type Observations struct {
	Station Station
	Raw     RawSeries
}

// Series is a normalized, sentinel-filled time series. Every column has the
// same length as Timestamps.
type Series struct {
	Timestamps []time.Time
	Columns    map[Field][]float64

	// Radiation records which provider field fed the ISWR column.
	Radiation Field
}

// Len returns the number of samples.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Timestamps)
}

// Last returns the timestamp of the final sample.
func (s *Series) Last() (time.Time, bool) {
	if s.Len() == 0 {
		return time.Time{}, false
	}
	return s.Timestamps[len(s.Timestamps)-1], true
}

// Concat returns a new series holding s followed by other. Columns missing
// from either side are padded with NoData.
func (s *Series) Concat(other *Series) *Series {
	out := &Series{
		Timestamps: make([]time.Time, 0, s.Len()+other.Len()),
		Columns:    make(map[Field][]float64, len(OutputFields)),
		Radiation:  s.Radiation,
	}
	out.Timestamps = append(out.Timestamps, s.Timestamps...)
	out.Timestamps = append(out.Timestamps, other.Timestamps...)

	for _, f := range OutputFields {
		col := make([]float64, 0, len(out.Timestamps))
		col = append(col, columnOrNoData(s, f)...)
		col = append(col, columnOrNoData(other, f)...)
		out.Columns[f] = col
	}
	return out
}

func columnOrNoData(s *Series, f Field) []float64 {
	if c, ok := s.Columns[f]; ok && len(c) == s.Len() {
		return c
	}
	c := make([]float64, s.Len())
	for i := range c {
		c[i] = NoData
	}
	return c
}

// RunRequest describes one invocation of the pipeline.
type RunRequest struct {
	StationID string
	Start     string // YYYYMMDDHHMM or YYYYMMDDHHmmss, UTC
	End       string
	Plot      bool
	Forecast  bool
}

// RunResult summarizes a completed run.
type RunResult struct {
	ID              string    `json:"id"`
	Station         Station   `json:"station"`
	Start           string    `json:"start"`
	End             string    `json:"end"`
	StartedAt       time.Time `json:"startedAt"`
	FinishedAt      time.Time `json:"finishedAt"`
	OutputPath      string    `json:"outputPath"`
	Samples         int       `json:"samples"`
	ForecastSamples int       `json:"forecastSamples"`
	LastTimestamp   time.Time `json:"lastTimestamp"`
	Radiation       Field     `json:"radiation"`
	Interpolated    int       `json:"interpolated"`
	Corrected       int       `json:"corrected"`
	ForecastError   string    `json:"forecastError,omitempty"`
	PlotPath        string    `json:"plotPath,omitempty"`
}
