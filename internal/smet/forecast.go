package smet

import (
	"time"
)

// ForecastRequest locates the grid point and window a forecast is wanted for.
type ForecastRequest struct {
	Latitude  float64
	Longitude float64
	Elevation float64 // meters
	Start     time.Time
	Hours     int
}

// ForecastRow is one forecast hour in provider units. Nil values are absent.
type ForecastRow struct {
	InitTime         time.Time
	AirTempK         *float64
	RelHumidityPct   *float64
	SurfaceTempK     *float64
	SnowfallCm       *float64
	WindSpeedMS      *float64
	WindDirectionDeg *float64
	ShortwaveWM2     *float64
}

// ForecastFrame is an ordered forecast table.
type ForecastFrame struct {
	Rows []ForecastRow
}

// ToSeries converts the frame into SMET units and re-stamps it onto the
// observation axis: row i is placed at lastObs + i hours and row 0, which
// overlaps the last observation, is dropped. Shortwave gets the same clamp as
// observed ISWR.
func (f ForecastFrame) ToSeries(lastObs time.Time, radiation Field) *Series {
	n := len(f.Rows) - 1
	if n < 0 {
		n = 0
	}

	s := &Series{
		Timestamps: make([]time.Time, 0, n),
		Columns:    make(map[Field][]float64, len(OutputFields)),
		Radiation:  radiation,
	}
	for _, field := range OutputFields {
		s.Columns[field] = make([]float64, 0, n)
	}

	for i := 1; i < len(f.Rows); i++ {
		r := f.Rows[i]
		s.Timestamps = append(s.Timestamps, lastObs.Add(time.Duration(i)*time.Hour))
		s.Columns[FieldTA] = append(s.Columns[FieldTA], valueOrNoData(r.AirTempK, identity))
		s.Columns[FieldRH] = append(s.Columns[FieldRH], valueOrNoData(r.RelHumidityPct, percentToFraction))
		s.Columns[FieldTSG] = append(s.Columns[FieldTSG], FreezingK)
		s.Columns[FieldTSS] = append(s.Columns[FieldTSS], valueOrNoData(r.SurfaceTempK, identity))
		s.Columns[FieldHS] = append(s.Columns[FieldHS], valueOrNoData(r.SnowfallCm, centimetersToMeters))
		s.Columns[FieldVW] = append(s.Columns[FieldVW], valueOrNoData(r.WindSpeedMS, identity))
		s.Columns[FieldDW] = append(s.Columns[FieldDW], valueOrNoData(r.WindDirectionDeg, identity))
		s.Columns[FieldISWR] = append(s.Columns[FieldISWR], valueOrNoData(r.ShortwaveWM2, clampRadiation))
	}
	return s
}

func valueOrNoData(v *float64, convert func(float64) float64) float64 {
	if v == nil {
		return NoData
	}
	return convert(*v)
}

func centimetersToMeters(v float64) float64 { return v / 100.0 }
