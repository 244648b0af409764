package providers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/mesowest-smet/internal/smet"
)

// Column names of the HRRR snowpack extraction CSV.
const (
	hrrrColInit      = "INIT (YYYYMMDDHH UTC)"
	hrrrColAirTemp   = "T2m (K)"
	hrrrColRH        = "RH2m (%)"
	hrrrColSurface   = "TSFC (K)"
	hrrrColSnowfall  = "Snowfall (cm)"
	hrrrColWindSpeed = "Wind Speed 10m (m/s)"
	hrrrColWindDir   = "Wind Direction 10 m (deg)"
	hrrrColShortwave = "Downward Short Wave (W/m2)"
)

var hrrrRequired = []string{
	hrrrColInit, hrrrColAirTemp, hrrrColRH, hrrrColSurface,
	hrrrColSnowfall, hrrrColWindSpeed, hrrrColWindDir, hrrrColShortwave,
}

// HRRRCSVProvider implements smet.ForecastSource over a CSV written by the
// HRRR point-extraction tooling.
type HRRRCSVProvider struct {
	path string
}

func NewHRRRCSVProvider(path string) *HRRRCSVProvider {
	return &HRRRCSVProvider{path: path}
}

func (p *HRRRCSVProvider) Name() string {
	return "hrrr-csv"
}

// FetchForecast reads the file; the request's window trims the frame to at
// most req.Hours rows.
func (p *HRRRCSVProvider) FetchForecast(ctx context.Context, req smet.ForecastRequest) (smet.ForecastFrame, error) {
	if err := ctx.Err(); err != nil {
		return smet.ForecastFrame{}, err
	}
	if p.path == "" {
		return smet.ForecastFrame{}, errors.New("hrrr csv path not configured")
	}

	f, err := os.Open(p.path)
	if err != nil {
		return smet.ForecastFrame{}, err
	}
	defer f.Close()

	frame, err := ParseHRRRCSV(f)
	if err != nil {
		return smet.ForecastFrame{}, fmt.Errorf("%s: %w", p.path, err)
	}
	if req.Hours > 0 && len(frame.Rows) > req.Hours {
		frame.Rows = frame.Rows[:req.Hours]
	}
	return frame, nil
}

// ParseHRRRCSV decodes an HRRR extraction table. Columns are matched by
// header name; extra columns are ignored.
func ParseHRRRCSV(r io.Reader) (smet.ForecastFrame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return smet.ForecastFrame{}, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range hrrrRequired {
		if _, ok := idx[col]; !ok {
			return smet.ForecastFrame{}, fmt.Errorf("missing column %q", col)
		}
	}

	var frame smet.ForecastFrame
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return smet.ForecastFrame{}, fmt.Errorf("line %d: %w", line, err)
		}

		cell := func(col string) string {
			if i := idx[col]; i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		initTime, err := time.Parse("2006010215", cell(hrrrColInit))
		if err != nil {
			return smet.ForecastFrame{}, fmt.Errorf("line %d: init time: %w", line, err)
		}

		frame.Rows = append(frame.Rows, smet.ForecastRow{
			InitTime:         initTime,
			AirTempK:         parseCell(cell(hrrrColAirTemp)),
			RelHumidityPct:   parseCell(cell(hrrrColRH)),
			SurfaceTempK:     parseCell(cell(hrrrColSurface)),
			SnowfallCm:       parseCell(cell(hrrrColSnowfall)),
			WindSpeedMS:      parseCell(cell(hrrrColWindSpeed)),
			WindDirectionDeg: parseCell(cell(hrrrColWindDir)),
			ShortwaveWM2:     parseCell(cell(hrrrColShortwave)),
		})
	}
	return frame, nil
}

// parseCell treats empty, NaN and non-numeric cells as absent.
func parseCell(s string) *float64 {
	var f flexFloat
	_ = f.UnmarshalJSON([]byte(strconv.Quote(s)))
	return f.Value
}
