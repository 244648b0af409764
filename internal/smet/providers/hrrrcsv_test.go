package providers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/i474232898/mesowest-smet/internal/smet"
)

const hrrrCSV = `INIT (YYYYMMDDHH UTC),T2m (K),RH2m (%),TSFC (K),Snowfall (cm),Wind Speed 10m (m/s),Wind Direction 10 m (deg),Downward Short Wave (W/m2),Extra
2024072000,280.0,45.0,270.0,0.0,3.0,200.0,0.0,x
2024072001,281.0,40.0,271.0,1.0,2.0,90.0,300.0,x
2024072002,282.0,,272.0,nan,3.0,100.0,310.0,x
`

func TestParseHRRRCSV(t *testing.T) {
	frame, err := ParseHRRRCSV(strings.NewReader(hrrrCSV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frame.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(frame.Rows))
	}

	r := frame.Rows[1]
	if !r.InitTime.Equal(time.Date(2024, 7, 20, 1, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected init time: %v", r.InitTime)
	}
	if *r.AirTempK != 281 || *r.RelHumidityPct != 40 || *r.SnowfallCm != 1 || *r.ShortwaveWM2 != 300 {
		t.Fatalf("unexpected row: %+v", r)
	}

	last := frame.Rows[2]
	if last.RelHumidityPct != nil || last.SnowfallCm != nil {
		t.Fatal("empty and nan cells should be absent")
	}
}

func TestParseHRRRCSVMissingColumn(t *testing.T) {
	_, err := ParseHRRRCSV(strings.NewReader("INIT (YYYYMMDDHH UTC),T2m (K)\n2024072000,280\n"))
	if err == nil || !strings.Contains(err.Error(), "missing column") {
		t.Fatalf("expected missing column error, got %v", err)
	}
}

func TestParseHRRRCSVBadInitTime(t *testing.T) {
	bad := strings.Replace(hrrrCSV, "2024072001", "tomorrow", 1)
	if _, err := ParseHRRRCSV(strings.NewReader(bad)); err == nil {
		t.Fatal("expected error for bad init time")
	}
}

func TestHRRRCSVProviderTrimsToHours(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hrrr.csv")
	if err := os.WriteFile(path, []byte(hrrrCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewHRRRCSVProvider(path)
	frame, err := p.FetchForecast(context.Background(), smet.ForecastRequest{Hours: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frame.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(frame.Rows))
	}

	if _, err := NewHRRRCSVProvider("").FetchForecast(context.Background(), smet.ForecastRequest{Hours: 2}); err == nil {
		t.Fatal("expected error without a path")
	}
	if _, err := NewHRRRCSVProvider(filepath.Join(t.TempDir(), "missing.csv")).FetchForecast(context.Background(), smet.ForecastRequest{Hours: 2}); err == nil {
		t.Fatal("expected error for a missing file")
	}
}
