package plot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/i474232898/mesowest-smet/internal/smet"
)

func series() *smet.Series {
	base := time.Date(2024, 10, 5, 0, 0, 0, 0, time.UTC)
	s := &smet.Series{Columns: map[smet.Field][]float64{}, Radiation: smet.FieldISWR}
	for i := 0; i < 6; i++ {
		s.Timestamps = append(s.Timestamps, base.Add(time.Duration(i)*time.Hour))
	}
	for _, f := range smet.OutputFields {
		s.Columns[f] = []float64{1, 2, smet.NoData, 4, 5, 6}
	}
	s.Columns[smet.FieldHS] = []float64{smet.NoData, smet.NoData, smet.NoData, smet.NoData, smet.NoData, smet.NoData}
	return s
}

func TestPlotWritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "UKALF_timeseries.png")

	p := New()
	if err := p.Plot(smet.Station{ID: "UKALF", Name: "Atwater"}, series(), path); err != nil {
		t.Fatalf("Plot() error = %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read figure: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Fatal("figure is not a PNG")
	}
}

func TestPointsSkipsNoData(t *testing.T) {
	pts := points(series(), smet.FieldRH, 100)
	if len(pts) != 5 {
		t.Fatalf("expected 5 points, got %d", len(pts))
	}
	if pts[2].Y != 400 {
		t.Fatalf("expected scaled value 400, got %v", pts[2].Y)
	}
	if len(points(series(), smet.FieldHS, 1)) != 0 {
		t.Fatal("all-missing column should yield no points")
	}
}
