package providers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/i474232898/mesowest-smet/internal/smet"
)

func TestOpenMeteoFetchForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		checks := map[string]string{
			"latitude":        "40.5",
			"longitude":       "-111.25",
			"models":          "gfs_hrrr",
			"wind_speed_unit": "ms",
			"timezone":        "GMT",
			"start_hour":      "2024-07-20T01:00",
			"end_hour":        "2024-07-20T03:00",
		}
		for k, want := range checks {
			if got := q.Get(k); got != want {
				t.Errorf("query %s = %q, want %q", k, got, want)
			}
		}
		io.WriteString(w, `{"hourly":{
		  "time": ["2024-07-20T01:00", "2024-07-20T02:00"],
		  "temperature_2m": [10, 11.5],
		  "relative_humidity_2m": [50, null],
		  "soil_temperature_0cm": [0, 1],
		  "snowfall": [0, 0.7],
		  "wind_speed_10m": [1, 2],
		  "wind_direction_10m": [90, 180],
		  "shortwave_radiation": [300]
		}}`)
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client(), srv.URL, BackoffConfig{})
	frame, err := p.FetchForecast(context.Background(), smet.ForecastRequest{
		Latitude:  40.5,
		Longitude: -111.25,
		Start:     time.Date(2024, 7, 20, 1, 30, 0, 0, time.UTC),
		Hours:     2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frame.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(frame.Rows))
	}

	r0, r1 := frame.Rows[0], frame.Rows[1]
	if *r0.AirTempK != 283.15 || *r1.AirTempK != 284.65 {
		t.Fatalf("air temperature not converted to kelvin: %v %v", *r0.AirTempK, *r1.AirTempK)
	}
	if *r0.SurfaceTempK != smet.FreezingK {
		t.Fatalf("unexpected surface temperature: %v", *r0.SurfaceTempK)
	}
	if r1.RelHumidityPct != nil {
		t.Fatalf("null humidity should be absent")
	}
	if *r1.SnowfallCm != 0.7 {
		t.Fatalf("unexpected snowfall: %v", *r1.SnowfallCm)
	}
	if r1.ShortwaveWM2 != nil {
		t.Fatalf("short hourly array should leave trailing rows absent")
	}
	if !r1.InitTime.Equal(time.Date(2024, 7, 20, 2, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected time: %v", r1.InitTime)
	}
}

func TestOpenMeteoRejectsNonPositiveHours(t *testing.T) {
	p := NewOpenMeteoProvider(http.DefaultClient, "", BackoffConfig{})
	if _, err := p.FetchForecast(context.Background(), smet.ForecastRequest{}); err == nil {
		t.Fatal("expected error for zero hours")
	}
}
