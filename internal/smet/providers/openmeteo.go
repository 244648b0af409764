package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/mesowest-smet/internal/smet"
)

// DefaultOpenMeteoURL is the Open-Meteo forecast endpoint.
const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

const openMeteoHourLayout = "2006-01-02T15:04"

var openMeteoHourly = []string{
	"temperature_2m",
	"relative_humidity_2m",
	"soil_temperature_0cm",
	"snowfall",
	"wind_speed_10m",
	"wind_direction_10m",
	"shortwave_radiation",
}

// OpenMeteoProvider implements smet.ForecastSource on top of Open-Meteo's
// HRRR model output.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	model   string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, baseURL string, backoff BackoffConfig) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		model:   "gfs_hrrr",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: backoff,
		},
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, req smet.ForecastRequest) (smet.ForecastFrame, error) {
	if req.Hours <= 0 {
		return smet.ForecastFrame{}, fmt.Errorf("openmeteo: forecast hours must be positive")
	}

	start := req.Start.UTC().Truncate(time.Hour)
	end := start.Add(time.Duration(req.Hours) * time.Hour)

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(req.Latitude, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(req.Longitude, 'f', -1, 64))
		if req.Elevation > 0 {
			values.Set("elevation", strconv.FormatFloat(req.Elevation, 'f', 1, 64))
		}
		values.Set("hourly", strings.Join(openMeteoHourly, ","))
		values.Set("models", p.model)
		values.Set("wind_speed_unit", "ms")
		values.Set("timezone", "GMT")
		values.Set("start_hour", start.Format(openMeteoHourLayout))
		values.Set("end_hour", end.Format(openMeteoHourLayout))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return smet.ForecastFrame{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Hourly struct {
			Time               []string    `json:"time"`
			Temperature2m      []flexFloat `json:"temperature_2m"`
			RelativeHumidity2m []flexFloat `json:"relative_humidity_2m"`
			SoilTemperature0cm []flexFloat `json:"soil_temperature_0cm"`
			Snowfall           []flexFloat `json:"snowfall"`
			WindSpeed10m       []flexFloat `json:"wind_speed_10m"`
			WindDirection10m   []flexFloat `json:"wind_direction_10m"`
			ShortwaveRadiation []flexFloat `json:"shortwave_radiation"`
		} `json:"hourly"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return smet.ForecastFrame{}, err
	}

	h := payload.Hourly
	frame := smet.ForecastFrame{Rows: make([]smet.ForecastRow, 0, len(h.Time))}
	for i, t := range h.Time {
		ts, err := time.Parse(openMeteoHourLayout, t)
		if err != nil {
			return smet.ForecastFrame{}, fmt.Errorf("openmeteo: bad time %q: %w", t, err)
		}
		frame.Rows = append(frame.Rows, smet.ForecastRow{
			InitTime:         ts,
			AirTempK:         kelvin(at(h.Temperature2m, i)),
			RelHumidityPct:   at(h.RelativeHumidity2m, i),
			SurfaceTempK:     kelvin(at(h.SoilTemperature0cm, i)),
			SnowfallCm:       at(h.Snowfall, i),
			WindSpeedMS:      at(h.WindSpeed10m, i),
			WindDirectionDeg: at(h.WindDirection10m, i),
			ShortwaveWM2:     at(h.ShortwaveRadiation, i),
		})
	}
	return frame, nil
}

// at tolerates hourly arrays shorter than the time axis.
func at(vals []flexFloat, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i].Value
}

func kelvin(c *float64) *float64 {
	if c == nil {
		return nil
	}
	k := *c + smet.FreezingK
	return &k
}
