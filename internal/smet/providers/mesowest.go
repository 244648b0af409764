package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/mesowest-smet/internal/smet"
)

// DefaultMesoWestURL is the station time-series endpoint.
const DefaultMesoWestURL = "http://api.mesowest.net/v2/stations/timeseries"

// mesoWestFields maps observation keys onto pipeline fields.
var mesoWestFields = map[string]smet.Field{
	"air_temp_set_1":              smet.FieldTA,
	"surface_temp_set_1":          smet.FieldTSS,
	"relative_humidity_set_1":     smet.FieldRH,
	"solar_radiation_set_1":       smet.FieldISWR,
	"outgoing_radiation_sw_set_1": smet.FieldRSWR,
	"wind_speed_set_1":            smet.FieldVW,
	"wind_direction_set_1":        smet.FieldDW,
	"snow_depth_set_1":            smet.FieldHS,
}

// Station timestamps come with a Z, a colon offset, a bare offset, or none.
var mesoWestTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// MesoWestProvider implements smet.Fetcher for the MesoWest/Synoptic API.
type MesoWestProvider struct {
	name    string
	token   string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewMesoWestProvider creates a fetcher. An empty baseURL selects the public
// endpoint.
func NewMesoWestProvider(client *http.Client, baseURL, token string, backoff BackoffConfig) *MesoWestProvider {
	if baseURL == "" {
		baseURL = DefaultMesoWestURL
	}
	return &MesoWestProvider{
		name:    "mesowest",
		token:   token,
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: backoff,
		},
		circuit: newCircuitBreaker("mesowest"),
	}
}

func (p *MesoWestProvider) Name() string {
	return p.name
}

type mesoWestPayload struct {
	Station []struct {
		STID         string                     `json:"STID"`
		Name         string                     `json:"NAME"`
		Latitude     flexFloat                  `json:"LATITUDE"`
		Longitude    flexFloat                  `json:"LONGITUDE"`
		ElevDEM      flexFloat                  `json:"ELEV_DEM"`
		Elevation    flexFloat                  `json:"ELEVATION"`
		Observations map[string]json.RawMessage `json:"OBSERVATIONS"`
	} `json:"STATION"`
	Summary *struct {
		ResponseCode    int    `json:"RESPONSE_CODE"`
		ResponseMessage string `json:"RESPONSE_MESSAGE"`
	} `json:"SUMMARY"`
}

func (p *MesoWestProvider) Fetch(ctx context.Context, q smet.ObservationQuery) (smet.Observations, error) {
	fail := func(err error) (smet.Observations, error) {
		return smet.Observations{}, &smet.FetchError{StationID: q.StationID, Err: err}
	}
	if q.StationID == "" {
		return fail(errors.New("station id is required"))
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("stid", q.StationID)
		values.Set("token", p.token)
		values.Set("start", q.Start)
		values.Set("end", q.End)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	var payload mesoWestPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fail(fmt.Errorf("decode response: %w", err))
	}
	if payload.Summary != nil && payload.Summary.ResponseCode != 0 && payload.Summary.ResponseCode != 1 {
		return fail(fmt.Errorf("api error %d: %s", payload.Summary.ResponseCode, payload.Summary.ResponseMessage))
	}
	if len(payload.Station) == 0 {
		return fail(errors.New("response contains no station"))
	}

	raw := payload.Station[0]
	elevFt := raw.ElevDEM.Float(raw.Elevation.Float(0))

	station := smet.Station{
		ID:        raw.STID,
		Name:      raw.Name,
		Latitude:  raw.Latitude.Float(0),
		Longitude: raw.Longitude.Float(0),
		Altitude:  elevFt * smet.FeetToMeters,
	}
	if station.ID == "" {
		station.ID = q.StationID
	}

	series, err := decodeMesoWestObservations(raw.Observations)
	if err != nil {
		return fail(err)
	}

	return smet.Observations{Station: station, Raw: series}, nil
}

func decodeMesoWestObservations(obs map[string]json.RawMessage) (smet.RawSeries, error) {
	rawTimes, ok := obs["date_time"]
	if !ok {
		return smet.RawSeries{}, errors.New("observations carry no date_time")
	}
	var stamps []string
	if err := json.Unmarshal(rawTimes, &stamps); err != nil {
		return smet.RawSeries{}, fmt.Errorf("decode date_time: %w", err)
	}

	series := smet.RawSeries{
		Timestamps: make([]time.Time, len(stamps)),
		Fields:     make(map[smet.Field][]*float64, len(mesoWestFields)),
	}
	for i, s := range stamps {
		ts, err := parseStationTime(s)
		if err != nil {
			return smet.RawSeries{}, err
		}
		series.Timestamps[i] = ts
	}

	for key, field := range mesoWestFields {
		msg, ok := obs[key]
		if !ok || string(msg) == "null" {
			continue
		}
		var vals []flexFloat
		if err := json.Unmarshal(msg, &vals); err != nil {
			return smet.RawSeries{}, fmt.Errorf("decode %s: %w", key, err)
		}
		series.Fields[field] = flexValues(vals)
	}
	return series, nil
}

// parseStationTime keeps the station's wall-clock reading; the zone is only
// used to parse, never to convert.
func parseStationTime(s string) (time.Time, error) {
	for _, layout := range mesoWestTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date_time %q", s)
}
