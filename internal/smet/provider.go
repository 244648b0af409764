package smet

import (
	"context"
	"time"
)

// ObservationQuery selects a station and an inclusive UTC window.
type ObservationQuery struct {
	StationID string
	Start     string
	End       string
}

// Fetcher abstracts the station observation source (e.g. MesoWest/Synoptic).
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, q ObservationQuery) (Observations, error)
}

// ForecastSource abstracts a short-range NWP source (e.g. HRRR via Open-Meteo
// or a pre-extracted CSV).
type ForecastSource interface {
	Name() string
	FetchForecast(ctx context.Context, req ForecastRequest) (ForecastFrame, error)
}

// Plotter renders a diagnostic figure of a series to path.
type Plotter interface {
	Plot(st Station, s *Series, path string) error
}

// Notifier announces a finished run to downstream consumers.
type Notifier interface {
	Notify(ctx context.Context, run RunResult) error
}

// Store is the contract the in-memory store (and the sqlite store) must satisfy.
type Store interface {
	SaveRun(run RunResult) error
	GetLatest(stationID string) (RunResult, error)
	GetRange(stationID string, from, to time.Time) ([]RunResult, error)
}
