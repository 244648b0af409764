package smet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Options wires the collaborators of a Service. Everything but Fetcher is
// optional.
type Options struct {
	Fetcher     Fetcher
	Forecast    ForecastSource
	Plotter     Plotter
	Store       Store
	Notifier    Notifier
	Corrections Corrections
	Logger      *slog.Logger

	OutputDir     string
	FigureDir     string
	Source        string
	ForecastHours int

	// Now is the clock; tests replace it.
	Now func() time.Time
}

// Service runs the observation-to-SMET pipeline.
type Service struct {
	opts Options
	log  *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex // key: normalized station id
}

// NewService creates a new Service.
func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.FigureDir == "" {
		opts.FigureDir = filepath.Join(opts.OutputDir, "figures")
	}
	if opts.Source == "" {
		opts.Source = DefaultSource
	}
	if opts.ForecastHours <= 0 {
		opts.ForecastHours = 48
	}
	return &Service{
		opts:  opts,
		log:   opts.Logger,
		locks: make(map[string]*sync.Mutex),
	}
}

// NormalizeStationID returns the key a station's file and runs are kept
// under. Station IDs are case-insensitive upstream.
func NormalizeStationID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// stationLock returns the mutex serializing runs of one station. Runs of the
// same station share <id>.smet and must not interleave.
func (s *Service) stationLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Run fetches observations for one station, writes <station>.smet, optionally
// appends forecast rows, writes the end marker and records the run. Runs of
// the same station are serialized.
func (s *Service) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	if s.opts.Fetcher == nil {
		return RunResult{}, errors.New("no observation fetcher configured")
	}
	req.StationID = NormalizeStationID(req.StationID)
	if req.StationID == "" {
		return RunResult{}, errors.New("station id is required")
	}

	lock := s.stationLock(req.StationID)
	lock.Lock()
	defer lock.Unlock()

	startedAt := s.opts.Now().UTC()
	if req.Start == "" || req.End == "" {
		start, end := DefaultWindow(startedAt)
		if req.Start == "" {
			req.Start = start
		}
		if req.End == "" {
			req.End = end
		}
	}

	log := s.log.With("station", req.StationID, "start", req.Start, "end", req.End)
	log.Info("building smet file")

	obs, err := s.opts.Fetcher.Fetch(ctx, ObservationQuery{
		StationID: req.StationID,
		Start:     req.Start,
		End:       req.End,
	})
	if err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			err = &FetchError{StationID: req.StationID, Err: err}
		}
		return RunResult{}, err
	}

	series, err := Normalize(obs.Raw)
	if err != nil {
		return RunResult{}, fmt.Errorf("normalize %s: %w", req.StationID, err)
	}
	if series.Radiation == FieldRSWR {
		log.Warn("ISWR not reported, writing RSWR in its place")
	}

	st := obs.Station
	if st.ID != req.StationID {
		if st.ID != "" && !strings.EqualFold(st.ID, req.StationID) {
			log.Warn("provider returned a different station id", "stid", st.ID)
		}
		st.ID = req.StationID
	}
	st.Source = s.opts.Source
	st.TZ = TimeZone

	corrected := s.opts.Corrections.Apply(st.ID, series)
	interpolated := FillGaps(series.Columns[FieldISWR], MaxInterpolatedGap)

	result := RunResult{
		ID:           uuid.NewString(),
		Station:      st,
		Start:        req.Start,
		End:          req.End,
		StartedAt:    startedAt,
		Samples:      series.Len(),
		Radiation:    series.Radiation,
		Interpolated: interpolated,
		Corrected:    corrected,
	}

	lastObs, ok := series.Last()
	if !ok {
		return RunResult{}, &FetchError{StationID: req.StationID, Err: ErrNoSamples}
	}
	log.Info("station last observation", "time", lastObs.Format(TimestampLayout))

	if err := os.MkdirAll(s.opts.OutputDir, 0o755); err != nil {
		return RunResult{}, fmt.Errorf("create output dir: %w", err)
	}
	outPath := filepath.Join(s.opts.OutputDir, FileName(st.ID))
	if err := writeFile(outPath, st, series); err != nil {
		return RunResult{}, err
	}
	result.OutputPath = outPath
	result.LastTimestamp = lastObs

	plotted := series
	if req.Forecast {
		fc, err := s.appendForecast(ctx, outPath, st, series.Radiation, lastObs)
		if err != nil {
			log.Warn("appending forecast failed; observation file stands", "err", err)
			result.ForecastError = err.Error()
		} else {
			result.ForecastSamples = fc.Len()
			if last, ok := fc.Last(); ok {
				result.LastTimestamp = last
			}
			plotted = series.Concat(fc)
		}
	}

	if err := WriteEndMarker(outPath, filepath.Join(s.opts.OutputDir, EndMarkerFile)); err != nil {
		return RunResult{}, fmt.Errorf("write end marker: %w", err)
	}

	if req.Plot && s.opts.Plotter != nil {
		path := filepath.Join(s.opts.FigureDir, fmt.Sprintf("%s%s_%s_+48hr_timeseries.png",
			st.ID, req.Start, lastObs.Format(TimestampLayout)))
		if err := os.MkdirAll(s.opts.FigureDir, 0o755); err != nil {
			log.Warn("create figure dir", "err", err)
		} else if err := s.opts.Plotter.Plot(st, plotted, path); err != nil {
			log.Warn("plotting failed", "err", err)
		} else {
			result.PlotPath = path
		}
	}

	result.FinishedAt = s.opts.Now().UTC()
	if s.opts.Store != nil {
		if err := s.opts.Store.SaveRun(result); err != nil {
			log.Warn("recording run failed", "err", err)
		}
	}
	if s.opts.Notifier != nil {
		if err := s.opts.Notifier.Notify(ctx, result); err != nil {
			log.Warn("run notification failed", "err", err)
		}
	}

	log.Info("smet file written",
		"path", outPath,
		"samples", result.Samples,
		"forecast_samples", result.ForecastSamples,
		"interpolated", interpolated,
		"corrected", corrected,
	)
	return result, nil
}

func (s *Service) appendForecast(ctx context.Context, path string, st Station, radiation Field, lastObs time.Time) (*Series, error) {
	if s.opts.Forecast == nil {
		return nil, fmt.Errorf("%w: no forecast source configured", ErrForecastUnavailable)
	}

	s.log.Info("appending forecast", "source", s.opts.Forecast.Name(), "station", st.ID)
	frame, err := s.opts.Forecast.FetchForecast(ctx, ForecastRequest{
		Latitude:  st.Latitude,
		Longitude: st.Longitude,
		Elevation: st.Altitude,
		Start:     lastObs.Add(-time.Hour),
		Hours:     s.opts.ForecastHours,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrForecastUnavailable, s.opts.Forecast.Name(), err)
	}

	fc := frame.ToSeries(lastObs, radiation)
	if fc.Len() == 0 {
		return nil, fmt.Errorf("%w: %s returned no rows", ErrForecastUnavailable, s.opts.Forecast.Name())
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrForecastUnavailable, err)
	}
	if err := AppendRows(f, fc); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrForecastUnavailable, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrForecastUnavailable, err)
	}
	return fc, nil
}

func writeFile(path string, st Station, s *Series) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, st, s); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// GetLatest delegates to the underlying store.
func (s *Service) GetLatest(stationID string) (RunResult, error) {
	if s.opts.Store == nil {
		return RunResult{}, errors.New("no run store configured")
	}
	return s.opts.Store.GetLatest(NormalizeStationID(stationID))
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(stationID string, from, to time.Time) ([]RunResult, error) {
	if s.opts.Store == nil {
		return nil, errors.New("no run store configured")
	}
	return s.opts.Store.GetRange(NormalizeStationID(stationID), from, to)
}

// OutputPath returns where the SMET file for stationID is written.
func (s *Service) OutputPath(stationID string) string {
	return filepath.Join(s.opts.OutputDir, FileName(NormalizeStationID(stationID)))
}
