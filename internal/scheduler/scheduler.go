package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/mesowest-smet/internal/smet"
)

// Runner is the part of smet.Service the scheduler needs.
type Runner interface {
	Run(ctx context.Context, req smet.RunRequest) (smet.RunResult, error)
}

// Scheduler periodically rebuilds the SMET files of configured stations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	stations  []string
	interval  time.Duration
	forecast  bool
	timeout   time.Duration
	log       *slog.Logger
}

// New creates a new Scheduler. Runs use the default season window.
func New(stations []string, interval time.Duration, forecast bool, runner Runner, log *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		stations:  stations,
		interval:  interval,
		forecast:  forecast,
		timeout:   5 * time.Minute,
		log:       log,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.stations) == 0 {
		s.log.Info("scheduler: no stations configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 60
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(s.runAll)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// runAll processes stations one after another; each run writes its own
// marker files in the shared output directory.
func (s *Scheduler) runAll() {
	s.log.Info("scheduler: running smet job", "stations", len(s.stations))
	for _, id := range s.stations {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		_, err := s.runner.Run(ctx, smet.RunRequest{StationID: id, Forecast: s.forecast})
		cancel()
		if err != nil {
			s.log.Error("scheduler: run failed", "station", id, "err", err)
		}
	}
	s.log.Info("scheduler: completed smet job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
