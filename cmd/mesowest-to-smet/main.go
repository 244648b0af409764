// Command mesowest-to-smet builds a SNOWPACK input file for one station.
//
// Usage:
//
//	mesowest-to-smet [start] [end] [station] [plot] [forecast]
//
// start and end are UTC YYYYMMDDHHMM (or YYYYMMDDHHmmss). Omitted arguments
// default to the season start, the current hour, DEFAULT_STATION, false and
// false.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/i474232898/mesowest-smet/internal/app"
	"github.com/i474232898/mesowest-smet/internal/config"
	"github.com/i474232898/mesowest-smet/internal/logging"
	"github.com/i474232898/mesowest-smet/internal/smet"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "mesowest-to-smet:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg, "mesowest-to-smet")

	now := time.Now().UTC()
	req, err := parseArgs(args, now, cfg.DefaultStation)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return err
	}
	marker := filepath.Join(cfg.OutputDir, smet.CurrentMarkerFile)
	if err := smet.WriteCurrentMarker(now, marker); err != nil {
		return fmt.Errorf("write current marker: %w", err)
	}
	log.Info("current time written", "file", marker)

	svc, closer, err := app.NewService(cfg, log)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := svc.Run(ctx, req)
	if err != nil {
		return err
	}
	log.Info("done", "file", result.OutputPath, "last", result.LastTimestamp.Format(smet.TimestampLayout))
	return nil
}

// parseArgs applies the positional defaults.
func parseArgs(args []string, now time.Time, defaultStation string) (smet.RunRequest, error) {
	start, end := smet.DefaultWindow(now)
	req := smet.RunRequest{
		StationID: defaultStation,
		Start:     start,
		End:       end,
	}

	if len(args) > 5 {
		return req, fmt.Errorf("too many arguments: %d (want at most 5)", len(args))
	}
	if len(args) > 0 {
		req.Start = args[0]
	}
	if len(args) > 1 {
		req.End = args[1]
	}
	if len(args) > 2 {
		req.StationID = args[2]
	}
	for i, dst := range []*bool{&req.Plot, &req.Forecast} {
		if len(args) <= 3+i {
			break
		}
		v, err := strconv.ParseBool(args[3+i])
		if err != nil {
			return req, fmt.Errorf("argument %d: %w", 4+i, err)
		}
		*dst = v
	}

	for _, ts := range []string{req.Start, req.End} {
		if _, err := smet.ParseQueryTime(ts); err != nil {
			return req, err
		}
	}
	if req.StationID == "" {
		return req, fmt.Errorf("station id is required")
	}
	return req, nil
}
