// Package app wires configuration into a ready smet.Service.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/i474232898/mesowest-smet/internal/config"
	"github.com/i474232898/mesowest-smet/internal/notify"
	"github.com/i474232898/mesowest-smet/internal/plot"
	"github.com/i474232898/mesowest-smet/internal/smet"
	"github.com/i474232898/mesowest-smet/internal/smet/providers"
	"github.com/i474232898/mesowest-smet/internal/store"
)

// closers releases resources in reverse order of acquisition.
type closers []io.Closer

func (cs closers) Close() error {
	var errs []error
	for i := len(cs) - 1; i >= 0; i-- {
		if err := cs[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewService builds the pipeline, its run store and the optional run
// notifier. The returned closer releases both.
func NewService(cfg *config.AppConfig, log *slog.Logger) (*smet.Service, io.Closer, error) {
	if cfg.MesoWestToken == "" {
		log.Warn("MESOWEST_TOKEN is empty; the API will reject requests")
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	backoff := providers.BackoffConfig{
		MaxRetries:      cfg.FetchMaxRetries,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}

	corrections, err := smet.LoadCorrections(cfg.CorrectionsFile)
	if err != nil {
		return nil, nil, err
	}
	if len(corrections) > 0 {
		log.Info("loaded corrections", "file", cfg.CorrectionsFile, "records", len(corrections))
	}

	var forecast smet.ForecastSource
	switch cfg.ForecastSource {
	case config.ForecastOpenMeteo:
		forecast = providers.NewOpenMeteoProvider(httpClient, cfg.OpenMeteoBaseURL, backoff)
	case config.ForecastCSV:
		forecast = providers.NewHRRRCSVProvider(cfg.ForecastCSVPath)
	}

	var (
		runs     smet.Store
		release  closers
		notifier smet.Notifier
	)
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err := store.OpenSQLite(cfg.SQLitePath, cfg.StoreMaxHistory, cfg.StoreMaxAge)
		if err != nil {
			return nil, nil, fmt.Errorf("open run store: %w", err)
		}
		runs = db
		release = append(release, db)
	default:
		runs = store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	}

	if cfg.MQTTBroker != "" {
		pub := notify.NewMQTTPublisher(notify.MQTTConfig{
			Broker:      cfg.MQTTBroker,
			Port:        cfg.MQTTPort,
			ClientID:    cfg.MQTTClientID,
			TopicPrefix: cfg.MQTTTopicPrefix,
		}, log)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := pub.Connect(ctx); err != nil {
			log.Warn("mqtt broker unreachable; notifications resume once it connects", "err", err)
		}
		cancel()
		notifier = pub
		release = append(release, pub)
	}

	svc := smet.NewService(smet.Options{
		Fetcher:       providers.NewMesoWestProvider(httpClient, cfg.MesoWestBaseURL, cfg.MesoWestToken, backoff),
		Forecast:      forecast,
		Plotter:       plot.New(),
		Store:         runs,
		Notifier:      notifier,
		Corrections:   corrections,
		Logger:        log,
		OutputDir:     cfg.OutputDir,
		FigureDir:     cfg.FigureDir,
		Source:        cfg.Source,
		ForecastHours: cfg.ForecastHours,
	})
	return svc, release, nil
}
