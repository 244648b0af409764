package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/mesowest-smet/internal/smet"
)

// Forecast source selectors.
const (
	ForecastNone      = "none"
	ForecastOpenMeteo = "openmeteo"
	ForecastCSV       = "csv"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

type AppConfig struct {
	AppEnv   string
	LogLevel slog.Level

	MesoWestToken   string
	MesoWestBaseURL string

	// HTTPTimeout bounds every outbound request.
	HTTPTimeout time.Duration
	// FetchMaxRetries of 0 means a failed fetch aborts the run immediately.
	FetchMaxRetries int

	DefaultStation  string
	OutputDir       string
	FigureDir       string
	Source          string
	CorrectionsFile string

	ForecastSource   string
	ForecastCSVPath  string
	ForecastHours    int
	OpenMeteoBaseURL string

	// Stations re-run by the scheduler every ScheduleInterval.
	Stations         []string
	ScheduleInterval time.Duration

	StoreDriver     string
	SQLitePath      string
	StoreMaxHistory int           // max runs kept per station (0 = unlimited)
	StoreMaxAge     time.Duration // max age of runs (0 = unlimited)

	// MQTTBroker enables run notifications when set.
	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopicPrefix string

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return nil, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}

	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	cfg.MesoWestToken = os.Getenv("MESOWEST_TOKEN")
	cfg.MesoWestBaseURL = os.Getenv("MESOWEST_BASE_URL")

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	cfg.FetchMaxRetries = getenvInt("FETCH_MAX_RETRIES", 0)
	if cfg.FetchMaxRetries < 0 {
		return nil, fmt.Errorf("invalid FETCH_MAX_RETRIES: %d", cfg.FetchMaxRetries)
	}

	cfg.DefaultStation = getenvDefault("DEFAULT_STATION", "UKALF")
	cfg.OutputDir = getenvDefault("SMET_OUTPUT_DIR", ".")
	cfg.FigureDir = getenvDefault("SMET_FIGURE_DIR", "./figures")
	cfg.Source = getenvDefault("SMET_SOURCE", smet.DefaultSource)
	cfg.CorrectionsFile = os.Getenv("CORRECTIONS_FILE")

	cfg.ForecastSource = strings.ToLower(getenvDefault("FORECAST_SOURCE", ForecastOpenMeteo))
	switch cfg.ForecastSource {
	case ForecastNone, ForecastOpenMeteo, ForecastCSV:
	default:
		return nil, fmt.Errorf("invalid FORECAST_SOURCE %q (allowed: none, openmeteo, csv)", cfg.ForecastSource)
	}
	cfg.ForecastCSVPath = os.Getenv("FORECAST_CSV_PATH")
	if cfg.ForecastSource == ForecastCSV && cfg.ForecastCSVPath == "" {
		return nil, fmt.Errorf("FORECAST_CSV_PATH is required when FORECAST_SOURCE=csv")
	}
	cfg.ForecastHours = getenvInt("FORECAST_HOURS", 48)
	cfg.OpenMeteoBaseURL = os.Getenv("OPENMETEO_BASE_URL")

	cfg.Stations = splitList(os.Getenv("SMET_STATIONS"))
	if cfg.ScheduleInterval, err = getenvDuration("SCHEDULE_INTERVAL", "1h"); err != nil {
		return nil, err
	}

	cfg.StoreDriver = strings.ToLower(getenvDefault("STORE_DRIVER", StoreMemory))
	switch cfg.StoreDriver {
	case StoreMemory, StoreSQLite:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q (allowed: memory, sqlite)", cfg.StoreDriver)
	}
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "data/runs.db")
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 168) // a week of hourly runs
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "168h"); err != nil {
		return nil, err
	}

	cfg.MQTTBroker = os.Getenv("MQTT_BROKER")
	cfg.MQTTPort = getenvInt("MQTT_PORT", 1883)
	cfg.MQTTClientID = getenvDefault("MQTT_CLIENT_ID", "smet-server")
	cfg.MQTTTopicPrefix = getenvDefault("MQTT_TOPIC_PREFIX", "smet")

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
