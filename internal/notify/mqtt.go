// Package notify announces finished runs to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/i474232898/mesowest-smet/internal/smet"
)

var errNotConnected = errors.New("mqtt client not connected")

// MQTTConfig locates the broker and the topic namespace.
type MQTTConfig struct {
	Broker      string
	Port        int
	ClientID    string
	TopicPrefix string
}

// RunMessage is the retained payload published for each finished run.
type RunMessage struct {
	StationID     string    `json:"station_id"`
	RunID         string    `json:"run_id"`
	OutputPath    string    `json:"output_path"`
	LastTimestamp string    `json:"last_timestamp"`
	Samples       int       `json:"samples"`
	Forecast      int       `json:"forecast_samples"`
	ForecastError string    `json:"forecast_error,omitempty"`
	FinishedAt    time.Time `json:"finished_at"`
}

// MQTTPublisher implements smet.Notifier.
type MQTTPublisher struct {
	client    mqtt.Client
	cfg       MQTTConfig
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewMQTTPublisher(cfg MQTTConfig, logger *slog.Logger) *MQTTPublisher {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "smet"
	}
	p := &MQTTPublisher{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.Broker, "port", cfg.Port)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		logger.Warn("mqtt connection lost", "err", err)
	})

	p.client = mqtt.NewClient(opts)
	return p
}

// Connect waits for the first connection. The client keeps retrying in the
// background after ctx expires.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return fmt.Errorf("publisher stopped")
	default:
	}
	if p.IsConnected() {
		return nil
	}

	token := p.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return fmt.Errorf("publisher stopped")
		default:
		}
	}
}

// Topic returns the retained topic for a station's runs.
func (p *MQTTPublisher) Topic(stationID string) string {
	return fmt.Sprintf("%s/%s/runs", p.cfg.TopicPrefix, stationID)
}

// NewRunMessage flattens a run for publication.
func NewRunMessage(run smet.RunResult) RunMessage {
	msg := RunMessage{
		StationID:     run.Station.ID,
		RunID:         run.ID,
		OutputPath:    run.OutputPath,
		Samples:       run.Samples,
		Forecast:      run.ForecastSamples,
		ForecastError: run.ForecastError,
		FinishedAt:    run.FinishedAt,
	}
	if !run.LastTimestamp.IsZero() {
		msg.LastTimestamp = run.LastTimestamp.Format(smet.TimestampLayout)
	}
	return msg
}

// Notify publishes the run as a retained message.
func (p *MQTTPublisher) Notify(ctx context.Context, run smet.RunResult) error {
	if !p.IsConnected() {
		return errNotConnected
	}

	data, err := json.Marshal(NewRunMessage(run))
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	topic := p.Topic(run.Station.ID)
	token := p.client.Publish(topic, 1, true, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish run: %w", err)
	}

	p.logger.Debug("published run", "topic", topic, "run_id", run.ID)
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *MQTTPublisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Close disconnects from the broker. Safe to call more than once.
func (p *MQTTPublisher) Close() error {
	p.stopOnce.Do(func() { close(p.stopCh) })
	if p.client != nil {
		p.client.Disconnect(250)
	}
	p.setConnected(false)
	return nil
}

func (p *MQTTPublisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}
