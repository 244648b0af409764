package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/i474232898/mesowest-smet/internal/smet"
)

func newTestPublisher() *MQTTPublisher {
	return NewMQTTPublisher(MQTTConfig{Broker: "127.0.0.1", Port: 1, ClientID: "test"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTopic(t *testing.T) {
	p := newTestPublisher()
	if got := p.Topic("UKALF"); got != "smet/UKALF/runs" {
		t.Fatalf("Topic() = %q", got)
	}
}

func TestNewRunMessage(t *testing.T) {
	run := smet.RunResult{
		ID:              "abc",
		Station:         smet.Station{ID: "UKALF"},
		OutputPath:      "out/UKALF.smet",
		Samples:         24,
		ForecastSamples: 47,
		LastTimestamp:   time.Date(2024, 10, 7, 23, 0, 0, 0, time.UTC),
		FinishedAt:      time.Date(2024, 10, 6, 0, 5, 0, 0, time.UTC),
	}

	data, err := json.Marshal(NewRunMessage(run))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["station_id"] != "UKALF" || got["last_timestamp"] != "2024-10-07T23:00:00" {
		t.Fatalf("unexpected message: %s", data)
	}
	if _, ok := got["forecast_error"]; ok {
		t.Fatalf("forecast_error should be omitted: %s", data)
	}
}

func TestNotifyRequiresConnection(t *testing.T) {
	p := newTestPublisher()
	defer p.Close()

	err := p.Notify(context.Background(), smet.RunResult{Station: smet.Station{ID: "UKALF"}})
	if !errors.Is(err, errNotConnected) {
		t.Fatalf("expected errNotConnected, got %v", err)
	}
}

func TestConnectAfterClose(t *testing.T) {
	p := newTestPublisher()
	p.Close()
	if err := p.Connect(context.Background()); err == nil {
		t.Fatal("expected error after Close")
	}
}
