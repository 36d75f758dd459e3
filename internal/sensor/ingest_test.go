package sensor

import (
	"context"
	"errors"
	"testing"

	"github.com/slatehub/slate-core/internal/infrastructure/logging"
	"github.com/slatehub/slate-core/internal/infrastructure/mqtt"
)

// mockSubscriber captures the handler so tests can inject messages.
type mockSubscriber struct {
	topic   string
	handler mqtt.MessageHandler
}

func (m *mockSubscriber) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.topic = topic
	m.handler = handler
	return nil
}

func newTestIngestor(t *testing.T) (*Ingestor, *Store, *mockSubscriber) {
	t.Helper()

	store := openTestStore(t)
	ing := NewIngestor(store, logging.Default())
	sub := &mockSubscriber{}
	if err := ing.Start(sub); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	return ing, store, sub
}

func TestIngestStoresReading(t *testing.T) {
	_, store, sub := newTestIngestor(t)

	if sub.topic != "slatehub/sensor/+/reading" {
		t.Fatalf("expected wildcard subscription, got %q", sub.topic)
	}

	err := sub.handler("slatehub/sensor/esp32-bedroom/reading",
		[]byte(`{"temperature_c": 19.5, "humidity": 55}`))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	latest, err := store.Latest(context.Background(), "esp32-bedroom")
	if err != nil {
		t.Fatalf("Latest() error: %v", err)
	}
	if latest.TemperatureC != 19.5 || latest.Humidity != 55 {
		t.Errorf("unexpected stored reading: %+v", latest)
	}
}

func TestIngestRejectsMalformedPayload(t *testing.T) {
	_, _, sub := newTestIngestor(t)

	cases := []struct {
		name    string
		topic   string
		payload string
	}{
		{"not json", "slatehub/sensor/a/reading", "garbage"},
		{"missing temperature", "slatehub/sensor/a/reading", `{"humidity": 50}`},
		{"wrong topic shape", "slatehub/other/a/reading", `{"temperature_c": 20}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := sub.handler(tc.topic, []byte(tc.payload))
			if !errors.Is(err, ErrInvalidReading) {
				t.Errorf("expected ErrInvalidReading, got %v", err)
			}
		})
	}
}

func TestIngestInvokesHook(t *testing.T) {
	ing, _, sub := newTestIngestor(t)

	var hooked *Reading
	ing.SetOnReading(func(r *Reading) { hooked = r })

	err := sub.handler("slatehub/sensor/a/reading", []byte(`{"temperature_c": 21, "humidity": 40}`))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if hooked == nil {
		t.Fatal("expected onReading hook to fire")
	}
	if hooked.SensorID != "a" {
		t.Errorf("expected sensor id from topic, got %q", hooked.SensorID)
	}
}
