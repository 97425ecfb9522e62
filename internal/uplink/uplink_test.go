package uplink

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/francescopittino/AirQualityLoRaProject/internal/metrics"
	"github.com/francescopittino/AirQualityLoRaProject/internal/mqtt"
	"github.com/francescopittino/AirQualityLoRaProject/internal/telemetry"
)

type published struct {
	topic   string
	payload []byte
}

type fakeBroker struct {
	handlers map[string]mqtt.MessageHandler
	out      []published
	pubErr   error
	subErr   error
}

func (b *fakeBroker) Subscribe(topic string, h mqtt.MessageHandler) error {
	if b.subErr != nil {
		return b.subErr
	}
	if b.handlers == nil {
		b.handlers = make(map[string]mqtt.MessageHandler)
	}
	b.handlers[topic] = h
	return nil
}

func (b *fakeBroker) Publish(topic string, payload []byte) error {
	b.out = append(b.out, published{topic: topic, payload: payload})
	return b.pubErr
}

func (b *fakeBroker) deliver(topic, payload string) {
	b.handlers[topic](topic, []byte(payload))
}

var at = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

func newBridge(t *testing.T, b *fakeBroker, logs io.Writer) (*Subscriber, *metrics.Receiver) {
	t.Helper()
	if logs == nil {
		logs = io.Discard
	}
	m := metrics.NewReceiver(prometheus.NewRegistry())
	s := NewSubscriber(b, "lora/uplink", "stations", m, slog.New(slog.NewTextHandler(logs, nil)))
	s.now = func() time.Time { return at }
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return s, m
}

const healthy = "SNGeo/Name:Dogna/Lat:46.448526/Lon:13.315586/Alt:400" +
	"#DHT11/Temperature_Celsius:21.500000/Temperature_Fahrenheit:70.700000/Temperature_Feels_like:21.141455/Humidity:55.000000" +
	"#MQ135/MQ:512.000000" +
	"#PMS5003/PM1.0:12/PM2.5:20/PM10:25"

func TestHandleMessage_Publishes(t *testing.T) {
	b := &fakeBroker{}
	_, m := newBridge(t, b, nil)

	b.deliver("lora/uplink", healthy)

	if len(b.out) != 1 {
		t.Fatalf("published %d messages, want 1", len(b.out))
	}
	if b.out[0].topic != "stations/Dogna/telemetry" {
		t.Errorf("topic = %q", b.out[0].topic)
	}
	var rec telemetry.Telemetry
	if err := json.Unmarshal(b.out[0].payload, &rec); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if rec.StationID != "Dogna" || !rec.Timestamp.Equal(at) {
		t.Errorf("record = %+v", rec)
	}
	if rec.PM10 == nil || *rec.PM10 != 25 {
		t.Errorf("PM10 = %v, want 25", rec.PM10)
	}
	if got := testutil.ToFloat64(m.Messages.WithLabelValues("published")); got != 1 {
		t.Errorf("published counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Sections.WithLabelValues("Dogna", "MQ135", "ok")); got != 1 {
		t.Errorf("MQ135 ok sections = %v, want 1", got)
	}
}

func TestHandleMessage_FaultFragmentsStillPublished(t *testing.T) {
	b := &fakeBroker{}
	_, m := newBridge(t, b, nil)

	b.deliver("lora/uplink", "SNGeo/Name:Dogna/Lat:46.448526/Lon:13.315586/Alt:400#DHT11/ERROR:Could_not_reach_sensor#PMS5003/ERROR:ERROR_TIMEOUT")

	if len(b.out) != 1 {
		t.Fatalf("published %d messages, want 1", len(b.out))
	}
	if got := testutil.ToFloat64(m.Sections.WithLabelValues("Dogna", "PMS5003", "fault")); got != 1 {
		t.Errorf("PMS5003 fault sections = %v, want 1", got)
	}
}

func TestHandleMessage_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		msg    string
		result string
		log    string
	}{
		{name: "garbage", msg: "\x00\x01hello", result: "malformed", log: "failed to parse uplink message"},
		{name: "no preamble", msg: "#MQ135/MQ:1.000000", result: "malformed", log: "failed to parse uplink message"},
		{name: "bad number", msg: "SNGeo/Name:A/Lat:1/Lon:2/Alt:3#MQ135/MQ:x", result: "invalid", log: "invalid uplink message"},
		{name: "preamble only", msg: "SNGeo/Name:A/Lat:1/Lon:2/Alt:3", result: "invalid", log: "invalid uplink message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBroker{}
			var logs bytes.Buffer
			_, m := newBridge(t, b, &logs)

			b.deliver("lora/uplink", tt.msg)

			if len(b.out) != 0 {
				t.Errorf("published %d messages, want 0", len(b.out))
			}
			if got := testutil.ToFloat64(m.Messages.WithLabelValues(tt.result)); got != 1 {
				t.Errorf("%s counter = %v, want 1", tt.result, got)
			}
			if !bytes.Contains(logs.Bytes(), []byte(tt.log)) {
				t.Errorf("logs = %q, want %q", logs.String(), tt.log)
			}
		})
	}
}

func TestHandleMessage_PublishFailure(t *testing.T) {
	b := &fakeBroker{pubErr: errors.New("mqtt client not connected")}
	_, m := newBridge(t, b, nil)

	b.deliver("lora/uplink", healthy)

	if got := testutil.ToFloat64(m.Messages.WithLabelValues("publish_failed")); got != 1 {
		t.Errorf("publish_failed counter = %v, want 1", got)
	}
}

func TestStart_SubscribeError(t *testing.T) {
	b := &fakeBroker{subErr: errors.New("not connected")}
	s := NewSubscriber(b, "lora/uplink", "stations", nil, nil)
	if err := s.Start(); err == nil {
		t.Fatal("Start() error = nil, want non-nil")
	}
}
