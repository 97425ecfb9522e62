// Package uplink bridges raw node messages to structured telemetry: it
// subscribes to the topic radio packets arrive on, decodes each one and
// republishes it as JSON under the station's telemetry topic.
package uplink

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/francescopittino/AirQualityLoRaProject/internal/metrics"
	"github.com/francescopittino/AirQualityLoRaProject/internal/mqtt"
	"github.com/francescopittino/AirQualityLoRaProject/internal/telemetry"
	"github.com/francescopittino/AirQualityLoRaProject/internal/wire"
)

// Broker is the MQTT surface the bridge needs.
type Broker interface {
	Subscribe(topic string, handler mqtt.MessageHandler) error
	Publish(topic string, payload []byte) error
}

type Subscriber struct {
	broker  Broker
	topic   string
	prefix  string
	logger  *slog.Logger
	metrics *metrics.Receiver
	now     func() time.Time
}

func NewSubscriber(b Broker, uplinkTopic, telemetryPrefix string, m *metrics.Receiver, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		broker:  b,
		topic:   uplinkTopic,
		prefix:  telemetryPrefix,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Start subscribes to the uplink topic.
func (s *Subscriber) Start() error {
	if err := s.broker.Subscribe(s.topic, s.handleMessage); err != nil {
		return fmt.Errorf("uplink subscribe: %w", err)
	}
	return nil
}

// TelemetryTopic is where records of station are published.
func (s *Subscriber) TelemetryTopic(station string) string {
	return fmt.Sprintf("%s/%s/telemetry", s.prefix, station)
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received uplink message", "topic", topic, "size", len(payload))

	report, err := wire.Decode(string(payload))
	if err != nil {
		s.logger.Warn("failed to parse uplink message",
			"topic", topic,
			"error", err,
			"payload", string(payload),
		)
		s.count("malformed")
		return
	}

	rec, err := telemetry.FromReport(report, s.now())
	if err == nil {
		err = rec.Validate()
	}
	if err != nil {
		s.logger.Warn("invalid uplink message",
			"topic", topic,
			"station_id", report.Station.Name(),
			"error", err,
		)
		s.count("invalid")
		return
	}

	for _, sec := range report.Sections {
		status := "ok"
		if _, fault := sec.Fault(); fault {
			status = "fault"
		}
		if s.metrics != nil {
			s.metrics.Sections.WithLabelValues(rec.StationID, sec.Tag, status).Inc()
		}
	}
	for tag, reason := range rec.Faults {
		s.logger.Info("station reported sensor fault", "station_id", rec.StationID, "sensor", tag, "reason", reason)
	}

	if err := s.publish(rec); err != nil {
		s.logger.Error("failed to publish telemetry",
			"station_id", rec.StationID,
			"error", err,
		)
		s.count("publish_failed")
		return
	}

	s.count("published")
	s.logger.Debug("processed uplink message",
		"station_id", rec.StationID,
		"timestamp", rec.Timestamp,
	)
}

func (s *Subscriber) publish(rec telemetry.Telemetry) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}
	return s.broker.Publish(s.TelemetryTopic(rec.StationID), data)
}

func (s *Subscriber) count(result string) {
	if s.metrics != nil {
		s.metrics.Messages.WithLabelValues(result).Inc()
	}
}
