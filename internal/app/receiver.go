package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/francescopittino/AirQualityLoRaProject/internal/config"
	"github.com/francescopittino/AirQualityLoRaProject/internal/httpapi"
	"github.com/francescopittino/AirQualityLoRaProject/internal/metrics"
	"github.com/francescopittino/AirQualityLoRaProject/internal/mqtt"
	"github.com/francescopittino/AirQualityLoRaProject/internal/uplink"
)

// RunReceiver bridges raw uplink messages to telemetry until ctx is done.
func RunReceiver(ctx context.Context, cfg config.ReceiverConfig) error {
	logger := slog.Default()
	logger.Info("initializing receiver",
		"mqtt_broker", cfg.MQTT.Broker,
		"mqtt_port", cfg.MQTT.Port,
		"mqtt_client_id", cfg.MQTT.ClientID,
		"uplink_topic", cfg.MQTT.UplinkTopic,
		"telemetry_prefix", cfg.TelemetryPrefix,
	)

	reg := prometheus.NewRegistry()
	m := metrics.NewReceiver(reg)

	client := mqtt.NewClient(mqtt.Options{
		Broker:   cfg.MQTT.Broker,
		Port:     cfg.MQTT.Port,
		ClientID: cfg.MQTT.ClientID,
	}, logger)
	defer client.Disconnect()

	sub := uplink.NewSubscriber(client, cfg.MQTT.UplinkTopic, cfg.TelemetryPrefix, m, logger)
	if err := sub.Start(); err != nil && !errors.Is(err, mqtt.ErrNotConnected) {
		return err
	}

	if cfg.HTTPAddr != "" {
		srv := httpapi.NewServer(cfg.HTTPAddr, httpapi.NewMux(nil, reg))
		go serve(srv, logger)
		defer shutdown(srv, logger)
	}

	if err := client.Connect(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("receiver shutting down")
	return nil
}
