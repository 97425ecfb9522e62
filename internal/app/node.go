package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/francescopittino/AirQualityLoRaProject/internal/acquire"
	"github.com/francescopittino/AirQualityLoRaProject/internal/config"
	"github.com/francescopittino/AirQualityLoRaProject/internal/httpapi"
	"github.com/francescopittino/AirQualityLoRaProject/internal/metrics"
	"github.com/francescopittino/AirQualityLoRaProject/internal/mqtt"
	"github.com/francescopittino/AirQualityLoRaProject/internal/node"
	"github.com/francescopittino/AirQualityLoRaProject/internal/radio"
	"github.com/francescopittino/AirQualityLoRaProject/internal/schedule"
	"github.com/francescopittino/AirQualityLoRaProject/internal/station"
)

// RunNode runs the sensor node until ctx is done.
func RunNode(ctx context.Context, cfg config.NodeConfig) error {
	id, err := station.New(cfg.StationName, cfg.StationLat, cfg.StationLon, cfg.StationAlt)
	if err != nil {
		return fmt.Errorf("station identity: %w", err)
	}

	logger := slog.Default()
	logger.Info("initializing node",
		"station", id.String(),
		"cycle_unit", cfg.CycleUnit.String(),
		"sensor_driver", cfg.SensorDriver,
		"radio_driver", cfg.RadioDriver,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewNode(reg)

	sensors, hw, err := buildSensors(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := hw.Close(); err != nil {
			logger.Warn("closing sensors", "error", err)
		}
	}()

	stage, err := acquire.New(sensors,
		acquire.WithTimeout(cfg.SensorReadTimeout),
		acquire.WithLogger(logger),
		acquire.WithObserver(m),
	)
	if err != nil {
		return err
	}

	transport, stop := buildTransport(ctx, cfg, logger)
	defer stop()

	if cfg.PMSEmitCounts && cfg.RadioMaxPayload <= radio.MaxLoRaPayload {
		logger.Warn("particle counts enabled; a full message exceeds the LoRa payload and will be dropped",
			"max_payload", cfg.RadioMaxPayload,
		)
	}

	n, err := node.New(id,
		schedule.New(cfg.CycleUnit, schedule.SystemClock{}, logger),
		stage,
		radio.NewTransmitter(transport, cfg.RadioMaxPayload, logger),
		node.WithLogger(logger),
		node.WithRecorder(m),
	)
	if err != nil {
		return err
	}

	if cfg.HTTPAddr != "" {
		srv := httpapi.NewServer(cfg.HTTPAddr, httpapi.NewMux(n, reg))
		go serve(srv, logger)
		defer shutdown(srv, logger)
	}

	return n.Run(ctx)
}

func buildTransport(ctx context.Context, cfg config.NodeConfig, logger *slog.Logger) (radio.Transport, func()) {
	if cfg.RadioDriver == config.RadioLog {
		return radio.NewLogTransport(logger), func() {}
	}

	logger.Info("using mqtt uplink",
		"mqtt_broker", cfg.MQTT.Broker,
		"mqtt_port", cfg.MQTT.Port,
		"mqtt_client_id", cfg.MQTT.ClientID,
		"topic", cfg.MQTT.UplinkTopic,
	)
	client := mqtt.NewClient(mqtt.Options{
		Broker:   cfg.MQTT.Broker,
		Port:     cfg.MQTT.Port,
		ClientID: cfg.MQTT.ClientID,
	}, logger)

	// cycles before the broker answers fail as radio faults
	go func() {
		if err := client.Connect(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("mqtt connect failed", "error", err)
		}
	}()

	return radio.NewMQTTTransport(client, cfg.MQTT.UplinkTopic), client.Disconnect
}

func serve(srv *http.Server, logger *slog.Logger) {
	logger.Info("status server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("status server failed", "error", err)
	}
}

func shutdown(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("status server shutdown", "error", err)
	}
}
