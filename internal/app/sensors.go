package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/francescopittino/AirQualityLoRaProject/internal/config"
	"github.com/francescopittino/AirQualityLoRaProject/internal/hostio"
	"github.com/francescopittino/AirQualityLoRaProject/internal/pms"
	"github.com/francescopittino/AirQualityLoRaProject/internal/sensor"
	"github.com/francescopittino/AirQualityLoRaProject/internal/sim"
)

// offline stands in for a sensor whose hardware failed to initialize. Every
// read reports it unreachable so the cycle still carries its fragment.
type offline struct {
	kind sensor.Kind
	err  error
}

func (o offline) Kind() sensor.Kind { return o.kind }

func (o offline) Read(context.Context) (sensor.Reading, error) {
	return nil, sensor.AsFault(o.kind, o.err)
}

type closers []io.Closer

func (cs closers) Close() error {
	var errs []error
	for i := len(cs) - 1; i >= 0; i-- {
		errs = append(errs, cs[i].Close())
	}
	return errors.Join(errs...)
}

func buildSensors(cfg config.NodeConfig, logger *slog.Logger) ([]sensor.Sensor, io.Closer, error) {
	if cfg.SensorDriver == config.DriverSim {
		opts := sim.Options{Seed: uint64(time.Now().UnixNano()), FaultRate: 0.02}
		return []sensor.Sensor{
			sensor.NewClimate(sim.NewClimate(opts)),
			sensor.NewGas(sim.NewGasPin(opts)),
			sensor.NewParticulate(sim.NewPMS(opts, pms.PMS5003), cfg.PMSEmitCounts),
		}, closers{}, nil
	}

	if err := hostio.Init(); err != nil {
		return nil, nil, err
	}

	var cs closers
	sensors := make([]sensor.Sensor, 0, len(sensor.Kinds))
	degrade := func(k sensor.Kind, err error) {
		logger.Warn("sensor unavailable; it will report as unreachable", "sensor", k.Tag(), "error", err)
		sensors = append(sensors, offline{kind: k, err: err})
	}

	bus, busErr := hostio.OpenI2C(cfg.I2CBus)
	if busErr == nil {
		cs = append(cs, bus)
	}

	switch {
	case cfg.HTProbe == config.ProbeBME280 && busErr != nil:
		degrade(sensor.HumidityTemperature, busErr)
	case cfg.HTProbe == config.ProbeBME280:
		if bme, err := hostio.NewBME280(bus, cfg.BME280Address); err != nil {
			degrade(sensor.HumidityTemperature, err)
		} else {
			cs = append(cs, bme)
			sensors = append(sensors, sensor.NewClimate(bme))
		}
	default:
		if dht, err := hostio.NewIIODHT(cfg.DHTIIODir); err != nil {
			degrade(sensor.HumidityTemperature, err)
		} else {
			sensors = append(sensors, sensor.NewClimate(dht))
		}
	}

	if busErr != nil {
		degrade(sensor.Gas, busErr)
	} else if pin, err := hostio.NewADCPin(bus, cfg.ADS1115Address, cfg.MQADCChannel); err != nil {
		degrade(sensor.Gas, err)
	} else {
		cs = append(cs, pin)
		sensors = append(sensors, sensor.NewGas(pin))
	}

	if dev, port, err := hostio.OpenPMS(cfg.PMSPort, pms.PMS5003); err != nil {
		degrade(sensor.Particulate, err)
	} else {
		cs = append(cs, port)
		sensors = append(sensors, sensor.NewParticulate(dev, cfg.PMSEmitCounts))
	}

	return sensors, cs, nil
}
