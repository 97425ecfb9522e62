package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/francescopittino/AirQualityLoRaProject/internal/radio"
	"github.com/francescopittino/AirQualityLoRaProject/internal/sensor"
)

func TestNode_SensorFault(t *testing.T) {
	m := NewNode(prometheus.NewRegistry())
	m.SensorFault(&sensor.Fault{Kind: sensor.InvalidMeasurement, Sensor: sensor.Particulate, Code: "ERROR_MSG_CKSUM"})
	m.SensorFault(&sensor.Fault{Kind: sensor.InvalidMeasurement, Sensor: sensor.Particulate})
	m.SensorFault(&sensor.Fault{Kind: sensor.Unreachable, Sensor: sensor.HumidityTemperature})

	if got := testutil.ToFloat64(m.SensorFaults.WithLabelValues("PMS5003", "invalid_measurement")); got != 2 {
		t.Errorf("PMS5003 invalid = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SensorFaults.WithLabelValues("DHT11", "unreachable")); got != 1 {
		t.Errorf("DHT11 unreachable = %v, want 1", got)
	}
}

func TestNode_CycleDone(t *testing.T) {
	m := NewNode(prometheus.NewRegistry())
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	m.CycleDone(at, 2*time.Second, 180, nil)
	m.CycleDone(at, time.Second, 180, &radio.Fault{Step: radio.StepEnd, Err: errors.New("tx timeout")})
	m.CycleDone(at, time.Second, 180, errors.New("opaque"))

	if got := testutil.ToFloat64(m.Cycles); got != 3 {
		t.Errorf("cycles = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.TransmitFaults.WithLabelValues("end")); got != 1 {
		t.Errorf("end faults = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.TransmitFaults.WithLabelValues("unknown")); got != 1 {
		t.Errorf("unknown faults = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.LastCycle); got != float64(at.Unix()) {
		t.Errorf("last cycle = %v, want %v", got, at.Unix())
	}
}

func TestNew_SeparateRegistries(t *testing.T) {
	// Registering twice on one registry panics; separate ones must not.
	NewNode(prometheus.NewRegistry())
	NewNode(prometheus.NewRegistry())
	NewReceiver(prometheus.NewRegistry())
}
