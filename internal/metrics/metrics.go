package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/francescopittino/AirQualityLoRaProject/internal/radio"
	"github.com/francescopittino/AirQualityLoRaProject/internal/sensor"
)

// Node holds the sensor node's counters.
type Node struct {
	Cycles         prometheus.Counter
	SensorFaults   *prometheus.CounterVec
	TransmitFaults *prometheus.CounterVec
	MessageBytes   prometheus.Histogram
	CycleDuration  prometheus.Histogram
	LastCycle      prometheus.Gauge
}

func NewNode(reg prometheus.Registerer) *Node {
	f := promauto.With(reg)
	return &Node{
		Cycles: f.NewCounter(prometheus.CounterOpts{
			Name: "aqnode_cycles_total",
			Help: "Completed acquisition and transmission cycles",
		}),
		SensorFaults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aqnode_sensor_faults_total",
			Help: "Sensor reads that produced an error fragment",
		}, []string{"sensor", "kind"}),
		TransmitFaults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aqnode_transmit_faults_total",
			Help: "Messages dropped because the radio reported a fault",
		}, []string{"step"}),
		MessageBytes: f.NewHistogram(prometheus.HistogramOpts{
			Name: "aqnode_message_bytes",
			Help: "Size of composed messages",
			// 255 is the LoRa FIFO limit
			Buckets: []float64{64, 128, 192, 224, 255, 512},
		}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "aqnode_cycle_duration_seconds",
			Help:    "Time from leaving WAITING to finishing TRANSMITTING",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		}),
		LastCycle: f.NewGauge(prometheus.GaugeOpts{
			Name: "aqnode_last_cycle_timestamp_seconds",
			Help: "Unix time of the last completed cycle",
		}),
	}
}

// SensorFault counts one error fragment.
func (m *Node) SensorFault(f *sensor.Fault) {
	m.SensorFaults.WithLabelValues(f.Sensor.Tag(), f.Kind.String()).Inc()
}

// CycleDone records a finished cycle. txErr is the transmission outcome.
func (m *Node) CycleDone(at time.Time, took time.Duration, size int, txErr error) {
	m.Cycles.Inc()
	m.CycleDuration.Observe(took.Seconds())
	m.MessageBytes.Observe(float64(size))
	m.LastCycle.Set(float64(at.Unix()))

	if txErr != nil {
		step := "unknown"
		var f *radio.Fault
		if errors.As(txErr, &f) {
			step = string(f.Step)
		}
		m.TransmitFaults.WithLabelValues(step).Inc()
	}
}

// Receiver holds the uplink bridge's counters.
type Receiver struct {
	Messages *prometheus.CounterVec
	Sections *prometheus.CounterVec
}

func NewReceiver(reg prometheus.Registerer) *Receiver {
	f := promauto.With(reg)
	return &Receiver{
		Messages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aqreceiver_messages_total",
			Help: "Uplink messages by outcome",
		}, []string{"result"}),
		Sections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "aqreceiver_sections_total",
			Help: "Decoded sensor sections by station and tag",
		}, []string{"station", "tag", "status"}),
	}
}
