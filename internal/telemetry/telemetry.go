package telemetry

import (
	"fmt"
	"strconv"
	"time"

	"github.com/francescopittino/AirQualityLoRaProject/internal/sensor"
	"github.com/francescopittino/AirQualityLoRaProject/internal/wire"
)

// Telemetry is one decoded node message, ready to be published as JSON.
type Telemetry struct {
	StationID string    `json:"station_id"`
	Timestamp time.Time `json:"timestamp"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Altitude  *float64  `json:"altitude_m,omitempty"`

	Temperature  *float64 `json:"temperature_c,omitempty"`
	TemperatureF *float64 `json:"temperature_f,omitempty"`
	FeelsLike    *float64 `json:"feels_like_c,omitempty"`
	Humidity     *float64 `json:"humidity_pct,omitempty"`
	Gas          *float64 `json:"mq135_raw,omitempty"`
	PM1_0        *float64 `json:"pm1_0_ugm3,omitempty"`
	PM2_5        *float64 `json:"pm2_5_ugm3,omitempty"`
	PM10         *float64 `json:"pm10_ugm3,omitempty"`

	// ParticleCounts is keyed by the wire key, e.g. "N0.3".
	ParticleCounts map[string]float64 `json:"particle_counts,omitempty"`
	// Faults maps a sensor tag to the reason it sent instead of a reading.
	Faults map[string]string `json:"faults,omitempty"`
	// Unknown lists tags this receiver does not understand.
	Unknown []string `json:"unknown_sections,omitempty"`
}

// FromReport converts a decoded message received at receivedAt.
func FromReport(r wire.Report, receivedAt time.Time) (Telemetry, error) {
	t := Telemetry{
		StationID: r.Station.Name(),
		Timestamp: receivedAt,
		Latitude:  optionalFloat(r.Station.Latitude()),
		Longitude: optionalFloat(r.Station.Longitude()),
		Altitude:  optionalFloat(r.Station.Altitude()),
	}

	for _, sec := range r.Sections {
		if reason, ok := sec.Fault(); ok {
			if t.Faults == nil {
				t.Faults = make(map[string]string)
			}
			t.Faults[sec.Tag] = reason
			continue
		}

		var err error
		switch sec.Tag {
		case sensor.HumidityTemperature.Tag():
			err = bind(sec, map[string]**float64{
				sensor.KeyTemperatureC: &t.Temperature,
				sensor.KeyTemperatureF: &t.TemperatureF,
				sensor.KeyFeelsLike:    &t.FeelsLike,
				sensor.KeyHumidity:     &t.Humidity,
			})
		case sensor.Gas.Tag():
			err = bind(sec, map[string]**float64{sensor.KeyGas: &t.Gas})
		case sensor.Particulate.Tag():
			err = bind(sec, map[string]**float64{
				sensor.KeyPM1_0: &t.PM1_0,
				sensor.KeyPM2_5: &t.PM2_5,
				sensor.KeyPM10:  &t.PM10,
			})
			if err == nil {
				t.ParticleCounts, err = counts(sec)
			}
		default:
			t.Unknown = append(t.Unknown, sec.Tag)
		}
		if err != nil {
			return Telemetry{}, fmt.Errorf("%s: %w", sec.Tag, err)
		}
	}
	return t, nil
}

// bind parses the listed keys of sec into their targets. Every listed key is
// required.
func bind(sec wire.Section, targets map[string]**float64) error {
	for key, dst := range targets {
		raw, ok := sec.Value(key)
		if !ok {
			return fmt.Errorf("missing %s", key)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, raw, err)
		}
		*dst = &v
	}
	return nil
}

func counts(sec wire.Section) (map[string]float64, error) {
	var out map[string]float64
	for _, key := range sensor.CountKeys {
		raw, ok := sec.Value(key)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", key, raw, err)
		}
		if out == nil {
			out = make(map[string]float64, len(sensor.CountKeys))
		}
		out[key] = v
	}
	return out, nil
}

func optionalFloat(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// Validate rejects records that carry nothing or physically impossible values.
func (t Telemetry) Validate() error {
	if t.StationID == "" {
		return fmt.Errorf("station_id is required")
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if t.Humidity != nil && (*t.Humidity < 0 || *t.Humidity > 100) {
		return fmt.Errorf("humidity_pct out of range: %f (must be 0-100)", *t.Humidity)
	}
	for name, v := range map[string]*float64{"pm1_0": t.PM1_0, "pm2_5": t.PM2_5, "pm10": t.PM10} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must not be negative: %f", name, *v)
		}
	}
	if !t.hasReading() && len(t.Faults) == 0 {
		return fmt.Errorf("at least one sensor section is required")
	}
	return nil
}

func (t Telemetry) hasReading() bool {
	for _, v := range []*float64{t.Temperature, t.TemperatureF, t.FeelsLike, t.Humidity, t.Gas, t.PM1_0, t.PM2_5, t.PM10} {
		if v != nil {
			return true
		}
	}
	return false
}
