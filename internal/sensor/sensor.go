// Package sensor defines the readings and faults a sensor adapter produces,
// the probe contracts the adapters consume, and the three adapters a node
// carries: a humidity/temperature probe, a gas probe and a particulate probe.
package sensor

import (
	"context"
	"errors"
	"fmt"

	"github.com/francescopittino/AirQualityLoRaProject/internal/wire"
)

// Kind identifies a sensor slot. The numeric order is the fragment order.
type Kind int

const (
	HumidityTemperature Kind = iota
	Gas
	Particulate
)

// Kinds lists every sensor kind in fragment order.
var Kinds = []Kind{HumidityTemperature, Gas, Particulate}

// Tag is the literal sensor name that starts the kind's fragment.
func (k Kind) Tag() string {
	switch k {
	case HumidityTemperature:
		return "DHT11"
	case Gas:
		return "MQ135"
	case Particulate:
		return "PMS5003"
	default:
		return fmt.Sprintf("SENSOR%d", int(k))
	}
}

func (k Kind) String() string {
	switch k {
	case HumidityTemperature:
		return "humidity_temperature"
	case Gas:
		return "gas"
	case Particulate:
		return "particulate"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field keys, per fragment.
const (
	KeyTemperatureC = "Temperature_Celsius"
	KeyTemperatureF = "Temperature_Fahrenheit"
	KeyFeelsLike    = "Temperature_Feels_like"
	KeyHumidity     = "Humidity"

	KeyGas = "MQ"

	KeyPM1_0 = "PM1.0"
	KeyPM2_5 = "PM2.5"
	KeyPM10  = "PM10"
)

// CountKeys are the particle count keys in wire order.
var CountKeys = []string{"N0.3", "N0.5", "N1.0", "N2.5", "N5.0", "N10"}

// Reading is a successful measurement of one sensor.
type Reading interface {
	Kind() Kind
	// Fields returns the key:value pairs in wire order.
	Fields() []wire.Field
}

// Render turns a reading into its fragment.
func Render(r Reading) wire.Fragment {
	return wire.NewFragment(r.Kind().Tag(), r.Fields()...)
}

// Sensor is one configured sensor. Read returns either a Reading or an error;
// adapters in this package return *Fault, anything else is treated as the
// sensor being unreachable.
type Sensor interface {
	Kind() Kind
	Read(ctx context.Context) (Reading, error)
}

// FaultKind classifies why a sensor produced no reading.
type FaultKind int

const (
	// Unreachable means the collaborator could not be contacted at all.
	Unreachable FaultKind = iota + 1
	// InvalidMeasurement means it answered with unusable data or an error code.
	InvalidMeasurement
)

func (k FaultKind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case InvalidMeasurement:
		return "invalid_measurement"
	default:
		return "unknown"
	}
}

// Reasons rendered when a fault carries no subcode.
const (
	ReasonUnreachable = "Could_not_reach_sensor"
	ReasonInvalid     = "Could_not_get_a_valid_measurement"
)

// Fault is a sensor failure for one cycle.
type Fault struct {
	Kind   FaultKind
	Sensor Kind
	// Code is an adapter specific subcode carried verbatim into the fragment.
	Code string
	Err  error
}

func (f *Fault) Error() string {
	msg := fmt.Sprintf("%s sensor %s: %s", f.Sensor.Tag(), f.Kind, f.Reason())
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Fault) Unwrap() error { return f.Err }

// Reason is the text that follows "ERROR:" in the fault fragment.
func (f *Fault) Reason() string {
	if f.Code != "" {
		return f.Code
	}
	if f.Kind == Unreachable {
		return ReasonUnreachable
	}
	return ReasonInvalid
}

func (f *Fault) Fragment() wire.Fragment {
	return wire.ErrorFragment(f.Sensor.Tag(), f.Reason())
}

func unreachable(k Kind, err error) *Fault {
	return &Fault{Kind: Unreachable, Sensor: k, Err: err}
}

func invalid(k Kind, err error) *Fault {
	return &Fault{Kind: InvalidMeasurement, Sensor: k, Err: err}
}

// AsFault classifies any read error for sensor k. A *Fault is returned as is;
// every other error means the collaborator could not be reached.
func AsFault(k Kind, err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return unreachable(k, err)
}
