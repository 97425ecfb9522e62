package sensor

import (
	"context"
	"errors"

	"github.com/francescopittino/AirQualityLoRaProject/internal/wire"
)

// AnalogPin is the gas probe collaborator: one raw analog sample.
type AnalogPin interface {
	ReadRaw() (float64, error)
}

type GasReading struct {
	Raw float64
}

func (GasReading) Kind() Kind { return Gas }

func (r GasReading) Fields() []wire.Field {
	return []wire.Field{{Key: KeyGas, Value: wire.Float(r.Raw)}}
}

// GasProbe adapts an analog pin wired to an MQ135. It has no warm-up or setup
// step of its own.
type GasProbe struct {
	pin AnalogPin
}

func NewGas(pin AnalogPin) *GasProbe {
	return &GasProbe{pin: pin}
}

func (g *GasProbe) Kind() Kind { return Gas }

func (g *GasProbe) Read(context.Context) (Reading, error) {
	raw, err := g.pin.ReadRaw()
	if err != nil {
		return nil, unreachable(Gas, err)
	}
	if !finite(raw) {
		return nil, invalid(Gas, errors.New("non-numeric analog sample"))
	}
	return GasReading{Raw: raw}, nil
}
