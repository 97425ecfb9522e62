package sensor

import (
	"context"
	"errors"

	"github.com/francescopittino/AirQualityLoRaProject/internal/pms"
	"github.com/francescopittino/AirQualityLoRaProject/internal/wire"
)

// ParticulateProbe is the particulate collaborator. A pms.Status error is a
// first-class failed read; any other error means the port is unusable.
type ParticulateProbe interface {
	Read() (pms.Measurement, error)
}

type ParticulateReading struct {
	pms.Measurement
	// EmitCounts renders the particle counts after PM10 when present.
	EmitCounts bool
}

func (ParticulateReading) Kind() Kind { return Particulate }

func (r ParticulateReading) Fields() []wire.Field {
	fields := []wire.Field{
		{Key: KeyPM1_0, Value: wire.Uint(uint64(r.PM1_0))},
		{Key: KeyPM2_5, Value: wire.Uint(uint64(r.PM2_5))},
		{Key: KeyPM10, Value: wire.Uint(uint64(r.PM10))},
	}
	if r.EmitCounts && r.Counts != nil {
		c := r.Counts
		for i, v := range []uint16{c.N0_3, c.N0_5, c.N1_0, c.N2_5, c.N5_0, c.N10} {
			fields = append(fields, wire.Field{Key: CountKeys[i], Value: wire.Uint(uint64(v))})
		}
	}
	return fields
}

// ParticulateSensor adapts a PMS probe.
type ParticulateSensor struct {
	probe      ParticulateProbe
	emitCounts bool
}

func NewParticulate(p ParticulateProbe, emitCounts bool) *ParticulateSensor {
	return &ParticulateSensor{probe: p, emitCounts: emitCounts}
}

func (p *ParticulateSensor) Kind() Kind { return Particulate }

func (p *ParticulateSensor) Read(context.Context) (Reading, error) {
	m, err := p.probe.Read()
	if err != nil {
		var st pms.Status
		if errors.As(err, &st) {
			return nil, &Fault{Kind: InvalidMeasurement, Sensor: Particulate, Code: st.Error(), Err: err}
		}
		return nil, unreachable(Particulate, err)
	}
	return ParticulateReading{Measurement: m, EmitCounts: p.emitCounts}, nil
}
