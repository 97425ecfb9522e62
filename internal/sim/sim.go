// Package sim provides simulated probes so the node runs on a machine
// without sensors attached. Values drift as a bounded random walk and a
// configurable share of reads fail the way the real hardware does.
package sim

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"
)

type Options struct {
	Seed uint64
	// FaultRate is the probability in [0,1] that a read fails.
	FaultRate float64
}

// walk is a value that drifts within [min,max].
type walk struct {
	v, step, min, max float64
}

func (w *walk) next(r *rand.Rand) float64 {
	w.v += r.NormFloat64() * w.step
	w.v = math.Max(w.min, math.Min(w.max, w.v))
	return w.v
}

type source struct {
	mu        sync.Mutex
	rng       *rand.Rand
	faultRate float64
}

func newRand(o Options, salt uint64) *rand.Rand {
	return rand.New(rand.NewPCG(o.Seed, salt))
}

func (s *source) fail() bool {
	return s.faultRate > 0 && s.rng.Float64() < s.faultRate
}

var errNoResponse = errors.New("sim: no response")

// Climate simulates a DHT11. A failed read returns NaN humidity, the way a
// DHT11 checksum failure surfaces.
type Climate struct {
	source
	temp, humidity walk
	lastC          float64
}

func NewClimate(o Options) *Climate {
	return &Climate{
		source:   source{rng: newRand(o, 1), faultRate: o.FaultRate},
		temp:     walk{v: 21.5, step: 0.2, min: -20, max: 45},
		humidity: walk{v: 55, step: 0.5, min: 5, max: 95},
	}
}

func (c *Climate) ReadTemperatureCelsius() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastC = c.temp.next(c.rng)
	return c.lastC, nil
}

func (c *Climate) ReadTemperatureFahrenheit() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastC*1.8 + 32, nil
}

func (c *Climate) ReadHumidity() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail() {
		return math.NaN(), nil
	}
	return c.humidity.next(c.rng), nil
}

// GasPin simulates the MQ135 analog output as a 16-bit ADC code.
type GasPin struct {
	source
	raw walk
}

func NewGasPin(o Options) *GasPin {
	return &GasPin{
		source: source{rng: newRand(o, 2), faultRate: o.FaultRate},
		raw:    walk{v: 512, step: 8, min: 0, max: 32767},
	}
}

func (g *GasPin) ReadRaw() (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail() {
		return 0, errNoResponse
	}
	return math.Round(g.raw.next(g.rng)), nil
}
