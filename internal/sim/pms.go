package sim

import (
	"bytes"
	"math"

	"github.com/francescopittino/AirQualityLoRaProject/internal/pms"
)

// PMSPort simulates the serial side of a PMS sensor: the passive-mode
// command is acknowledged and every read request queues one frame. A failed
// read queues a frame with a broken checksum.
type PMSPort struct {
	source
	model         pms.Model
	pm2_5, coarse walk
	buf           bytes.Buffer
}

func NewPMSPort(o Options, model pms.Model) *PMSPort {
	return &PMSPort{
		source: source{rng: newRand(o, 3), faultRate: o.FaultRate},
		model:  model,
		pm2_5:  walk{v: 20, step: 1.5, min: 0, max: 500},
		coarse: walk{v: 5, step: 0.5, min: 0, max: 100},
	}
}

// NewPMS returns a device reading from a simulated port.
func NewPMS(o Options, model pms.Model) *pms.Device {
	return pms.New(NewPMSPort(o, model), model)
}

func (p *PMSPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(b) < 5 {
		return len(b), nil
	}
	switch b[2] {
	case 0xE1:
		p.buf.Write(pms.EncodeAck(b[2], b[4]))
	case 0xE2:
		p.buf.Write(p.frame())
	}
	return len(b), nil
}

// Read returns (0, nil) when nothing is queued, like a serial port whose
// read timeout expired.
func (p *PMSPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.buf.Len() == 0 {
		return 0, nil
	}
	return p.buf.Read(b)
}

func (p *PMSPort) frame() []byte {
	pm25 := p.pm2_5.next(p.rng)
	extra := p.coarse.next(p.rng)
	m := pms.Measurement{
		PM1_0: uint16(math.Round(pm25 * 0.6)),
		PM2_5: uint16(math.Round(pm25)),
		PM10:  uint16(math.Round(pm25 + extra)),
	}
	if p.model == pms.PMS5003 {
		m.Counts = &pms.Counts{
			N0_3: uint16(math.Round(pm25 * 45)),
			N0_5: uint16(math.Round(pm25 * 13)),
			N1_0: uint16(math.Round(pm25 * 2.5)),
			N2_5: uint16(math.Round(extra * 1.2)),
			N5_0: uint16(math.Round(extra * 0.4)),
			N10:  uint16(math.Round(extra * 0.1)),
		}
	}
	f := pms.Encode(m, p.model)
	if p.fail() {
		f[len(f)-1] ^= 0xFF
	}
	return f
}
