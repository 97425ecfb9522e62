package hostio

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
)

var adsChannels = [...]ads1x15.Channel{
	ads1x15.Channel0,
	ads1x15.Channel1,
	ads1x15.Channel2,
	ads1x15.Channel3,
}

// ADCPin is one single-ended ADS1115 input, used for the MQ135 analog output.
type ADCPin struct {
	pin ads1x15.PinADC
}

func NewADCPin(bus i2c.Bus, addr uint16, channel int) (*ADCPin, error) {
	if channel < 0 || channel >= len(adsChannels) {
		return nil, fmt.Errorf("ads1115 channel %d out of range", channel)
	}
	adc, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: addr})
	if err != nil {
		return nil, fmt.Errorf("ads1x15.NewADS1115(%#x): %w", addr, err)
	}
	pin, err := adc.PinForChannel(adsChannels[channel], 5*physic.Volt, 1*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		return nil, fmt.Errorf("ads1115 channel %d: %w", channel, err)
	}
	return &ADCPin{pin: pin}, nil
}

// ReadRaw returns the raw conversion code.
func (p *ADCPin) ReadRaw() (float64, error) {
	s, err := p.pin.Read()
	if err != nil {
		return 0, fmt.Errorf("ads1115 read: %w", err)
	}
	return float64(s.Raw), nil
}

func (p *ADCPin) Close() error {
	return p.pin.Halt()
}
