//go:build tinygo

package main

import (
	"errors"
	"machine"
	"math"

	"tinygo.org/x/drivers/dht"
)

// dht11 reads the sensor once per Celsius read; the other values come from
// the same measurement. A checksum failure is an invalid measurement, any
// other failure means the sensor did not answer.
type dht11 struct {
	dev dht.Device
}

func newDHT11(pin machine.Pin) *dht11 {
	return &dht11{dev: dht.New(pin, dht.DHT11)}
}

func (d *dht11) ReadTemperatureCelsius() (float64, error) {
	if err := d.dev.ReadMeasurements(); err != nil {
		if errors.Is(err, dht.ChecksumError) {
			return math.NaN(), nil
		}
		return 0, err
	}
	return d.value(d.dev.TemperatureFloat(dht.C))
}

func (d *dht11) ReadTemperatureFahrenheit() (float64, error) {
	return d.value(d.dev.TemperatureFloat(dht.F))
}

func (d *dht11) ReadHumidity() (float64, error) {
	return d.value(d.dev.HumidityFloat())
}

func (d *dht11) value(v float32, err error) (float64, error) {
	if err != nil {
		return math.NaN(), nil
	}
	return float64(v), nil
}

type adcPin struct {
	adc machine.ADC
}

func newADCPin(pin machine.Pin) *adcPin {
	adc := machine.ADC{Pin: pin}
	adc.Configure(machine.ADCConfig{})
	return &adcPin{adc: adc}
}

// ReadRaw returns the 16-bit scaled conversion.
func (p *adcPin) ReadRaw() (float64, error) {
	return float64(p.adc.Get()), nil
}
