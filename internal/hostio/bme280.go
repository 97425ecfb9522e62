package hostio

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

// BME280 is a humidity/temperature probe on the I2C bus. One Sense serves a
// whole climate read: the Celsius read samples, the others reuse it.
type BME280 struct {
	dev *bmxx80.Dev

	mu   sync.Mutex
	last physic.Env
}

func NewBME280(bus i2c.Bus, addr uint16) (*BME280, error) {
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("bmxx80.NewI2C(%#x): %w", addr, err)
	}
	return &BME280{dev: dev}, nil
}

func (b *BME280) ReadTemperatureCelsius() (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.dev.Sense(&b.last); err != nil {
		return 0, fmt.Errorf("bme280 sense: %w", err)
	}
	return b.last.Temperature.Celsius(), nil
}

func (b *BME280) ReadTemperatureFahrenheit() (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last.Temperature.Celsius()*1.8 + 32, nil
}

// ReadHumidity converts the fixed point 0.00001 %rH reading to percent.
func (b *BME280) ReadHumidity() (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return float64(b.last.Humidity) / 100000.0, nil
}

func (b *BME280) Close() error {
	return b.dev.Halt()
}
