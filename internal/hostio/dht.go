package hostio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IIODHT reads a DHT11 bound to the kernel dht11 IIO driver. Values in sysfs
// are milli-degrees and milli-percent. An unparsable value is reported as NaN
// so it classifies as an invalid measurement rather than an unreachable probe.
type IIODHT struct {
	dir string
}

func NewIIODHT(dir string) (*IIODHT, error) {
	if _, err := os.Stat(filepath.Join(dir, "in_temp_input")); err != nil {
		return nil, fmt.Errorf("dht11 iio device: %w", err)
	}
	return &IIODHT{dir: dir}, nil
}

func (d *IIODHT) ReadTemperatureCelsius() (float64, error) {
	return d.readMilli("in_temp_input")
}

func (d *IIODHT) ReadTemperatureFahrenheit() (float64, error) {
	c, err := d.ReadTemperatureCelsius()
	if err != nil {
		return 0, err
	}
	return c*1.8 + 32, nil
}

func (d *IIODHT) ReadHumidity() (float64, error) {
	return d.readMilli("in_humidityrelative_input")
}

func (d *IIODHT) readMilli(name string) (float64, error) {
	raw, err := os.ReadFile(filepath.Join(d.dir, name))
	if err != nil {
		return 0, fmt.Errorf("dht11 %s: %w", name, err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return math.NaN(), nil
	}
	return float64(v) / 1000, nil
}
