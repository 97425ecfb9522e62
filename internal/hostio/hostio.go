// Package hostio binds the sensor probe contracts to real hardware on a
// Linux single-board computer: periph.io for I2C devices, sysfs IIO for the
// DHT11 and a serial port for the PMS5003.
package hostio

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Init loads the periph.io host drivers. It must run before any bus is opened.
func Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("host.Init: %w", err)
	}
	return nil
}

// OpenI2C opens the named I2C bus; an empty name picks the default bus,
// usually /dev/i2c-1.
func OpenI2C(name string) (i2c.BusCloser, error) {
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2creg.Open(%q): %w", name, err)
	}
	return bus, nil
}
