package hostio

import (
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/francescopittino/AirQualityLoRaProject/internal/pms"
)

// PMSBaudRate is fixed by the sensor.
const PMSBaudRate = 9600

// OpenPMS opens the serial port, switches the sensor to passive mode and
// returns the device with the port that backs it.
func OpenPMS(name string, model pms.Model) (*pms.Device, serial.Port, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: PMSBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", name, err)
	}
	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		port.Close()
		return nil, nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}

	dev := pms.New(port, model)
	if err := dev.Init(); err != nil {
		port.Close()
		return nil, nil, fmt.Errorf("%s init on %s: %w", model, name, err)
	}
	return dev, port, nil
}
