package sensor

import (
	"context"
	"errors"
	"math"

	"github.com/francescopittino/AirQualityLoRaProject/internal/wire"
)

// ClimateProbe is the humidity/temperature collaborator. A non-finite value
// means the probe answered but the measurement is unusable; an error means
// it could not be reached.
type ClimateProbe interface {
	ReadTemperatureCelsius() (float64, error)
	ReadTemperatureFahrenheit() (float64, error)
	ReadHumidity() (float64, error)
}

// ClimateReading is a valid humidity/temperature measurement.
type ClimateReading struct {
	TemperatureC float64
	TemperatureF float64
	FeelsLikeC   float64
	Humidity     float64
}

func (ClimateReading) Kind() Kind { return HumidityTemperature }

func (r ClimateReading) Fields() []wire.Field {
	return []wire.Field{
		{Key: KeyTemperatureC, Value: wire.Float(r.TemperatureC)},
		{Key: KeyTemperatureF, Value: wire.Float(r.TemperatureF)},
		{Key: KeyFeelsLike, Value: wire.Float(r.FeelsLikeC)},
		{Key: KeyHumidity, Value: wire.Float(r.Humidity)},
	}
}

// Climate adapts a ClimateProbe.
type Climate struct {
	probe ClimateProbe
}

func NewClimate(p ClimateProbe) *Climate {
	return &Climate{probe: p}
}

func (c *Climate) Kind() Kind { return HumidityTemperature }

func (c *Climate) Read(context.Context) (Reading, error) {
	tempC, err := c.probe.ReadTemperatureCelsius()
	if err != nil {
		return nil, unreachable(HumidityTemperature, err)
	}
	tempF, err := c.probe.ReadTemperatureFahrenheit()
	if err != nil {
		return nil, unreachable(HumidityTemperature, err)
	}
	humidity, err := c.probe.ReadHumidity()
	if err != nil {
		return nil, unreachable(HumidityTemperature, err)
	}

	if !finite(tempC) || !finite(tempF) || !finite(humidity) {
		return nil, invalid(HumidityTemperature, errors.New("non-numeric temperature or humidity"))
	}

	return ClimateReading{
		TemperatureC: tempC,
		TemperatureF: tempF,
		FeelsLikeC:   HeatIndex(tempC, humidity),
		Humidity:     humidity,
	}, nil
}

// HeatIndex returns the apparent temperature in Celsius using the NWS
// Steadman/Rothfusz approximation, evaluated in Fahrenheit.
func HeatIndex(celsius, humidity float64) float64 {
	t := celsiusToFahrenheit(celsius)
	hi := 0.5 * (t + 61.0 + ((t - 68.0) * 1.2) + (humidity * 0.094))

	if hi > 79 {
		hi = -42.379 +
			2.04901523*t +
			10.14333127*humidity -
			0.22475541*t*humidity -
			0.00683783*t*t -
			0.05481717*humidity*humidity +
			0.00122874*t*t*humidity +
			0.00085282*t*humidity*humidity -
			0.00000199*t*t*humidity*humidity

		switch {
		case humidity < 13 && t >= 80.0 && t <= 112.0:
			hi -= ((13.0 - humidity) * 0.25) * math.Sqrt((17.0-math.Abs(t-95.0))*0.05882)
		case humidity > 85.0 && t >= 80.0 && t <= 87.0:
			hi += ((humidity - 85.0) * 0.1) * ((87.0 - t) * 0.2)
		}
	}
	return fahrenheitToCelsius(hi)
}

func celsiusToFahrenheit(c float64) float64 { return c*1.8 + 32 }
func fahrenheitToCelsius(f float64) float64 { return (f - 32) * 0.55555 }

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
