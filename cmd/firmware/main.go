//go:build tinygo

// Command firmware is the sensor node for an RP2350 board: DHT11 on a GPIO
// pin, MQ135 on an ADC pin, PMS5003 on UART1 and an SX127x LoRa modem on SPI0.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"machine"
	"os"
	"time"

	"github.com/francescopittino/AirQualityLoRaProject/internal/acquire"
	"github.com/francescopittino/AirQualityLoRaProject/internal/node"
	"github.com/francescopittino/AirQualityLoRaProject/internal/pms"
	"github.com/francescopittino/AirQualityLoRaProject/internal/radio"
	"github.com/francescopittino/AirQualityLoRaProject/internal/schedule"
	"github.com/francescopittino/AirQualityLoRaProject/internal/sensor"
	"github.com/francescopittino/AirQualityLoRaProject/internal/station"
)

const (
	stationName = "Dogna"
	stationLat  = "46.448526"
	stationLon  = "13.315586"
	stationAlt  = "400"
)

func main() {
	// USB CDC serial
	machine.Serial.Configure(machine.UARTConfig{})

	// Give the host time to enumerate the USB serial device.
	time.Sleep(1500 * time.Millisecond)

	fmt.Println("boot: air quality node", stationName)

	id, err := station.New(stationName, stationLat, stationLon, stationAlt)
	if err != nil {
		halt("station.New failed:", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	fmt.Println("pms: configuring uart...")
	uart := machine.UART1
	if err := uart.Configure(machine.UARTConfig{
		BaudRate: 9600,
		TX:       machine.GP4,
		RX:       machine.GP5,
	}); err != nil {
		halt("uart.Configure failed:", err)
	}
	particulate := pms.New(uart, pms.PMS5003)
	if err := particulate.Init(); err != nil {
		fmt.Println("WARN: pms passive mode failed (continuing):", err)
	}

	fmt.Println("mq135: configuring adc...")
	machine.InitADC()
	gas := newADCPin(machine.ADC0)

	stage, err := acquire.New([]sensor.Sensor{
		sensor.NewClimate(newDHT11(machine.GP15)),
		sensor.NewGas(gas),
		sensor.NewParticulate(particulate, false),
	}, acquire.WithLogger(logger))
	if err != nil {
		halt("acquire.New failed:", err)
	}

	fmt.Println("lora: starting modem...")
	modem, err := newLoRa()
	if err != nil {
		halt("lora init failed:", err)
	}
	fmt.Println("lora: modem ready")

	n, err := node.New(id,
		schedule.New(schedule.Minute, schedule.SystemClock{}, logger),
		stage,
		radio.NewTransmitter(modem, radio.MaxLoRaPayload, logger),
		node.WithLogger(logger),
		node.WithTransitionHook(func(from, to node.State) {
			fmt.Println("state:", from, "->", to)
		}),
	)
	if err != nil {
		halt("node.New failed:", err)
	}

	if err := n.Run(context.Background()); err != nil {
		halt("node stopped:", err)
	}
}

func halt(msg string, err error) {
	fmt.Println("FATAL:", msg, err)
	for {
		time.Sleep(1 * time.Second)
	}
}
