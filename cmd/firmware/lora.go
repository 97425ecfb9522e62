//go:build tinygo

package main

import (
	"context"
	"errors"
	"machine"

	"tinygo.org/x/drivers/lora"
	"tinygo.org/x/drivers/sx127x"

	"github.com/francescopittino/AirQualityLoRaProject/internal/radio"
)

const txTimeoutMs = 2000

// loraTransport sends one packet per transmission through an SX127x.
type loraTransport struct {
	dev    *sx127x.Device
	buf    []byte
	active bool
}

func newLoRa() (*loraTransport, error) {
	spi := machine.SPI0
	if err := spi.Configure(machine.SPIConfig{
		Frequency: 500000,
		SCK:       machine.GP18,
		SDO:       machine.GP19,
		SDI:       machine.GP16,
	}); err != nil {
		return nil, err
	}

	rst := machine.GP20
	rst.Configure(machine.PinConfig{Mode: machine.PinOutput})

	dev := sx127x.New(spi, rst)
	if err := dev.SetRadioController(sx127x.NewRadioControl(machine.GP17, machine.GP21, machine.GP22)); err != nil {
		return nil, err
	}
	dev.Reset()
	if !dev.DetectDevice() {
		return nil, errors.New("sx127x not detected")
	}

	// 868 MHz, SF7, 125 kHz, 4/5, sync word 0x12: the Arduino LoRa defaults
	dev.LoraConfig(lora.Config{
		Freq:           868000000,
		Cr:             lora.CodingRate4_5,
		Sf:             lora.SpreadingFactor7,
		Bw:             lora.Bandwidth_125_0,
		Ldr:            lora.LowDataRateOptimizeOff,
		Preamble:       8,
		SyncWord:       lora.SyncPrivate,
		HeaderType:     lora.HeaderExplicit,
		Crc:            lora.CRCOff,
		Iq:             lora.IQStandard,
		LoraTxPowerDBm: 17,
	})

	return &loraTransport{dev: dev, buf: make([]byte, 0, radio.MaxLoRaPayload)}, nil
}

func (t *loraTransport) BeginTransmission() error {
	t.buf = t.buf[:0]
	t.active = true
	return nil
}

func (t *loraTransport) Write(b []byte) (int, error) {
	if !t.active {
		return 0, radio.ErrNotStarted
	}
	t.buf = append(t.buf, b...)
	return len(b), nil
}

func (t *loraTransport) EndTransmission(ctx context.Context) error {
	if !t.active {
		return radio.ErrNotStarted
	}
	t.active = false
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.dev.Tx(t.buf, txTimeoutMs)
}
