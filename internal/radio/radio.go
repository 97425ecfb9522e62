// Package radio is the transmission stage: it hands one composed message per
// cycle to a radio transport as begin, write, end. Nothing is retried or
// queued; a failed message is dropped.
package radio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/francescopittino/AirQualityLoRaProject/internal/wire"
)

// MaxLoRaPayload is the largest packet an SX127x FIFO can send.
const MaxLoRaPayload = 255

var (
	ErrPayloadTooLarge = errors.New("payload exceeds radio maximum")
	ErrNotStarted      = errors.New("no transmission in progress")
)

// Transport is the radio collaborator.
type Transport interface {
	BeginTransmission() error
	io.Writer
	// EndTransmission sends the packet written since BeginTransmission.
	EndTransmission(ctx context.Context) error
}

type Step string

const (
	StepSize  Step = "size"
	StepBegin Step = "begin"
	StepWrite Step = "write"
	StepEnd   Step = "end"
)

// Fault is a failed transmission.
type Fault struct {
	Step Step
	Err  error
}

func (f *Fault) Error() string { return fmt.Sprintf("radio %s: %v", f.Step, f.Err) }
func (f *Fault) Unwrap() error { return f.Err }

type Transmitter struct {
	transport  Transport
	maxPayload int
	log        *slog.Logger
}

// NewTransmitter wraps t. maxPayload <= 0 disables the size check.
func NewTransmitter(t Transport, maxPayload int, log *slog.Logger) *Transmitter {
	if log == nil {
		log = slog.Default()
	}
	return &Transmitter{transport: t, maxPayload: maxPayload, log: log}
}

// Transmit makes exactly one transmission attempt. Any failing step is
// returned as *Fault.
func (t *Transmitter) Transmit(ctx context.Context, msg wire.Message) error {
	if t.maxPayload > 0 && msg.Len() > t.maxPayload {
		return &Fault{Step: StepSize, Err: fmt.Errorf("%w: %d > %d bytes", ErrPayloadTooLarge, msg.Len(), t.maxPayload)}
	}

	if err := t.transport.BeginTransmission(); err != nil {
		return &Fault{Step: StepBegin, Err: err}
	}
	n, err := t.transport.Write(msg.Bytes())
	if err == nil && n != msg.Len() {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &Fault{Step: StepWrite, Err: err}
	}
	if err := t.transport.EndTransmission(ctx); err != nil {
		return &Fault{Step: StepEnd, Err: err}
	}

	t.log.Info("message transmitted", "bytes", msg.Len())
	return nil
}
