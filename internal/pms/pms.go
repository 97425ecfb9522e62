// Package pms talks to Plantower PMSx003 particulate sensors over a serial
// link in passive mode.
//
// Every message is a frame:
//
//	0x42 0x4D <len hi> <len lo> <len bytes: data words ... checksum hi, checksum lo>
//
// where the checksum is the sum of every preceding byte of the frame.
package pms

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	start1 = 0x42
	start2 = 0x4D

	headerLen = 4
	// maxSkip bounds how many stray bytes are discarded looking for a frame.
	maxSkip = 64
	// maxDrain bounds how many stale bytes are discarded before a request.
	maxDrain = 256

	DefaultTimeout = time.Second
	pollInterval   = 10 * time.Millisecond
)

var (
	cmdPassive = []byte{0x42, 0x4D, 0xE1, 0x00, 0x00, 0x01, 0x70}
	cmdRead    = []byte{0x42, 0x4D, 0xE2, 0x00, 0x00, 0x01, 0x71}
)

// Status is a failed read outcome. Its text is the subcode sent on the wire.
type Status uint8

const (
	ErrTimeout Status = iota + 1
	ErrMsgUnknown
	ErrMsgHeader
	ErrMsgBody
	ErrMsgStart
	ErrMsgLength
	ErrMsgChecksum
	ErrPMSType
)

func (s Status) Error() string {
	switch s {
	case ErrTimeout:
		return "ERROR_TIMEOUT"
	case ErrMsgUnknown:
		return "ERROR_MSG_UNKNOWN"
	case ErrMsgHeader:
		return "ERROR_MSG_HEADER"
	case ErrMsgBody:
		return "ERROR_MSG_BODY"
	case ErrMsgStart:
		return "ERROR_MSG_START"
	case ErrMsgLength:
		return "ERROR_MSG_LENGTH"
	case ErrMsgChecksum:
		return "ERROR_MSG_CKSUM"
	case ErrPMSType:
		return "ERROR_PMS_TYPE"
	default:
		return fmt.Sprintf("ERROR_STATUS_%d", uint8(s))
	}
}

// Model selects the expected frame layout.
type Model uint8

const (
	PMS5003 Model = iota
	PMS3003
)

// Frame lengths as carried in the length field.
const (
	ackLength     = 4
	pms3003Length = 20
	pms5003Length = 28
)

func (m Model) frameLength() uint16 {
	if m == PMS3003 {
		return pms3003Length
	}
	return pms5003Length
}

func (m Model) String() string {
	if m == PMS3003 {
		return "PMS3003"
	}
	return "PMS5003"
}

// Counts are particles per 0.1 L of air above each diameter.
type Counts struct {
	N0_3, N0_5, N1_0, N2_5, N5_0, N10 uint16
}

// Measurement holds atmospheric mass concentrations in µg/m³. Counts is nil
// when the frame carries no count data.
type Measurement struct {
	PM1_0, PM2_5, PM10 uint16
	Counts             *Counts
}

func (m Measurement) HasCounts() bool { return m.Counts != nil }

// Device is a sensor on a serial port. Port reads may return (0, nil) while
// no data is buffered; Device polls until its timeout.
type Device struct {
	port    io.ReadWriter
	model   Model
	timeout time.Duration
	now     func() time.Time
	sleep   func(time.Duration)
}

func New(port io.ReadWriter, model Model) *Device {
	return &Device{
		port:    port,
		model:   model,
		timeout: DefaultTimeout,
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

func (d *Device) SetTimeout(t time.Duration) {
	if t > 0 {
		d.timeout = t
	}
}

// Init switches the sensor to passive mode.
func (d *Device) Init() error {
	return d.command(cmdPassive)
}

func (d *Device) command(cmd []byte) error {
	if _, err := d.port.Write(cmd); err != nil {
		return fmt.Errorf("pms write command %#x: %w", cmd[2], err)
	}
	return nil
}

// inputResetter is implemented by serial ports that can flush their receive
// buffer, e.g. go.bug.st/serial.Port.
type inputResetter interface {
	ResetInputBuffer() error
}

// Read requests one frame and decodes it. Anything buffered before the
// request (the passive-mode ack, frames sent while still in active mode, a
// late answer to an earlier request) is discarded first. Protocol failures
// are returned as a Status; transport failures are returned wrapped.
func (d *Device) Read() (Measurement, error) {
	if err := d.discardInput(); err != nil {
		return Measurement{}, err
	}
	if err := d.command(cmdRead); err != nil {
		return Measurement{}, err
	}
	frame, err := d.readFrame()
	if err != nil {
		return Measurement{}, err
	}
	return Decode(frame, d.model)
}

func (d *Device) discardInput() error {
	if r, ok := d.port.(inputResetter); ok {
		if err := r.ResetInputBuffer(); err != nil {
			return fmt.Errorf("pms reset input: %w", err)
		}
		return nil
	}

	var buf [32]byte
	for drained := 0; drained < maxDrain; {
		n, err := d.port.Read(buf[:])
		drained += n
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("pms read: %w", err)
		}
	}
	return nil
}

var errNoData = errors.New("no data")

func (d *Device) readFrame() ([]byte, error) {
	deadline := d.now().Add(d.timeout)

	var b [1]byte
	received := 0
	for {
		if _, err := d.readFull(b[:], deadline); err != nil {
			if errors.Is(err, errNoData) {
				if received == 0 {
					return nil, ErrTimeout
				}
				return nil, ErrMsgStart
			}
			return nil, err
		}
		received++
		if b[0] == start1 {
			break
		}
		if received > maxSkip {
			return nil, ErrMsgStart
		}
	}

	frame := make([]byte, headerLen, headerLen+pms5003Length)
	frame[0] = start1
	if _, err := d.readFull(frame[1:headerLen], deadline); err != nil {
		if errors.Is(err, errNoData) {
			return nil, ErrMsgHeader
		}
		return nil, err
	}
	if frame[1] != start2 {
		return nil, ErrMsgHeader
	}

	length := binary.BigEndian.Uint16(frame[2:4])
	if length != ackLength && length != pms3003Length && length != pms5003Length {
		return nil, ErrMsgLength
	}
	frame = append(frame, make([]byte, length)...)
	if _, err := d.readFull(frame[headerLen:], deadline); err != nil {
		if errors.Is(err, errNoData) {
			return nil, ErrMsgBody
		}
		return nil, err
	}
	return frame, nil
}

// readFull fills buf or returns errNoData once the port runs dry (EOF or
// deadline).
func (d *Device) readFull(buf []byte, deadline time.Time) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := d.port.Read(buf[n:])
		n += m
		if errors.Is(err, io.EOF) {
			if n < len(buf) {
				return n, errNoData
			}
			break
		}
		if err != nil {
			return n, fmt.Errorf("pms read: %w", err)
		}
		if m == 0 {
			if !d.now().Before(deadline) {
				return n, errNoData
			}
			d.sleep(pollInterval)
		}
	}
	return n, nil
}
