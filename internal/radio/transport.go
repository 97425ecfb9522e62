package radio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
)

// packet is the begin/write/end bookkeeping shared by the buffering
// transports.
type packet struct {
	buf    bytes.Buffer
	active bool
}

// begin discards any packet left unfinished by a failed write.
func (p *packet) begin() error {
	p.buf.Reset()
	p.active = true
	return nil
}

func (p *packet) write(b []byte) (int, error) {
	if !p.active {
		return 0, ErrNotStarted
	}
	return p.buf.Write(b)
}

// take ends the packet and returns a copy of its bytes.
func (p *packet) take() ([]byte, error) {
	if !p.active {
		return nil, ErrNotStarted
	}
	p.active = false
	out := bytes.Clone(p.buf.Bytes())
	p.buf.Reset()
	return out, nil
}

// Publisher is the slice of an MQTT client the uplink transport needs.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// MQTTTransport forwards each packet as one MQTT message, standing in for a
// LoRa modem on hosts that reach the receiver through a broker.
type MQTTTransport struct {
	pub   Publisher
	topic string
	pkt   packet
}

func NewMQTTTransport(pub Publisher, topic string) *MQTTTransport {
	return &MQTTTransport{pub: pub, topic: topic}
}

func (t *MQTTTransport) BeginTransmission() error    { return t.pkt.begin() }
func (t *MQTTTransport) Write(b []byte) (int, error) { return t.pkt.write(b) }

func (t *MQTTTransport) EndTransmission(ctx context.Context) error {
	payload, err := t.pkt.take()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.pub.Publish(t.topic, payload); err != nil {
		return fmt.Errorf("uplink: %w", err)
	}
	return nil
}

// LogTransport only logs each packet.
type LogTransport struct {
	log *slog.Logger
	pkt packet
}

func NewLogTransport(log *slog.Logger) *LogTransport {
	if log == nil {
		log = slog.Default()
	}
	return &LogTransport{log: log}
}

func (t *LogTransport) BeginTransmission() error    { return t.pkt.begin() }
func (t *LogTransport) Write(b []byte) (int, error) { return t.pkt.write(b) }

func (t *LogTransport) EndTransmission(context.Context) error {
	payload, err := t.pkt.take()
	if err != nil {
		return err
	}
	t.log.Info("radio packet", "size", len(payload), "payload", string(payload))
	return nil
}
