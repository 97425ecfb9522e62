package mqtt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func newTestClient() *Client {
	return NewClient(Options{Broker: "127.0.0.1", Port: 1, ClientID: "test"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_NotConnected(t *testing.T) {
	c := newTestClient()
	if c.IsConnected() {
		t.Fatal("IsConnected() = true before Connect")
	}
	err := c.Publish("lora/uplink", []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "not connected") {
		t.Errorf("Publish() error = %v, want not connected", err)
	}
	err = c.Subscribe("lora/uplink", func(string, []byte) {})
	if err == nil || !strings.Contains(err.Error(), "not connected") {
		t.Errorf("Subscribe() error = %v, want not connected", err)
	}
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
	if _, ok := c.subs["lora/uplink"]; !ok {
		t.Error("subscription not remembered for reconnect")
	}
}

func TestClient_DisconnectIdempotent(t *testing.T) {
	c := newTestClient()
	c.Disconnect()
	c.Disconnect()

	err := c.Connect(context.Background())
	if err == nil || !strings.Contains(err.Error(), "client stopped") {
		t.Fatalf("Connect() after Disconnect error = %v, want client stopped", err)
	}
}
