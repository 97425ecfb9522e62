// Package node drives the sensor node's cycle:
//
//	WAITING -> ACQUIRING -> TRANSMITTING -> WAITING -> ...
//
// Every cycle visits every configured sensor and makes exactly one
// transmission attempt, even when every sensor faulted.
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/francescopittino/AirQualityLoRaProject/internal/station"
	"github.com/francescopittino/AirQualityLoRaProject/internal/wire"
)

type State int

const (
	Waiting State = iota
	Acquiring
	Transmitting
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "WAITING"
	case Acquiring:
		return "ACQUIRING"
	case Transmitting:
		return "TRANSMITTING"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

type Waiter interface {
	WaitUntilNextBoundary(ctx context.Context) error
}

type Acquirer interface {
	Run(ctx context.Context) []wire.Fragment
}

type Sender interface {
	Transmit(ctx context.Context, msg wire.Message) error
}

// Recorder receives the outcome of every cycle.
type Recorder interface {
	CycleDone(at time.Time, took time.Duration, size int, txErr error)
}

// Status is a snapshot of the node for health reporting.
type Status struct {
	State        State     `json:"-"`
	StateName    string    `json:"state"`
	Station      string    `json:"station"`
	Cycles       uint64    `json:"cycles"`
	LastCycleAt  time.Time `json:"last_cycle_at,omitzero"`
	LastBytes    int       `json:"last_message_bytes"`
	SensorFaults int       `json:"last_sensor_faults"`
	LastTxError  string    `json:"last_transmit_error,omitempty"`
}

type Option func(*Node)

func WithLogger(l *slog.Logger) Option {
	return func(n *Node) {
		if l != nil {
			n.log = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(n *Node) { n.recorder = r }
}

// WithTransitionHook is called on every state change.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(n *Node) { n.onTransition = fn }
}

func WithClock(now func() time.Time) Option {
	return func(n *Node) {
		if now != nil {
			n.now = now
		}
	}
}

type Node struct {
	identity station.Identity
	waiter   Waiter
	acquirer Acquirer
	sender   Sender

	log          *slog.Logger
	recorder     Recorder
	onTransition func(from, to State)
	now          func() time.Time

	mu     sync.RWMutex
	status Status
}

func New(id station.Identity, w Waiter, a Acquirer, s Sender, opts ...Option) (*Node, error) {
	if id.IsZero() {
		return nil, errors.New("node: station identity is required")
	}
	if w == nil || a == nil || s == nil {
		return nil, errors.New("node: waiter, acquirer and sender are required")
	}
	n := &Node{
		identity: id,
		waiter:   w,
		acquirer: a,
		sender:   s,
		log:      slog.Default(),
		now:      time.Now,
		status:   Status{State: Waiting, Station: id.Name()},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Run loops until ctx is done. Transmission faults are logged and the node
// goes back to WAITING; only ctx ends the loop.
func (n *Node) Run(ctx context.Context) error {
	n.log.Info("node started", "station", n.identity.Name())
	for {
		n.setState(Waiting)
		if err := n.waiter.WaitUntilNextBoundary(ctx); err != nil {
			return err
		}
		if _, err := n.RunCycle(ctx); err != nil {
			n.log.Error("transmission failed, message dropped", "error", err)
		}
	}
}

// RunCycle performs one ACQUIRING and one TRANSMITTING phase and returns the
// message that was handed to the radio with the transmission outcome.
func (n *Node) RunCycle(ctx context.Context) (wire.Message, error) {
	start := n.now()
	cycle := n.Status().Cycles + 1
	n.log.Info("cycle start", "cycle", cycle)

	n.setState(Acquiring)
	fragments := n.acquirer.Run(ctx)

	faults := 0
	for _, f := range fragments {
		if f.IsError() {
			faults++
		}
	}

	n.setState(Transmitting)
	msg := wire.Compose(n.identity, fragments)
	txErr := n.sender.Transmit(ctx, msg)

	end := n.now()
	took := end.Sub(start)

	n.mu.Lock()
	n.status.Cycles = cycle
	n.status.LastCycleAt = end
	n.status.LastBytes = msg.Len()
	n.status.SensorFaults = faults
	n.status.LastTxError = ""
	if txErr != nil {
		n.status.LastTxError = txErr.Error()
	}
	n.mu.Unlock()

	if n.recorder != nil {
		n.recorder.CycleDone(end, took, msg.Len(), txErr)
	}
	n.log.Info("cycle end",
		"cycle", cycle,
		"fragments", len(fragments),
		"sensor_faults", faults,
		"bytes", msg.Len(),
		"took", took,
	)
	return msg, txErr
}

func (n *Node) Status() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	s := n.status
	s.StateName = s.State.String()
	return s
}

func (n *Node) setState(to State) {
	n.mu.Lock()
	from := n.status.State
	n.status.State = to
	n.mu.Unlock()

	if from == to {
		return
	}
	n.log.Debug("state", "from", from.String(), "to", to.String())
	if n.onTransition != nil {
		n.onTransition(from, to)
	}
}
