// Package acquire runs the acquisition stage: every configured sensor is read
// once, in fragment order, and each outcome is rendered into exactly one
// fragment. No sensor failure leaves this package.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/francescopittino/AirQualityLoRaProject/internal/sensor"
	"github.com/francescopittino/AirQualityLoRaProject/internal/wire"
)

const DefaultTimeout = 5 * time.Second

// ErrReadInProgress is reported for a sensor whose previous read outlived
// its timeout and has not returned yet.
var ErrReadInProgress = errors.New("previous read still in progress")

// FaultObserver is told about every sensor fault, e.g. to count it.
type FaultObserver interface {
	SensorFault(f *sensor.Fault)
}

type Option func(*Stage)

// WithTimeout bounds a single sensor read. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Stage) { s.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Stage) {
		if l != nil {
			s.log = l
		}
	}
}

func WithObserver(o FaultObserver) Option {
	return func(s *Stage) { s.observer = o }
}

type Stage struct {
	sensors  []sensor.Sensor
	timeout  time.Duration
	log      *slog.Logger
	observer FaultObserver

	mu       sync.Mutex
	inFlight map[sensor.Kind]chan struct{}
}

// New orders sensors by kind. Two sensors of the same kind are rejected, as
// a cycle carries at most one fragment per sensor.
func New(sensors []sensor.Sensor, opts ...Option) (*Stage, error) {
	ordered := make([]sensor.Sensor, len(sensors))
	copy(ordered, sensors)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Kind() < ordered[j].Kind()
	})
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Kind() == ordered[i-1].Kind() {
			return nil, fmt.Errorf("duplicate %s sensor", ordered[i].Kind().Tag())
		}
	}

	s := &Stage{
		sensors:  ordered,
		timeout:  DefaultTimeout,
		log:      slog.Default(),
		inFlight: make(map[sensor.Kind]chan struct{}, len(ordered)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sensors returns the configured sensors in fragment order.
func (s *Stage) Sensors() []sensor.Sensor {
	return s.sensors
}

// Run reads every sensor in order. The result has one fragment per sensor.
func (s *Stage) Run(ctx context.Context) []wire.Fragment {
	fragments := make([]wire.Fragment, 0, len(s.sensors))
	for _, sn := range s.sensors {
		fragments = append(fragments, s.Acquire(ctx, sn))
	}
	return fragments
}

// Acquire reads one sensor and always returns a well-formed fragment.
func (s *Stage) Acquire(ctx context.Context, sn sensor.Sensor) wire.Fragment {
	reading, err := s.read(ctx, sn)
	if err != nil {
		fault := sensor.AsFault(sn.Kind(), err)
		s.log.Warn("sensor fault",
			"sensor", sn.Kind().Tag(),
			"fault", fault.Kind.String(),
			"reason", fault.Reason(),
			"error", fault.Err,
		)
		if s.observer != nil {
			s.observer.SensorFault(fault)
		}
		return fault.Fragment()
	}

	frag := sensor.Render(reading)
	s.log.Debug("sensor read", "sensor", sn.Kind().Tag(), "fragment", string(frag))
	return frag
}

type result struct {
	reading sensor.Reading
	err     error
}

// slot returns the single-entry semaphore guarding reads of kind k.
func (s *Stage) slot(k sensor.Kind) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	sem, ok := s.inFlight[k]
	if !ok {
		sem = make(chan struct{}, 1)
		s.inFlight[k] = sem
	}
	return sem
}

// read runs the collaborator on its own goroutine so that a hung or
// panicking driver costs this sensor its fragment and nothing else. A
// collaborator never sees two calls at once: until an abandoned read
// returns, the sensor is reported unreachable without being called.
func (s *Stage) read(ctx context.Context, sn sensor.Sensor) (sensor.Reading, error) {
	sem := s.slot(sn.Kind())
	select {
	case sem <- struct{}{}:
	default:
		return nil, fmt.Errorf("read %s: %w", sn.Kind().Tag(), ErrReadInProgress)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	done := make(chan result, 1)
	go func() {
		r := call(ctx, sn)
		// free the slot before the result is seen, so the next cycle finds it
		<-sem
		done <- r
	}()

	select {
	case r := <-done:
		return r.reading, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("read %s: %w", sn.Kind().Tag(), ctx.Err())
	}
}

func call(ctx context.Context, sn sensor.Sensor) (r result) {
	defer func() {
		if p := recover(); p != nil {
			r = result{err: fmt.Errorf("sensor panicked: %v", p)}
		}
	}()
	reading, err := sn.Read(ctx)
	if err == nil && reading == nil {
		err = fmt.Errorf("sensor returned no reading")
	}
	return result{reading: reading, err: err}
}
