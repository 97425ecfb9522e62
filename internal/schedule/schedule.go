// Package schedule aligns cycle starts to wall-clock boundaries.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Unit is the boundary a cycle is aligned to.
type Unit int

const (
	Minute Unit = iota
	Hour
)

func (u Unit) Duration() time.Duration {
	if u == Hour {
		return time.Hour
	}
	return time.Minute
}

func (u Unit) String() string {
	if u == Hour {
		return "hour"
	}
	return "minute"
}

func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minute", "m", "min":
		return Minute, nil
	case "hour", "h":
		return Hour, nil
	default:
		return 0, fmt.Errorf("unknown cycle unit %q (want minute|hour)", s)
	}
}

// NextBoundary returns the earliest instant strictly after now whose seconds
// (and for Hour, minutes) are zero. An instant exactly on a boundary yields
// the following one. Boundaries are taken in now's location, so zones with a
// half-hour offset get local hour boundaries.
func NextBoundary(now time.Time, unit Unit) time.Time {
	y, mo, d := now.Date()
	h, m, _ := now.Clock()
	if unit == Hour {
		m = 0
	}
	floor := time.Date(y, mo, d, h, m, 0, 0, now.Location())
	return floor.Add(unit.Duration())
}

// Clock is the wall clock the scheduler reads. Every call to Now is a fresh
// read.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// SystemClock is the real clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) NewTimer(d time.Duration) Timer {
	return systemTimer{time.NewTimer(d)}
}

type systemTimer struct{ t *time.Timer }

func (t systemTimer) C() <-chan time.Time { return t.t.C }
func (t systemTimer) Stop() bool          { return t.t.Stop() }

type Scheduler struct {
	unit  Unit
	clock Clock
	log   *slog.Logger
}

// New returns a scheduler for unit. A nil clock means the system clock.
func New(unit Unit, clock Clock, log *slog.Logger) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{unit: unit, clock: clock, log: log}
}

func (s *Scheduler) Unit() Unit { return s.unit }

// WaitUntilNextBoundary blocks until the next boundary after the current
// time. It never returns before the boundary; a timer that fires early is
// re-armed for the remainder. The only error is ctx's.
func (s *Scheduler) WaitUntilNextBoundary(ctx context.Context) error {
	now := s.clock.Now()
	next := NextBoundary(now, s.unit)
	s.log.Debug("waiting for boundary", "unit", s.unit.String(), "next", next, "wait", next.Sub(now))

	for {
		wait := next.Sub(now)
		if wait <= 0 {
			return nil
		}

		timer := s.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C():
		}
		now = s.clock.Now()
	}
}
