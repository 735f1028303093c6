package orchestrator

import (
	"sync"
	"time"
)

// stopSignal is a latching, idempotent cancellation primitive: Raise may be
// called any number of times from any goroutine, and every current or future
// waiter observes the signal exactly once it has fired. Unlike a bare
// context.CancelFunc, callers can both poll (Fired) and block with a bound
// (Wait), which the warmup and watchdog loops use to wake within one tick of
// a stop request rather than polling on a sleep-only loop.
type stopSignal struct {
	once sync.Once
	ch   chan struct{}
}

func newStopSignal() *stopSignal {
	return &stopSignal{ch: make(chan struct{})}
}

// Raise fires the signal. Safe to call multiple times or concurrently.
func (s *stopSignal) Raise() {
	s.once.Do(func() { close(s.ch) })
}

// Fired reports whether Raise has been called, without blocking.
func (s *stopSignal) Fired() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// Wait blocks until either the signal fires or d elapses, returning true iff
// the signal fired.
func (s *stopSignal) Wait(d time.Duration) bool {
	select {
	case <-s.ch:
		return true
	case <-time.After(d):
		return false
	}
}

// Done returns the underlying channel for use in select statements.
func (s *stopSignal) Done() <-chan struct{} {
	return s.ch
}
