package ratelimit

import (
	"errors"
	"sync"
	"time"
)

// errBreakerOpen is returned by breaker.call while the cooldown is running.
var errBreakerOpen = errors.New("store circuit open")

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker trips after maxFailures consecutive store errors and stays open for
// cooldown. After the cooldown a single probe call is let through; its
// outcome closes or re-opens the circuit.
type breaker struct {
	mu            sync.Mutex
	state         breakerState
	failures      int
	lastFailure   time.Time
	maxFailures   int
	cooldown      time.Duration
	onStateChange func(from, to breakerState)
}

func newBreaker(maxFailures int, cooldown time.Duration, onStateChange func(from, to breakerState)) *breaker {
	if maxFailures <= 0 {
		maxFailures = 3
	}
	if cooldown <= 0 {
		cooldown = 15 * time.Second
	}
	return &breaker{
		maxFailures:   maxFailures,
		cooldown:      cooldown,
		onStateChange: onStateChange,
	}
}

func (b *breaker) call(fn func() error) error {
	b.mu.Lock()
	if b.state == breakerOpen {
		if time.Since(b.lastFailure) < b.cooldown {
			b.mu.Unlock()
			return errBreakerOpen
		}
		b.setState(breakerHalfOpen)
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		b.lastFailure = time.Now()
		if b.state == breakerHalfOpen || b.failures >= b.maxFailures {
			b.setState(breakerOpen)
		}
		return err
	}

	b.failures = 0
	if b.state != breakerClosed {
		b.setState(breakerClosed)
	}
	return nil
}

// setState must be called with the mutex held.
func (b *breaker) setState(next breakerState) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	if b.onStateChange != nil {
		b.onStateChange(prev, next)
	}
}
