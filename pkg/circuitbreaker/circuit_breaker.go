// Package circuitbreaker stops calling a dependency that keeps failing and
// tries it again after a cool-down.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State represents the state of a circuit breaker
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// ErrOpen is matched by every error returned while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

// OpenError is returned instead of running the call when the breaker is open.
type OpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker '%s' is open, retry in %s", e.Name, e.RetryAfter.Round(time.Millisecond))
}

func (e *OpenError) Is(target error) bool {
	return target == ErrOpen
}

// Breaker opens after maxFailures consecutive failures. Once the cool-down
// has passed a single trial call is let through; its outcome closes or
// re-opens the breaker.
type Breaker struct {
	name        string
	maxFailures int
	coolDown    time.Duration
	logger      *logrus.Logger
	now         func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

func New(name string, maxFailures int, coolDown time.Duration, logger *logrus.Logger) *Breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Breaker{
		name:        name,
		maxFailures: maxFailures,
		coolDown:    coolDown,
		logger:      logger,
		now:         time.Now,
	}
}

// Execute runs fn unless the breaker is open. Context cancellation is not
// counted as a failure of the guarded dependency.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.acquire(); err != nil {
		return err
	}

	err := fn(ctx)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		b.release()
		return err
	}
	b.record(err)
	return err
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		elapsed := b.now().Sub(b.openedAt)
		if elapsed < b.coolDown {
			return &OpenError{Name: b.name, RetryAfter: b.coolDown - elapsed}
		}
		b.state = StateHalfOpen
		b.logger.WithFields(logrus.Fields{
			"circuit_breaker": b.name,
			"state":           StateHalfOpen.String(),
		}).Info("Circuit breaker probing")
		fallthrough
	case StateHalfOpen:
		if b.probing {
			return &OpenError{Name: b.name}
		}
		b.probing = true
	}
	return nil
}

// release gives back a trial slot without judging the dependency.
func (b *Breaker) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if err == nil {
		if b.state != StateClosed {
			b.logger.WithFields(logrus.Fields{
				"circuit_breaker": b.name,
				"state":           StateClosed.String(),
			}).Info("Circuit breaker closed after successful recovery")
		}
		b.state = StateClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		b.state = StateOpen
		b.openedAt = b.now()
		b.logger.WithFields(logrus.Fields{
			"circuit_breaker": b.name,
			"failures":        b.failures,
			"state":           StateOpen.String(),
		}).Warn("Circuit breaker opened due to failures")
	}
}

// State reports the current state. An open breaker whose cool-down has
// passed is reported as half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.coolDown {
		return StateHalfOpen
	}
	return b.state
}

// Stats is a point-in-time view of a breaker
type Stats struct {
	Name     string `json:"name"`
	State    string `json:"state"`
	Failures int    `json:"consecutive_failures"`
}

func (b *Breaker) Stats() Stats {
	state := b.State()

	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{Name: b.name, State: state.String(), Failures: b.failures}
}
