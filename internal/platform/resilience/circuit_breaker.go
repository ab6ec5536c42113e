package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Allow while the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// CircuitBreaker shields a flaky upstream behind a three-state gate: closed
// passes everything, open rejects everything until openTimeout elapses, and
// half-open lets a bounded number of probes through to test recovery.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	openTimeout      time.Duration
	halfOpenMaxReq   int

	state          CircuitState
	failures       int
	openedAt       time.Time
	probesInFlight int
	probeSuccesses int
	now            func() time.Time
}

func NewCircuitBreaker(failureThreshold int, openTimeout time.Duration, halfOpenMaxReq int) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	if openTimeout <= 0 {
		openTimeout = 15 * time.Second
	}
	if halfOpenMaxReq < 1 {
		halfOpenMaxReq = 1
	}

	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		openTimeout:      openTimeout,
		halfOpenMaxReq:   halfOpenMaxReq,
		state:            CircuitStateClosed,
		now:              time.Now,
	}
}

// Allow reports whether a call may proceed, reserving a probe slot when the
// breaker is half-open.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen {
		if b.now().Sub(b.openedAt) < b.openTimeout {
			return ErrCircuitOpen
		}
		b.beginProbing()
	}

	if b.state == CircuitStateHalfOpen {
		if b.probesInFlight >= b.halfOpenMaxReq {
			return ErrCircuitOpen
		}
		b.probesInFlight++
	}

	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failures = 0
	case CircuitStateHalfOpen:
		if b.probesInFlight > 0 {
			b.probesInFlight--
		}
		b.probeSuccesses++
		if b.probeSuccesses >= b.halfOpenMaxReq && b.probesInFlight == 0 {
			b.reset()
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.trip()
		}
	case CircuitStateHalfOpen:
		if b.probesInFlight > 0 {
			b.probesInFlight--
		}
		b.trip()
	case CircuitStateOpen:
		b.openedAt = b.now()
	}
}

// State returns the effective state, reporting half-open once an open
// breaker's timeout has elapsed even if no call has observed it yet.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.now().Sub(b.openedAt) >= b.openTimeout {
		return CircuitStateHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) reset() {
	b.state = CircuitStateClosed
	b.failures = 0
	b.probesInFlight = 0
	b.probeSuccesses = 0
	b.openedAt = time.Time{}
}

func (b *CircuitBreaker) trip() {
	b.state = CircuitStateOpen
	b.openedAt = b.now()
	b.probesInFlight = 0
	b.probeSuccesses = 0
}

func (b *CircuitBreaker) beginProbing() {
	b.state = CircuitStateHalfOpen
	b.probesInFlight = 0
	b.probeSuccesses = 0
}
