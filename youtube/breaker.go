package youtube

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling the API while the breaker is
// open.
var ErrCircuitOpen = errors.New("youtube: circuit breaker is open")

// BreakerState represents the state of a circuit breaker.
type BreakerState int

const (
	// BreakerClosed lets every call through.
	BreakerClosed BreakerState = iota
	// BreakerOpen fails calls fast.
	BreakerOpen
	// BreakerHalfOpen lets a single probe call through.
	BreakerHalfOpen
)

// String returns the string representation of a breaker state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// DefaultBreakerCooldown is how long an open breaker waits before probing.
const DefaultBreakerCooldown = 30 * time.Second

// BreakerConfig configures the breaker in front of the Data API.
type BreakerConfig struct {
	// Threshold is the number of consecutive remote faults that opens the
	// breaker. Zero disables it.
	Threshold int
	// Cooldown is how long the breaker stays open before a probe call.
	Cooldown time.Duration
}

// breaker stops a run from spending its remaining calls against an API that
// keeps failing, for example after the daily quota ran out. Not-found results
// and canceled contexts are not faults.
type breaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu          sync.Mutex
	state       BreakerState
	consecutive int
	openedAt    time.Time
	probing     bool
}

// newBreaker returns nil when cfg disables the breaker. A nil breaker allows
// everything.
func newBreaker(cfg BreakerConfig) *breaker {
	if cfg.Threshold <= 0 {
		return nil
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultBreakerCooldown
	}
	return &breaker{cfg: cfg, now: time.Now}
}

// Allow returns ErrCircuitOpen when the call must not be made.
func (b *breaker) Allow() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return ErrCircuitOpen
		}
		b.state = BreakerHalfOpen
		b.probing = true
		return nil
	case BreakerHalfOpen:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

// Record updates the breaker with the outcome of an allowed call.
func (b *breaker) Record(err error) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if !isBreakerFault(err) {
		b.state = BreakerClosed
		b.consecutive = 0
		return
	}
	b.consecutive++
	if b.state == BreakerHalfOpen || b.consecutive >= b.cfg.Threshold {
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
}

// State returns the current breaker state.
func (b *breaker) State() BreakerState {
	if b == nil {
		return BreakerClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		return BreakerHalfOpen
	}
	return b.state
}

func isBreakerFault(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrChannelNotFound), errors.Is(err, ErrVideoNotFound):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
