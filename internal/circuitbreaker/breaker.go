package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling through while the endpoint is
// considered down.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

const (
	defaultTripAfter  = 5
	defaultCloseAfter = 2
	defaultCooldown   = 30 * time.Second
)

// Config tunes a Breaker; zero fields take the defaults above.
type Config struct {
	// TripAfter consecutive failures open the circuit.
	TripAfter int
	// CloseAfter consecutive successful probes close it again.
	CloseAfter int
	// Cooldown is how long the circuit stays open before probing.
	Cooldown time.Duration
	// IsFailure decides which errors count against the endpoint. Nil counts
	// every non-nil error.
	IsFailure func(error) bool
	// OnStateChange runs under the breaker's lock and must not call back
	// into it.
	OnStateChange func(from, to State)
}

// Breaker sheds calls to an endpoint that keeps failing. In half-open only
// one probe is in flight at a time; concurrent callers get ErrCircuitOpen.
type Breaker struct {
	cfg Config
	now func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	probing   bool
	openUntil time.Time
}

func New(cfg Config) *Breaker {
	if cfg.TripAfter <= 0 {
		cfg.TripAfter = defaultTripAfter
	}
	if cfg.CloseAfter <= 0 {
		cfg.CloseAfter = defaultCloseAfter
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Do calls fn if the circuit admits it and feeds the result back. The error
// from fn is returned unchanged.
func (b *Breaker) Do(fn func() error) error {
	probe, err := b.admit()
	if err != nil {
		return err
	}
	err = fn()
	b.settle(probe, b.cfg.IsFailure(err))
	return err
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cooledLocked()
	return b.state
}

func (b *Breaker) admit() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cooledLocked()
	switch b.state {
	case StateOpen:
		return false, ErrCircuitOpen
	case StateHalfOpen:
		if b.probing {
			return false, ErrCircuitOpen
		}
		b.probing = true
		return true, nil
	}
	return false, nil
}

func (b *Breaker) settle(probe, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if probe {
		b.probing = false
	}

	if failed {
		b.successes = 0
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.cfg.TripAfter {
			b.openUntil = b.now().Add(b.cfg.Cooldown)
			b.moveLocked(StateOpen)
		}
		return
	}

	b.failures = 0
	if b.state == StateHalfOpen {
		b.successes++
		if b.successes >= b.cfg.CloseAfter {
			b.moveLocked(StateClosed)
		}
	}
}

func (b *Breaker) cooledLocked() {
	if b.state == StateOpen && !b.now().Before(b.openUntil) {
		b.moveLocked(StateHalfOpen)
	}
}

func (b *Breaker) moveLocked(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.successes = 0
	if to == StateClosed {
		b.failures = 0
	}
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}
