package resilience

import (
	"errors"
	"sync"
	"time"
)

// State is a circuit breaker state.
type State int

const (
	// StateClosed passes every call.
	StateClosed State = iota
	// StateOpen rejects calls with ErrCircuitOpen until the cooldown ends.
	StateOpen
	// StateHalfOpen passes a limited number of trial calls.
	StateHalfOpen
)

var stateNames = [...]string{StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// ErrCircuitOpen is returned without calling the backend while the breaker
// is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	Name string
	// MaxFailures consecutive failures open the circuit. Default 5.
	MaxFailures int
	// Cooldown is how long the circuit stays open. Default 30s.
	Cooldown time.Duration
	// TrialCalls is how many calls a half-open circuit admits; that many
	// successes close it. Default 1.
	TrialCalls int
	// IsFailure decides which errors count. Nil counts every error, so a
	// caller can exclude rejections that say nothing about backend health.
	IsFailure func(error) bool
	// OnStateChange runs under the breaker's lock; it must not call back in.
	OnStateChange func(name string, from, to State)
}

// DefaultCircuitBreakerConfig opens after 5 failures for 30s.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{Name: name, MaxFailures: 5, Cooldown: 30 * time.Second, TrialCalls: 1}
}

// CircuitBreaker fails fast once a backend keeps failing.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	openedAt  time.Time
	admitted  int
	succeeded int
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.TrialCalls <= 0 {
		cfg.TrialCalls = def.TrialCalls
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Execute calls fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.Allow(); err != nil {
		return err
	}
	err := fn()
	cb.Record(err)
	return err
}

// Allow admits one call or returns ErrCircuitOpen. An admitted call must be
// followed by Record.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.advance() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.admitted >= cb.cfg.TrialCalls {
			return ErrCircuitOpen
		}
		cb.admitted++
	}
	return nil
}

// Record reports the outcome of an admitted call.
func (cb *CircuitBreaker) Record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := err != nil && (cb.cfg.IsFailure == nil || cb.cfg.IsFailure(err))
	switch cb.advance() {
	case StateClosed:
		if !failed {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.cfg.MaxFailures {
			cb.open()
		}
	case StateHalfOpen:
		if failed {
			cb.open()
			return
		}
		cb.succeeded++
		if cb.succeeded >= cb.cfg.TrialCalls {
			cb.move(StateClosed)
		}
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.advance()
}

// Failures returns the consecutive failure count of a closed circuit.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.move(StateClosed)
}

// advance moves an open circuit to half-open once the cooldown has passed.
func (cb *CircuitBreaker) advance() State {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.Cooldown {
		cb.move(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) open() {
	cb.openedAt = cb.now()
	cb.move(StateOpen)
}

func (cb *CircuitBreaker) move(to State) {
	from := cb.state
	cb.state = to
	cb.admitted, cb.succeeded = 0, 0
	if to == StateClosed {
		cb.failures = 0
	}
	if from != to && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}
