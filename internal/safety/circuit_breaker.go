package safety

import (
	"sync"
	"time"
)

// Breaker states.
const (
	StateClosed = "closed"
	StateOpen   = "open"
	StateHalf   = "half-open"
)

// OpenError is returned while a breaker is open. It is not retryable:
// backing off inside the cooldown cannot help.
type OpenError struct {
	Name string
}

func (e *OpenError) Error() string   { return "circuit breaker " + e.Name + " is open" }
func (e *OpenError) Retryable() bool { return false }

// CircuitBreakerConfig tunes a breaker.
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // successes in half-open before closing
	Cooldown         time.Duration // open duration before a probe is allowed
}

// AccountBreakerConfig is the schedule for signed account endpoints:
// a short run of transport failures stops the trader from hammering
// the venue while it is down.
func AccountBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
	}
}

// CircuitBreaker blocks calls after a run of consecutive failures and
// lets a probe through once the cooldown expires.
type CircuitBreaker struct {
	name string
	cfg  CircuitBreakerConfig

	mu        sync.Mutex
	state     string
	failures  int
	successes int
	retryAt   time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &CircuitBreaker{name: name, cfg: cfg, state: StateClosed}
}

// Call runs fn unless the breaker is open. Non-retryable errors pass
// through without counting as failures: a venue rejection is the
// caller's problem, not a venue outage.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.allow() {
		return &OpenError{Name: cb.name}
	}

	err := fn()
	if err == nil {
		cb.recordSuccess()
		return nil
	}
	if r, ok := err.(Retryable); ok && !r.Retryable() {
		return err
	}
	cb.recordFailure()
	return err
}

// State returns the current state name for logs and status output.
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Now().Before(cb.retryAt) {
			return false
		}
		cb.state = StateHalf
		cb.successes = 0
	}
	return true
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state == StateHalf {
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.state = StateClosed
			cb.successes = 0
		}
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if cb.state == StateHalf || cb.failures >= cb.cfg.FailureThreshold {
		cb.state = StateOpen
		cb.failures = 0
		cb.retryAt = time.Now().Add(cb.cfg.Cooldown)
	}
}
