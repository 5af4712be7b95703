// Package circuit implements the circuit breaker protecting the egress
// producer: consecutive publish failures open the circuit, a timeout
// later a limited number of probes may half-open it, and enough probe
// successes close it again.
package circuit

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"streamteam/internal/metrics"
)

// State of the breaker.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes the breaker.
type BreakerConfig struct {
	Name             string        `yaml:"name"`
	FailureThreshold int           `yaml:"failureThreshold"` // consecutive failures to open
	SuccessThreshold int           `yaml:"successThreshold"` // probe successes to close
	Timeout          time.Duration `yaml:"timeout"`          // time spent open before probing
	HalfOpenMaxCalls int           `yaml:"halfOpenMaxCalls"`
}

// Breaker guards a fallible operation.
type Breaker struct {
	config BreakerConfig
	logger *logrus.Logger

	mu            sync.Mutex
	state         State
	failures      int
	nextRetryTime time.Time

	halfOpenCalls     int
	halfOpenSuccesses int
}

// NewBreaker builds a breaker with sane defaults for zero fields.
func NewBreaker(config BreakerConfig, logger *logrus.Logger) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 10
	}
	return &Breaker{config: config, logger: logger, state: StateClosed}
}

// Execute runs fn under the breaker. The lock is released while fn runs
// so callers may execute in parallel; state is settled before and after.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	if b.state == StateOpen {
		if time.Now().Before(b.nextRetryTime) {
			b.mu.Unlock()
			return fmt.Errorf("circuit breaker %s is open", b.config.Name)
		}
		b.setState(StateHalfOpen)
		b.halfOpenCalls = 0
		b.halfOpenSuccesses = 0
	}
	if b.state == StateHalfOpen {
		if b.halfOpenCalls >= b.config.HalfOpenMaxCalls {
			b.mu.Unlock()
			return fmt.Errorf("circuit breaker %s is half-open (max probes reached)", b.config.Name)
		}
		b.halfOpenCalls++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.config.FailureThreshold {
			b.trip()
		}
		return err
	}
	b.failures = 0
	if b.state == StateHalfOpen {
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.config.SuccessThreshold {
			b.setState(StateClosed)
		}
	}
	return nil
}

// GetState returns the current state.
func (b *Breaker) GetState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) trip() {
	b.setState(StateOpen)
	b.nextRetryTime = time.Now().Add(b.config.Timeout)
	b.failures = 0
}

func (b *Breaker) setState(next State) {
	if b.state == next {
		return
	}
	if b.logger != nil {
		b.logger.WithFields(logrus.Fields{
			"breaker": b.config.Name,
			"from":    b.state.String(),
			"to":      next.String(),
		}).Info("circuit breaker state change")
	}
	b.state = next
	metrics.CircuitBreakerState.WithLabelValues(b.config.Name).Set(float64(next))
}
