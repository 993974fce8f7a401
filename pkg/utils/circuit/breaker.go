package circuit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateHalfOpen:
		return "HALF_OPEN"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

type Config struct {
	MaxFailures   int                               // consecutive failures before opening
	Timeout       time.Duration                     // how long the breaker stays open
	MaxRequests   int                               // trial calls allowed while half-open
	OnStateChange func(name string, from, to State) // optional
}

func DefaultConfig() Config {
	return Config{
		MaxFailures: 5,
		Timeout:     30 * time.Second,
		MaxRequests: 1,
	}
}

var (
	ErrOpen            = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests while half-open")
)

// Breaker stops calling a failing dependency for a cool-down period.
// Context cancellation by the caller is not counted as a failure.
type Breaker struct {
	name            string
	config          Config
	state           State
	failures        int
	requests        int
	lastFailureTime time.Time
	now             func() time.Time
	mutex           sync.Mutex
	log             *logger.Logger
}

func NewBreaker(name string, config Config) *Breaker {
	defaults := DefaultConfig()
	if config.MaxFailures <= 0 {
		config.MaxFailures = defaults.MaxFailures
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = defaults.MaxRequests
	}

	return &Breaker{
		name:   name,
		config: config,
		state:  StateClosed,
		now:    time.Now,
		log:    logger.GetLogger(fmt.Sprintf("circuit.%s", name)),
	}
}

// Execute runs fn unless the breaker is open
func (cb *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := fn(ctx)
	if err != nil && ctx.Err() != nil {
		cb.release()
		return err
	}
	cb.afterRequest(err == nil)
	return err
}

func (cb *Breaker) beforeRequest() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) < cb.config.Timeout {
			return ErrOpen
		}
		cb.setState(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if cb.requests >= cb.config.MaxRequests {
			return ErrTooManyRequests
		}
		cb.requests++
		return nil
	default:
		return ErrOpen
	}
}

// release gives back a half-open slot without judging the dependency
func (cb *Breaker) release() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	if cb.state == StateHalfOpen && cb.requests > 0 {
		cb.requests--
	}
}

func (cb *Breaker) afterRequest(success bool) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if success {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.setState(StateClosed)
		}
		return
	}

	cb.failures++
	cb.lastFailureTime = cb.now()
	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.MaxFailures {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		cb.setState(StateOpen)
	}
}

func (cb *Breaker) setState(to State) {
	from := cb.state
	cb.state = to
	cb.requests = 0
	if to == StateClosed {
		cb.failures = 0
	}

	if to == StateOpen {
		cb.log.Warnf("Circuit breaker '%s' transitioned from %s to %s", cb.name, from, to)
	} else {
		cb.log.Infof("Circuit breaker '%s' transitioned from %s to %s", cb.name, from, to)
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.name, from, to)
	}
}

func (cb *Breaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

func (cb *Breaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.setState(StateClosed)
}

func (cb *Breaker) Name() string {
	return cb.name
}
