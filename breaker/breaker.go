// Package breaker provides a circuit-breaker-backed ProtectedExecutor for
// restcall clients, built on sony/gobreaker. One breaker is kept per
// operation key, so operations trip and recover independently.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/vietddude/restcall"
)

// Config tunes the per-operation breakers. Zero values select the defaults.
type Config struct {
	// MaxRequests is the number of probe calls allowed while half-open.
	// Zero lets a single probe through.
	MaxRequests uint32

	// Interval is the closed-state counter reset window. Zero never resets;
	// tripping is based on consecutive failures, so this is rarely needed.
	Interval time.Duration

	// OpenTimeout is how long an open breaker refuses calls before moving
	// to half-open. Default 5s.
	OpenTimeout time.Duration

	// FailureThreshold is the number of consecutive failures that trips
	// the breaker. Default 5.
	FailureThreshold uint32

	// ExecutionTimeout bounds one protected execution. Default 2s.
	ExecutionTimeout time.Duration

	// Logger receives state-change logs. Nil selects slog.Default().
	Logger *slog.Logger
}

const (
	defaultOpenTimeout      = 5 * time.Second
	defaultFailureThreshold = 5
	defaultExecutionTimeout = 2 * time.Second
)

// Executor dispatches actions through per-operation circuit breakers and
// reports boundary refusals as restcall executor failures.
type Executor struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*restcall.Response]
}

// New builds an Executor with the given configuration.
func New(cfg Config) *Executor {
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = defaultOpenTimeout
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.ExecutionTimeout <= 0 {
		cfg.ExecutionTimeout = defaultExecutionTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		cfg:      cfg,
		logger:   logger,
		breakers: make(map[string]*gobreaker.CircuitBreaker[*restcall.Response]),
	}
}

// Execute runs the action under the operation's breaker with the configured
// execution deadline.
func (e *Executor) Execute(ctx context.Context, group, operation string, action restcall.Action) (*restcall.Response, error) {
	cb := e.breakerFor(operation)

	execCtx, cancel := context.WithTimeout(ctx, e.cfg.ExecutionTimeout)
	defer cancel()

	resp, err := cb.Execute(func() (*restcall.Response, error) {
		return action(execCtx)
	})
	if err != nil {
		return nil, e.mapError(operation, err)
	}
	return resp, nil
}

func (e *Executor) breakerFor(operation string) *gobreaker.CircuitBreaker[*restcall.Response] {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cb, ok := e.breakers[operation]; ok {
		return cb
	}

	threshold := e.cfg.FailureThreshold
	cb := gobreaker.NewCircuitBreaker[*restcall.Response](gobreaker.Settings{
		Name:        operation,
		MaxRequests: e.cfg.MaxRequests,
		Interval:    e.cfg.Interval,
		Timeout:     e.cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Caller-input rejections never count against the endpoint.
			var bad *restcall.BadInputError
			return errors.As(err, &bad)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn("breaker state change",
				"operation", name, "from", from.String(), "to", to.String())
		},
	})
	e.breakers[operation] = cb
	return cb
}

// mapError converts a breaker outcome into the executor failure vocabulary.
func (e *Executor) mapError(operation string, err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		return &restcall.ExecutorError{Kind: restcall.FailureShortCircuit, Operation: operation, Cause: err}
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return &restcall.ExecutorError{Kind: restcall.FailureRejectedSemaphoreExecution, Operation: operation, Cause: err}
	}

	var bad *restcall.BadInputError
	if errors.As(err, &bad) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &restcall.ExecutorError{Kind: restcall.FailureTimeout, Operation: operation, Cause: err}
	}
	return &restcall.ExecutorError{Kind: restcall.FailureCommand, Operation: operation, Cause: err}
}
