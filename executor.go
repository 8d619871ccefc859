package restcall

import (
	"context"
	"fmt"
)

// FailureKind enumerates the ways a protected executor can refuse or fail to
// complete a dispatched call, distinct from HTTP-level failures.
type FailureKind int

const (
	FailureUnknown                    FailureKind = iota // unclassified executor failure
	FailureTimeout                                       // execution exceeded its deadline
	FailureShortCircuit                                  // breaker open, call refused without dispatch
	FailureRejectedThread                                // worker pool exhausted
	FailureRejectedSemaphoreFallback                     // fallback concurrency exhausted
	FailureRejectedSemaphoreExecution                    // execution concurrency exhausted
	FailureCommand                                       // the dispatched action itself failed
)

func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureShortCircuit:
		return "short_circuit"
	case FailureRejectedThread:
		return "rejected_thread"
	case FailureRejectedSemaphoreFallback:
		return "rejected_semaphore_fallback"
	case FailureRejectedSemaphoreExecution:
		return "rejected_semaphore_execution"
	case FailureCommand:
		return "command_failure"
	default:
		return "unknown"
	}
}

// Action is the unit of work a client hands to the protected executor: one
// transport exchange converted into a Response.
type Action func(ctx context.Context) (*Response, error)

// ProtectedExecutor is the isolation boundary every call is dispatched
// through. Implementations run the action, enforce their own timeouts and
// concurrency limits, and report boundary refusals as *ExecutorError values
// carrying a FailureKind. Caller-input rejections are reported as
// *BadInputError and must not count against the endpoint's health.
type ProtectedExecutor interface {
	Execute(ctx context.Context, group, operation string, action Action) (*Response, error)
}

// ExecutorError is a boundary failure reported by a ProtectedExecutor.
type ExecutorError struct {
	Kind      FailureKind
	Operation string
	Cause     error
}

func (e *ExecutorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("executor %s failure for %s: %v", e.Kind, e.Operation, e.Cause)
	}
	return fmt.Sprintf("executor %s failure for %s", e.Kind, e.Operation)
}

func (e *ExecutorError) Unwrap() error { return e.Cause }

// BadInputError signals that the executor rejected the call because the
// caller's input was invalid. It maps to a ClientSideError and is never
// treated as an endpoint failure.
type BadInputError struct {
	Message string
	Cause   error
}

func (e *BadInputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("bad input: %s: %v", e.Message, e.Cause)
	}
	return "bad input: " + e.Message
}

func (e *BadInputError) Unwrap() error { return e.Cause }

// DirectExecutor runs actions on the calling goroutine with no isolation.
// It is the default executor when none is configured.
type DirectExecutor struct{}

func (DirectExecutor) Execute(ctx context.Context, group, operation string, action Action) (*Response, error) {
	return action(ctx)
}
