package restcall

import (
	"context"
	"errors"
)

// typedFailure matches any error from the taxonomy in errors.go.
type typedFailure interface {
	error
	Scenario() Scenario
}

// typedFailureIn returns the first taxonomy error in err's chain, or nil.
func typedFailureIn(err error) error {
	var tf typedFailure
	if errors.As(err, &tf) {
		return tf
	}
	return nil
}

// classifyStatus maps a dispatched response to a TypedFailure, or nil when
// the response is a valid outcome. Rules are evaluated in order, first match
// wins. A nil response always fails: the transport returned nothing at all.
func classifyStatus(resp *Response) error {
	if resp == nil {
		return NewReadError(ScenarioNullResponse, "transport returned no response")
	}

	status := resp.StatusCode
	body := string(resp.Body)
	switch {
	case status == 400:
		// The body is treated as a pre-formatted client error payload.
		return NewClientSideError(ScenarioBadRequest, status, body)
	case status == 409:
		return NewConflictError(body)
	case status >= 401 && status < 500:
		return NewClientSideError(ScenarioResponseFailure, status, body)
	case status >= 500 && status < 600:
		return NewServerSideError(ScenarioResponseFailure, status, body)
	default:
		return nil
	}
}

// classifyDispatch maps an executor-level failure to a TypedFailure. Taxonomy
// errors produced inside the action (a ReadError from an unreadable body, for
// instance) pass through unchanged, including when an executor has wrapped
// them as a command failure.
func classifyDispatch(err error) error {
	var bad *BadInputError
	if errors.As(err, &bad) {
		return NewClientSideError(ScenarioBadRequest, 0, bad.Message, err)
	}

	var execErr *ExecutorError
	if errors.As(err, &execErr) {
		switch execErr.Kind {
		case FailureTimeout:
			return NewConnectionError(err)
		case FailureShortCircuit:
			return NewEndpointError(ScenarioShortCircuited, FailureShortCircuit, err)
		case FailureRejectedThread:
			return NewEndpointError(ScenarioRejectedThread, FailureRejectedThread, err)
		case FailureRejectedSemaphoreFallback:
			return NewEndpointError(ScenarioRejectedFallback, FailureRejectedSemaphoreFallback, err)
		case FailureRejectedSemaphoreExecution:
			return &ServerSideError{failure{
				scenario: ScenarioRejectedExecution,
				kind:     FailureRejectedSemaphoreExecution,
				cause:    err,
			}}
		case FailureCommand:
			if typed := typedFailureIn(execErr.Cause); typed != nil {
				return typed
			}
			return NewEndpointError(ScenarioBadRequest, FailureCommand, err)
		default:
			return &ServerSideError{failure{
				scenario: ScenarioUnknownFailure,
				kind:     FailureUnknown,
				cause:    err,
			}}
		}
	}

	if typed := typedFailureIn(err); typed != nil {
		return typed
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewConnectionError(err)
	}

	return &ServerSideError{failure{scenario: ScenarioUnknownFailure, kind: FailureUnknown, cause: err}}
}
