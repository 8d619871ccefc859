package restcall

import (
	"errors"
	"fmt"
)

// Scenario identifies the condition that produced a failure. The values are
// stable tokens intended for log searching and for carrying through
// structured log fields.
type Scenario string

const (
	ScenarioBreakerTimeout    Scenario = "CB_TIMED_OUT"
	ScenarioShortCircuited    Scenario = "CB_SHORT_CIRCUITED"
	ScenarioRejectedThread    Scenario = "CB_REJECTED_THREAD_EXECUTION"
	ScenarioRejectedFallback  Scenario = "CB_REJECTED_SEMAPHORE_FALLBACK"
	ScenarioRejectedExecution Scenario = "CB_REJECTED_SEMAPHORE_EXECUTION"
	ScenarioBadRequest        Scenario = "CB_BAD_REQUEST"
	ScenarioUnknownFailure    Scenario = "CB_UNKNOWN_ERROR"
	ScenarioNullResponse      Scenario = "NULL_HTTP_RESPONSE"
	ScenarioReadFailed        Scenario = "RESPONSE_READ_FAILED"
	ScenarioNullPayload       Scenario = "NULL_REQUEST_PAYLOAD"
	ScenarioEmptyPayload      Scenario = "EMPTY_REQUEST_PAYLOAD"
	ScenarioURICreation       Scenario = "URI_CREATION_FAILED"
	ScenarioResponseFailure   Scenario = "RESPONSE_FAILURE"
	ScenarioConflict          Scenario = "CONFLICT_HTTP_RESPONSE"
	ScenarioEmptyQueryParams  Scenario = "EMPTY_QUERY_PARAMETERS"
	ScenarioInvalidClient     Scenario = "INVALID_CLIENT_CONFIGURATION"
)

// failure is the shared core of every taxonomy error. The typed wrappers
// embed it so callers can match with errors.As while the formatting and
// unwrapping behavior stays in one place.
type failure struct {
	scenario Scenario
	message  string
	status   int
	kind     FailureKind
	cause    error
}

func (f failure) error() string {
	msg := string(f.scenario)
	if f.message != "" {
		msg = fmt.Sprintf("%s: %s", f.scenario, f.message)
	}
	if f.status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, f.status)
	}
	if f.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, f.cause)
	}
	return msg
}

// Scenario returns the condition token carried by the failure.
func (f failure) Scenario() Scenario { return f.scenario }

// Message returns the failure message, which for body-bearing HTTP failures
// is the raw response body.
func (f failure) Message() string { return f.message }

// StatusCode returns the HTTP status that produced the failure, or zero when
// no HTTP exchange completed.
func (f failure) StatusCode() int { return f.status }

// Kind returns the executor FailureKind behind the failure, or
// FailureUnknown when the failure did not originate at the executor boundary.
func (f failure) Kind() FailureKind { return f.kind }

func (f failure) Unwrap() error { return f.cause }

// ProtocolError reports a malformed call: a nil POST/PUT payload or an
// unbuildable request.
type ProtocolError struct{ failure }

func (e *ProtocolError) Error() string { return e.error() }

// NewProtocolError builds a ProtocolError for the given scenario.
func NewProtocolError(scenario Scenario, message string, cause ...error) *ProtocolError {
	return &ProtocolError{failure{scenario: scenario, message: message, cause: errors.Join(cause...)}}
}

// ReadError reports that the transport returned nothing at all, or that the
// response body could not be read.
type ReadError struct{ failure }

func (e *ReadError) Error() string { return e.error() }

// NewReadError builds a ReadError for the given scenario.
func NewReadError(scenario Scenario, message string, cause ...error) *ReadError {
	return &ReadError{failure{scenario: scenario, message: message, cause: errors.Join(cause...)}}
}

// ClientSideError reports that the caller or the request is at fault:
// HTTP 400, the generic 401-499 range, a bad URI, or a caller-input
// rejection signaled by the executor.
type ClientSideError struct{ failure }

func (e *ClientSideError) Error() string { return e.error() }

// NewClientSideError builds a ClientSideError. For HTTP 400 the message is
// the raw response body; status is zero for non-HTTP client failures.
func NewClientSideError(scenario Scenario, status int, message string, cause ...error) *ClientSideError {
	return &ClientSideError{failure{scenario: scenario, message: message, status: status, cause: errors.Join(cause...)}}
}

// ServerSideError reports a remote or infrastructure fault: HTTP 5xx, an
// unknown executor failure, or an execution-concurrency rejection.
type ServerSideError struct{ failure }

func (e *ServerSideError) Error() string { return e.error() }

// NewServerSideError builds a ServerSideError.
func NewServerSideError(scenario Scenario, status int, message string, cause ...error) *ServerSideError {
	return &ServerSideError{failure{scenario: scenario, message: message, status: status, cause: errors.Join(cause...)}}
}

// ConflictError reports HTTP 409: the resource state conflicts with the
// request. Kept distinct from ClientSideError because callers typically
// recover differently (refetch and retry rather than abort).
type ConflictError struct{ failure }

func (e *ConflictError) Error() string { return e.error() }

// NewConflictError builds a ConflictError carrying the raw response body.
func NewConflictError(message string) *ConflictError {
	return &ConflictError{failure{scenario: ScenarioConflict, message: message, status: 409}}
}

// ConnectionError reports an executor-enforced timeout.
type ConnectionError struct{ failure }

func (e *ConnectionError) Error() string { return e.error() }

// NewConnectionError builds a ConnectionError for an executor timeout.
func NewConnectionError(cause ...error) *ConnectionError {
	return &ConnectionError{failure{scenario: ScenarioBreakerTimeout, kind: FailureTimeout, cause: errors.Join(cause...)}}
}

// EndpointError reports that the endpoint or its isolation boundary is
// unhealthy: the breaker is open, the worker pool or fallback is exhausted,
// or the dispatched command itself failed.
type EndpointError struct{ failure }

func (e *EndpointError) Error() string { return e.error() }

// NewEndpointError builds an EndpointError for the given scenario and kind.
func NewEndpointError(scenario Scenario, kind FailureKind, cause ...error) *EndpointError {
	return &EndpointError{failure{scenario: scenario, kind: kind, cause: errors.Join(cause...)}}
}

// ConstructionError reports an input-validation failure in helper
// construction, such as an empty query-parameter set or a misconfigured
// client.
type ConstructionError struct{ failure }

func (e *ConstructionError) Error() string { return e.error() }

// NewConstructionError builds a ConstructionError.
func NewConstructionError(scenario Scenario, message string) *ConstructionError {
	return &ConstructionError{failure{scenario: scenario, message: message}}
}

// IsTransient reports whether the failure is worth retrying by a caller:
// executor timeouts, unhealthy-endpoint failures and server-side faults.
// Client-side, protocol, read, conflict and construction failures are not
// transient.
func IsTransient(err error) bool {
	var (
		conn     *ConnectionError
		endpoint *EndpointError
		server   *ServerSideError
	)
	return errors.As(err, &conn) || errors.As(err, &endpoint) || errors.As(err, &server)
}
