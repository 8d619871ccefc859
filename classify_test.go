package restcall

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioOf(t *testing.T, err error) Scenario {
	t.Helper()
	var tf typedFailure
	require.True(t, errors.As(err, &tf), "expected a taxonomy error, got %T", err)
	return tf.Scenario()
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantNil      bool
		wantType     any
		wantScenario Scenario
	}{
		{name: "200 ok", status: 200, wantNil: true},
		{name: "201 created", status: 201, wantNil: true},
		{name: "204 no content", status: 204, wantNil: true},
		{name: "302 redirect", status: 302, wantNil: true},
		{name: "400 bad request", status: 400, body: "missing field", wantType: &ClientSideError{}, wantScenario: ScenarioBadRequest},
		{name: "401 unauthorized", status: 401, wantType: &ClientSideError{}, wantScenario: ScenarioResponseFailure},
		{name: "404 not found", status: 404, wantType: &ClientSideError{}, wantScenario: ScenarioResponseFailure},
		{name: "409 conflict", status: 409, body: "stale version", wantType: &ConflictError{}, wantScenario: ScenarioConflict},
		{name: "499 client edge", status: 499, wantType: &ClientSideError{}, wantScenario: ScenarioResponseFailure},
		{name: "500 server error", status: 500, wantType: &ServerSideError{}, wantScenario: ScenarioResponseFailure},
		{name: "503 unavailable", status: 503, wantType: &ServerSideError{}, wantScenario: ScenarioResponseFailure},
		{name: "599 server edge", status: 599, wantType: &ServerSideError{}, wantScenario: ScenarioResponseFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyStatus(&Response{StatusCode: tt.status, Body: []byte(tt.body)})
			if tt.wantNil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)

			switch tt.wantType.(type) {
			case *ClientSideError:
				var target *ClientSideError
				require.True(t, errors.As(err, &target))
				assert.Equal(t, tt.status, target.StatusCode())
			case *ConflictError:
				var target *ConflictError
				require.True(t, errors.As(err, &target))
				assert.Equal(t, tt.body, target.Message(), "conflict must carry the raw body")
			case *ServerSideError:
				var target *ServerSideError
				require.True(t, errors.As(err, &target))
				assert.Equal(t, tt.status, target.StatusCode())
			}
			assert.Equal(t, tt.wantScenario, scenarioOf(t, err))
		})
	}
}

func TestClassifyStatus_BadRequestCarriesBody(t *testing.T) {
	err := classifyStatus(&Response{StatusCode: 400, Body: []byte(`{"error":"bad id"}`)})

	var target *ClientSideError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, `{"error":"bad id"}`, target.Message())
}

func TestClassifyStatus_NilResponse(t *testing.T) {
	err := classifyStatus(nil)

	var target *ReadError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, ScenarioNullResponse, target.Scenario())
}

func TestClassifyDispatch_ExecutorKinds(t *testing.T) {
	tests := []struct {
		name         string
		kind         FailureKind
		wantType     any
		wantScenario Scenario
	}{
		{"timeout", FailureTimeout, &ConnectionError{}, ScenarioBreakerTimeout},
		{"short circuit", FailureShortCircuit, &EndpointError{}, ScenarioShortCircuited},
		{"rejected thread", FailureRejectedThread, &EndpointError{}, ScenarioRejectedThread},
		{"rejected fallback", FailureRejectedSemaphoreFallback, &EndpointError{}, ScenarioRejectedFallback},
		{"rejected execution", FailureRejectedSemaphoreExecution, &ServerSideError{}, ScenarioRejectedExecution},
		{"unknown kind", FailureUnknown, &ServerSideError{}, ScenarioUnknownFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &ExecutorError{Kind: tt.kind, Operation: "op"}
			err := classifyDispatch(src)
			require.Error(t, err)

			switch tt.wantType.(type) {
			case *ConnectionError:
				var target *ConnectionError
				assert.True(t, errors.As(err, &target))
			case *EndpointError:
				var target *EndpointError
				require.True(t, errors.As(err, &target))
				assert.Equal(t, tt.kind, target.Kind())
			case *ServerSideError:
				var target *ServerSideError
				assert.True(t, errors.As(err, &target))
			}
			assert.Equal(t, tt.wantScenario, scenarioOf(t, err))
			assert.True(t, errors.Is(err, src), "original executor error must stay in the chain")
		})
	}
}

func TestClassifyDispatch_BadInput(t *testing.T) {
	err := classifyDispatch(&BadInputError{Message: "negative quantity"})

	var target *ClientSideError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, ScenarioBadRequest, target.Scenario())
	assert.Equal(t, "negative quantity", target.Message())
}

func TestClassifyDispatch_CommandUnwrapsTypedFailure(t *testing.T) {
	inner := NewReadError(ScenarioReadFailed, "short read")
	err := classifyDispatch(&ExecutorError{Kind: FailureCommand, Operation: "op", Cause: inner})

	var target *ReadError
	require.True(t, errors.As(err, &target))
	assert.Same(t, inner, target, "the inner taxonomy error must pass through unchanged")
}

func TestClassifyDispatch_CommandOpaqueCause(t *testing.T) {
	err := classifyDispatch(&ExecutorError{Kind: FailureCommand, Operation: "op", Cause: errors.New("tls handshake failed")})

	var target *EndpointError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, ScenarioBadRequest, target.Scenario())
	assert.Equal(t, FailureCommand, target.Kind())
}

func TestClassifyDispatch_TypedErrorPassesThrough(t *testing.T) {
	inner := NewConflictError("edit conflict")
	err := classifyDispatch(inner)

	var target *ConflictError
	require.True(t, errors.As(err, &target))
	assert.Same(t, inner, target)
}

func TestClassifyDispatch_DeadlineExceeded(t *testing.T) {
	err := classifyDispatch(fmt.Errorf("request to host failed: %w", context.DeadlineExceeded))

	var target *ConnectionError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, ScenarioBreakerTimeout, target.Scenario())
}

func TestClassifyDispatch_OpaqueError(t *testing.T) {
	err := classifyDispatch(errors.New("something odd"))

	var target *ServerSideError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, ScenarioUnknownFailure, target.Scenario())
}
