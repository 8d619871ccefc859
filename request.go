package restcall

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// DefaultContentType is attached to POST and PUT payloads when the call does
// not name one.
const DefaultContentType = "text/plain"

// Request is a fully assembled transport request: resolved URI, headers,
// payload and the per-call Settings the transport must honor. The unexported
// fields track in-flight transport state so a request can be aborted and its
// connection released exactly once.
type Request struct {
	Method      string
	URL         *url.URL
	Header      http.Header
	Body        []byte
	ContentType string
	Settings    Settings

	// Operation is the prefixed operation key, carried for logging and
	// metrics. ID is the per-call correlation id.
	Operation string
	ID        string

	// mu guards cancel and raw so Abort and Release are safe to call from
	// a goroutine other than the one running Execute.
	mu      sync.Mutex
	cancel  context.CancelFunc
	raw     io.ReadCloser
	release sync.Once
}

// buildRequest assembles a transport request from a resource call. Order
// matters: URI first, then headers, then payload, then settings. Failures
// here never reach the executor boundary.
func buildRequest(endpoint string, call ResourceCall, settings Settings, logger *slog.Logger) (*Request, error) {
	if !strings.HasPrefix(call.ResourcePath, "/") {
		return nil, NewClientSideError(ScenarioURICreation, 0,
			fmt.Sprintf("resource path %q must start with /", call.ResourcePath))
	}

	full := endpoint + call.ResourcePath
	if len(call.QueryParams) > 0 {
		qs, err := EncodeQuery(call.QueryParams)
		if err != nil {
			return nil, NewClientSideError(ScenarioURICreation, 0, full, err)
		}
		full += qs
	}

	u, err := url.Parse(full)
	if err != nil {
		return nil, NewClientSideError(ScenarioURICreation, 0, full, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, NewClientSideError(ScenarioURICreation, 0,
			fmt.Sprintf("%s is not an absolute URL", full))
	}

	header := make(http.Header, len(call.Headers))
	for name, value := range call.Headers {
		header.Set(name, value)
	}

	req := &Request{
		Method:   call.Method,
		URL:      u,
		Header:   header,
		Settings: settings,
	}

	if call.Method == MethodPost || call.Method == MethodPut {
		if call.Body == nil {
			return nil, NewProtocolError(ScenarioNullPayload,
				fmt.Sprintf("%s %s requires a request payload", call.Method, call.Operation))
		}
		if len(call.Body) == 0 {
			logger.Warn("empty request payload",
				"scenario", string(ScenarioEmptyPayload),
				"method", call.Method,
				"operation", call.Operation)
		}
		req.Body = call.Body
		req.ContentType = call.ContentType
		if req.ContentType == "" {
			req.ContentType = DefaultContentType
		}
	}

	return req, nil
}
