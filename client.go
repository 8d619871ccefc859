package restcall

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config assembles a Client. Endpoint and Group are required; every other
// field has a working default.
type Config struct {
	// Endpoint is the base URL the resource paths are appended to.
	Endpoint string

	// Group is the service-level grouping for isolation and configuration.
	Group string

	// PrependGroupKey prefixes operation names with "<group>." before they
	// are used as executor operation keys and cache scopes.
	PrependGroupKey bool

	// Properties supplies per-call transport settings. Nil resolves
	// everything to the compiled-in defaults.
	Properties PropertySource

	// Transport performs the HTTP exchange. Nil selects HTTPTransport.
	Transport Transport

	// Executor is the protected-execution boundary. Nil selects
	// DirectExecutor, which runs calls inline with no isolation.
	Executor ProtectedExecutor

	// Logger receives debug and failure logs. Nil selects slog.Default().
	Logger *slog.Logger

	// Metrics is optional; nil records nothing.
	Metrics *Collector
}

// Client executes resource calls against one REST endpoint: it builds the
// transport request, resolves per-call settings, dispatches through the
// protected executor, classifies the outcome and releases transport
// resources on every exit path.
type Client struct {
	endpoint        string
	group           string
	prependGroupKey bool
	resolver        *Resolver
	transport       Transport
	executor        ProtectedExecutor
	logger          *slog.Logger
	metrics         *Collector
}

// New validates the configuration and builds a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Group == "" {
		return nil, NewConstructionError(ScenarioInvalidClient, "group name must not be empty")
	}
	if cfg.Endpoint == "" {
		return nil, NewConstructionError(ScenarioInvalidClient, "endpoint must not be empty")
	}

	transport := cfg.Transport
	if transport == nil {
		transport = NewHTTPTransport()
	}
	executor := cfg.Executor
	if executor == nil {
		executor = DirectExecutor{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoint:        cfg.Endpoint,
		group:           cfg.Group,
		prependGroupKey: cfg.PrependGroupKey,
		resolver:        NewResolver(cfg.Properties, cfg.Group),
		transport:       transport,
		executor:        executor,
		logger:          logger,
		metrics:         cfg.Metrics,
	}, nil
}

// Get performs a GET resource call.
func (c *Client) Get(ctx context.Context, resourcePath, operation string, queryParams, headers map[string]string) (*Response, error) {
	c.logger.Debug("creating HTTP GET request", "operation", operation)
	return c.do(ctx, ResourceCall{
		Method:       MethodGet,
		ResourcePath: resourcePath,
		Operation:    operation,
		QueryParams:  queryParams,
		Headers:      headers,
	})
}

// Delete performs a DELETE resource call.
func (c *Client) Delete(ctx context.Context, resourcePath, operation string, queryParams, headers map[string]string) (*Response, error) {
	c.logger.Debug("creating HTTP DELETE request", "operation", operation)
	return c.do(ctx, ResourceCall{
		Method:       MethodDelete,
		ResourcePath: resourcePath,
		Operation:    operation,
		QueryParams:  queryParams,
		Headers:      headers,
	})
}

// Post performs a POST resource call with the given payload. An empty
// contentType selects text/plain.
func (c *Client) Post(ctx context.Context, resourcePath, operation string, body []byte, contentType string, queryParams, headers map[string]string) (*Response, error) {
	c.logger.Debug("creating HTTP POST request", "operation", operation)
	return c.do(ctx, ResourceCall{
		Method:       MethodPost,
		ResourcePath: resourcePath,
		Operation:    operation,
		QueryParams:  queryParams,
		Headers:      headers,
		Body:         body,
		ContentType:  contentType,
	})
}

// Put performs a PUT resource call with the given payload. An empty
// contentType selects text/plain.
func (c *Client) Put(ctx context.Context, resourcePath, operation string, body []byte, contentType string, queryParams, headers map[string]string) (*Response, error) {
	c.logger.Debug("creating HTTP PUT request", "operation", operation)
	return c.do(ctx, ResourceCall{
		Method:       MethodPut,
		ResourcePath: resourcePath,
		Operation:    operation,
		QueryParams:  queryParams,
		Headers:      headers,
		Body:         body,
		ContentType:  contentType,
	})
}

// Do performs an arbitrary resource call. The cached client overrides this;
// on a plain Client the CacheKey field is ignored.
func (c *Client) Do(ctx context.Context, call ResourceCall) (*Response, error) {
	return c.do(ctx, call)
}

// operationKey applies the group-prefix policy to an operation name.
func (c *Client) operationKey(operation string) string {
	if c.prependGroupKey {
		return c.group + "." + operation
	}
	return operation
}

func (c *Client) do(ctx context.Context, call ResourceCall) (*Response, error) {
	start := time.Now()

	if err := validateCall(call); err != nil {
		return nil, err
	}
	operation := c.operationKey(call.Operation)

	// Settings resolve against the raw operation name; only the executor
	// key and the cache scope see the group prefix.
	settings := c.resolver.Resolve(call.Operation)

	req, err := buildRequest(c.endpoint, call, settings, c.logger)
	if err != nil {
		c.logFailure(ctx, err, operation, "")
		c.metrics.recordFailure(operation, err)
		return nil, err
	}
	req.Operation = operation
	req.ID = uuid.New().String()
	defer c.transport.Release(req)

	c.logRequest(ctx, req)

	resp, execErr := c.executor.Execute(ctx, c.group, operation, func(ctx context.Context) (*Response, error) {
		r, err := c.transport.Execute(ctx, req)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, NewReadError(ScenarioNullResponse, "transport returned no response")
		}
		return r, nil
	})
	if execErr != nil {
		c.transport.Abort(req)
		c.logger.Debug("aborted in-flight request", "operation", operation, "id", req.ID)
		failure := classifyDispatch(execErr)
		c.logFailure(ctx, failure, operation, req.ID)
		c.metrics.recordFailure(operation, failure)
		c.metrics.observeDuration(call.Method, operation, time.Since(start))
		return nil, failure
	}

	c.metrics.recordRequest(call.Method, operation, respStatus(resp))
	c.metrics.observeDuration(call.Method, operation, time.Since(start))

	if failure := classifyStatus(resp); failure != nil {
		c.logFailure(ctx, failure, operation, req.ID)
		c.metrics.recordFailure(operation, failure)
		return nil, failure
	}

	c.logger.Debug("response received",
		"operation", operation,
		"id", req.ID,
		"status", resp.StatusCode,
		"bytes", len(resp.Body))
	return resp, nil
}

func validateCall(call ResourceCall) error {
	if call.Operation == "" {
		return NewClientSideError(ScenarioBadRequest, 0, "operation name must not be empty")
	}
	switch call.Method {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		return nil
	default:
		return NewClientSideError(ScenarioBadRequest, 0, "unsupported method "+call.Method)
	}
}

func respStatus(resp *Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

// logRequest narrates the outgoing request at debug level: resolved
// configuration, request line and headers. Header names containing
// "Authorization" are never logged.
func (c *Client) logRequest(ctx context.Context, req *Request) {
	if !c.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	s := req.Settings
	c.logger.Debug("http request configuration",
		"operation", req.Operation,
		"connectionTimeout", s.ConnectionTimeout,
		"connectionRequestTimeout", s.ConnectionRequestTimeout,
		"socketTimeout", s.SocketTimeout,
		"staleConnectionCheck", s.StaleConnectionCheck,
		"cookieSpec", s.CookieSpec,
		"proxy", proxyLabel(s.Proxy))
	c.logger.Debug("dispatching request",
		"id", req.ID,
		"method", req.Method,
		"url", req.URL.String(),
		"payloadBytes", len(req.Body))
	logHeaders(c.logger, "request", req.Header)
}

func proxyLabel(p *Proxy) string {
	if p == nil {
		return "none"
	}
	return p.Host + ":" + strconv.Itoa(p.Port)
}

func (c *Client) logFailure(ctx context.Context, failure error, operation, id string) {
	scenario := Scenario("")
	var tf typedFailure
	if errors.As(failure, &tf) {
		scenario = tf.Scenario()
	}
	c.logger.Error("resource call failed",
		"operation", operation,
		"id", id,
		"scenario", string(scenario),
		"error", failure)
}

// logHeaders logs header pairs one per line, skipping any name that
// contains "Authorization".
func logHeaders(logger *slog.Logger, direction string, h http.Header) {
	if len(h) == 0 {
		return
	}
	var sb strings.Builder
	for _, pair := range headerPairs(h) {
		if strings.Contains(pair.Name, "Authorization") {
			continue
		}
		sb.WriteString(pair.Name)
		sb.WriteString(": ")
		sb.WriteString(pair.Value)
		sb.WriteByte('\n')
	}
	logger.Debug(direction+" headers", "headers", sb.String())
}
