package restcall

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"sync"
	"time"
)

// drainLimit bounds how much of an unread response body Release will drain
// before closing, so the connection stays reusable without reading an
// unbounded stream.
const drainLimit = 256 << 10

// Transport performs the actual HTTP exchange for an assembled Request.
// Execute returns the completed Response with its body fully read. Abort
// cancels an in-flight exchange; Release frees any resources still held.
// Both are idempotent and callable even if Execute never ran.
type Transport interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
	Abort(req *Request)
	Release(req *Request)
}

// clientKey identifies one http.Client configuration. Requests with equal
// resolved settings share a client, and with it a connection pool.
type clientKey struct {
	connect time.Duration
	socket  time.Duration
	stale   bool
	proxy   string
	cookies string
}

// HTTPTransport is the default Transport, built on net/http. It keeps one
// http.Client per distinct resolved Settings so per-operation timeout and
// proxy tuning maps onto dedicated connection pools.
type HTTPTransport struct {
	mu      sync.Mutex
	clients map[clientKey]*http.Client
}

// NewHTTPTransport creates an HTTPTransport with an empty client pool.
func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{clients: make(map[clientKey]*http.Client)}
}

// Execute sends the request and reads the full response body. The overall
// exchange is bounded by the sum of the resolved connect, socket and
// connection-acquisition timeouts; the dial and response-header phases are
// additionally bounded individually.
func (t *HTTPTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	total := req.Settings.ConnectionTimeout + req.Settings.SocketTimeout + req.Settings.ConnectionRequestTimeout
	if total > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, total)
		req.mu.Lock()
		req.cancel = cancel
		req.mu.Unlock()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build http request: %w", err)
	}
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	resp, err := t.clientFor(req.Settings).Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Host, err)
	}
	req.mu.Lock()
	req.raw = resp.Body
	req.mu.Unlock()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewReadError(ScenarioReadFailed, "failed to read response body", err)
	}
	if resp.StatusCode == http.StatusNoContent && len(data) == 0 {
		data = nil
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Body:       data,
		Headers:    headerPairs(resp.Header),
	}, nil
}

// Abort cancels the in-flight exchange, if any. Safe to call from a
// goroutine other than the one running Execute.
func (t *HTTPTransport) Abort(req *Request) {
	if req == nil {
		return
	}
	req.mu.Lock()
	cancel := req.cancel
	req.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Release drains and closes the response stream and drops the request's
// deadline timer. Safe to call on every exit path; only the first call does
// work.
func (t *HTTPTransport) Release(req *Request) {
	if req == nil {
		return
	}
	req.release.Do(func() {
		req.mu.Lock()
		raw, cancel := req.raw, req.cancel
		req.mu.Unlock()
		if raw != nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(raw, drainLimit))
			_ = raw.Close()
		}
		if cancel != nil {
			cancel()
		}
	})
}

func (t *HTTPTransport) clientFor(s Settings) *http.Client {
	key := clientKey{
		connect: s.ConnectionTimeout,
		socket:  s.SocketTimeout,
		stale:   s.StaleConnectionCheck,
		cookies: s.CookieSpec,
	}
	if s.Proxy != nil {
		key.proxy = fmt.Sprintf("%s:%d", s.Proxy.Host, s.Proxy.Port)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.clients[key]; ok {
		return c
	}

	// Stale-connection checking maps to dropping idle connections early
	// instead of validating them on reuse.
	idle := 90 * time.Second
	if s.StaleConnectionCheck {
		idle = 30 * time.Second
	}
	tr := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: s.ConnectionTimeout}).DialContext,
		ResponseHeaderTimeout: s.SocketTimeout,
		IdleConnTimeout:       idle,
		MaxIdleConnsPerHost:   8,
	}
	if key.proxy != "" {
		tr.Proxy = http.ProxyURL(&url.URL{Scheme: "http", Host: key.proxy})
	}

	client := &http.Client{Transport: tr}
	if s.CookieSpec != "" && s.CookieSpec != CookieSpecIgnore {
		if jar, err := cookiejar.New(nil); err == nil {
			client.Jar = jar
		}
	}

	t.clients[key] = client
	return client
}

// headerPairs flattens an http.Header into ordered name/value pairs. Names
// are sorted so output is deterministic; values keep their original order.
func headerPairs(h http.Header) []Header {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]Header, 0, len(h))
	for _, name := range names {
		for _, v := range h[name] {
			pairs = append(pairs, Header{Name: name, Value: v})
		}
	}
	return pairs
}
