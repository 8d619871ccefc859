// Package restcall is a resilient outbound REST invocation core. It builds
// transport requests from logical resource calls, dispatches them through a
// protected-executor boundary, classifies every outcome into a closed failure
// taxonomy, and coordinates an optional response cache that is invalidated on
// any failure path.
//
// The package deliberately owns no retry logic and no circuit-breaker state:
// both belong to the ProtectedExecutor collaborator (see the breaker
// subpackage for a circuit-breaker-backed implementation). Transport,
// configuration and caching are likewise consumed through small interfaces
// with default implementations included.
package restcall

import (
	"net/http"
	"strings"
)

// Supported HTTP methods. Verbs outside this set are rejected at dispatch.
const (
	MethodGet    = http.MethodGet
	MethodPost   = http.MethodPost
	MethodPut    = http.MethodPut
	MethodDelete = http.MethodDelete
)

// ResourceCall describes one logical request against a REST resource.
// A ResourceCall is treated as immutable once handed to a client.
type ResourceCall struct {
	// Method is one of GET, POST, PUT or DELETE.
	Method string

	// ResourcePath is the path below the client endpoint. Must start with "/".
	ResourcePath string

	// Operation is the logical command name used for isolation, configuration
	// lookup and caching. The client may prefix it with the group name
	// depending on its key policy.
	Operation string

	// QueryParams are appended to the URI as a URL-encoded query string.
	// An empty or nil map means no query string.
	QueryParams map[string]string

	// Headers are attached to the request verbatim. Optional.
	Headers map[string]string

	// Body is the request payload for POST and PUT. A nil slice means no
	// payload was supplied, which is a protocol violation for those verbs;
	// an empty non-nil slice is sent as-is and only logged as a warning.
	Body []byte

	// ContentType applies to POST and PUT payloads. Empty selects text/plain.
	ContentType string

	// CacheKey scopes the response beneath the operation key. Only the
	// caching client reads it; empty disables caching for this call.
	CacheKey string
}

// Header is a single response header as a name/value pair. Headers in a
// Response are sorted by name, with the values of one name in their
// original order.
type Header struct {
	Name  string
	Value string
}

// Response is the outcome of one successful dispatch. Body is nil when the
// server returned no content (HTTP 204 without a payload). A Response is
// constructed once and never mutated; cached clients may hand the same
// Response to multiple callers.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    []Header
}

// HeaderValue returns the first header with the given name, matched
// case-insensitively.
func (r *Response) HeaderValue(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}
