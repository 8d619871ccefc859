package restcall

import "time"

// Property keys for process-wide proxy settings. Group-level proxy keys
// ("http.request.<group>.proxy.*") take precedence over these.
const (
	PropHTTPProxyEnabled = "http.proxy.enabled"
	PropHTTPProxyHost    = "http.proxy.host"
	PropHTTPProxyPort    = "http.proxy.port"
)

// propertyRoot prefixes every per-operation and per-group transport setting.
const propertyRoot = "http.request."

// Compiled-in defaults, the final tier of the configuration cascade.
const (
	DefaultConnectionTimeout        = 2000 * time.Millisecond
	DefaultConnectionRequestTimeout = 2000 * time.Millisecond
	DefaultSocketTimeout            = 2000 * time.Millisecond
	DefaultStaleConnectionCheck     = true
)

// Cookie handling policies. Ignore is the default: response cookies are
// dropped and never replayed.
const (
	CookieSpecIgnore   = "ignoreCookies"
	CookieSpecStandard = "standard"
)

// PropertySource is the dynamic configuration store consulted on every call.
// Values may change between calls; resolved settings are never reused.
type PropertySource interface {
	GetInt(key string, fallback int) int
	GetBool(key string, fallback bool) bool
	GetString(key string, fallback string) string
}

// noProperties resolves everything to the supplied fallback. Used when a
// client is built without a PropertySource.
type noProperties struct{}

func (noProperties) GetInt(_ string, fallback int) int          { return fallback }
func (noProperties) GetBool(_ string, fallback bool) bool       { return fallback }
func (noProperties) GetString(_ string, fallback string) string { return fallback }

// Proxy is an outbound HTTP proxy endpoint.
type Proxy struct {
	Host string
	Port int
}

// Settings are the per-call transport settings handed down to the transport
// layer. They are resolved fresh for every call.
type Settings struct {
	ConnectionTimeout        time.Duration
	ConnectionRequestTimeout time.Duration
	SocketTimeout            time.Duration
	StaleConnectionCheck     bool
	CookieSpec               string
	Proxy                    *Proxy
}

// Resolver produces per-call Settings by cascading lookups through a
// PropertySource: operation-specific keys win over group-level keys, which
// win over the compiled-in defaults. Proxy settings exist only at group
// level, falling back to the process-wide proxy keys.
type Resolver struct {
	props PropertySource
	group string
}

// NewResolver builds a Resolver for the given group against the supplied
// source. A nil source resolves everything to the defaults.
func NewResolver(props PropertySource, group string) *Resolver {
	if props == nil {
		props = noProperties{}
	}
	return &Resolver{props: props, group: group}
}

// Resolve computes the Settings for one operation. The operation name is the
// raw command name, before any group-prefix policy is applied.
func (r *Resolver) Resolve(operation string) Settings {
	opPrefix := propertyRoot + operation
	groupPrefix := propertyRoot + r.group

	s := Settings{
		ConnectionTimeout:        r.timeoutFor(opPrefix, groupPrefix, ".connectionTimeout", DefaultConnectionTimeout),
		ConnectionRequestTimeout: r.timeoutFor(opPrefix, groupPrefix, ".connectionRequestTimeout", DefaultConnectionRequestTimeout),
		SocketTimeout:            r.timeoutFor(opPrefix, groupPrefix, ".socketTimeout", DefaultSocketTimeout),
		StaleConnectionCheck: r.props.GetBool(opPrefix+".staleConnectionCheck",
			r.props.GetBool(groupPrefix+".staleConnectionCheck", DefaultStaleConnectionCheck)),
		CookieSpec: r.props.GetString(groupPrefix+".cookieSpec", CookieSpecIgnore),
	}

	// Proxies can only be set at group level.
	enabled := r.props.GetBool(groupPrefix+".proxy.enabled",
		r.props.GetBool(PropHTTPProxyEnabled, false))
	host := r.props.GetString(groupPrefix+".proxy.host",
		r.props.GetString(PropHTTPProxyHost, ""))
	port := r.props.GetInt(groupPrefix+".proxy.port",
		r.props.GetInt(PropHTTPProxyPort, 0))
	if enabled && host != "" && port != 0 {
		s.Proxy = &Proxy{Host: host, Port: port}
	}

	return s
}

func (r *Resolver) timeoutFor(opPrefix, groupPrefix, field string, fallback time.Duration) time.Duration {
	ms := r.props.GetInt(opPrefix+field,
		r.props.GetInt(groupPrefix+field, int(fallback/time.Millisecond)))
	return time.Duration(ms) * time.Millisecond
}
