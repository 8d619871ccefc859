package restcall

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeProps is a PropertySource over a plain map, shared across tests in
// this package.
type fakeProps map[string]string

func (f fakeProps) GetInt(key string, fallback int) int {
	if v, ok := f[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func (f fakeProps) GetBool(key string, fallback bool) bool {
	if v, ok := f[key]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func (f fakeProps) GetString(key string, fallback string) string {
	if v, ok := f[key]; ok {
		return v
	}
	return fallback
}

func TestResolveDefaults(t *testing.T) {
	r := NewResolver(nil, "payments")
	s := r.Resolve("fetchOrder")

	assert.Equal(t, 2000*time.Millisecond, s.ConnectionTimeout)
	assert.Equal(t, 2000*time.Millisecond, s.ConnectionRequestTimeout)
	assert.Equal(t, 2000*time.Millisecond, s.SocketTimeout)
	assert.True(t, s.StaleConnectionCheck)
	assert.Equal(t, CookieSpecIgnore, s.CookieSpec)
	assert.Nil(t, s.Proxy)
}

func TestResolveTimeoutCascade(t *testing.T) {
	tests := []struct {
		name  string
		props fakeProps
		want  time.Duration
	}{
		{
			name: "operation key wins over group key",
			props: fakeProps{
				"http.request.fetchOrder.connectionTimeout": "750",
				"http.request.payments.connectionTimeout":   "1500",
			},
			want: 750 * time.Millisecond,
		},
		{
			name: "group key wins over default",
			props: fakeProps{
				"http.request.payments.connectionTimeout": "1500",
			},
			want: 1500 * time.Millisecond,
		},
		{
			name:  "default when nothing configured",
			props: fakeProps{},
			want:  2000 * time.Millisecond,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.props, "payments")
			s := r.Resolve("fetchOrder")
			assert.Equal(t, tt.want, s.ConnectionTimeout)
		})
	}
}

func TestResolveEachTimeoutIndependently(t *testing.T) {
	props := fakeProps{
		"http.request.fetchOrder.connectionTimeout":      "100",
		"http.request.payments.socketTimeout":            "300",
		"http.request.payments.connectionRequestTimeout": "200",
	}
	s := NewResolver(props, "payments").Resolve("fetchOrder")

	assert.Equal(t, 100*time.Millisecond, s.ConnectionTimeout)
	assert.Equal(t, 200*time.Millisecond, s.ConnectionRequestTimeout)
	assert.Equal(t, 300*time.Millisecond, s.SocketTimeout)
}

func TestResolveStaleConnectionCheck(t *testing.T) {
	props := fakeProps{
		"http.request.fetchOrder.staleConnectionCheck": "false",
		"http.request.payments.staleConnectionCheck":   "true",
	}
	s := NewResolver(props, "payments").Resolve("fetchOrder")
	assert.False(t, s.StaleConnectionCheck, "operation key must win")

	s = NewResolver(fakeProps{
		"http.request.payments.staleConnectionCheck": "false",
	}, "payments").Resolve("fetchOrder")
	assert.False(t, s.StaleConnectionCheck, "group key must win over default")
}

func TestResolveCookieSpec(t *testing.T) {
	s := NewResolver(fakeProps{}, "payments").Resolve("fetchOrder")
	assert.Equal(t, CookieSpecIgnore, s.CookieSpec)

	s = NewResolver(fakeProps{
		"http.request.payments.cookieSpec": CookieSpecStandard,
	}, "payments").Resolve("fetchOrder")
	assert.Equal(t, CookieSpecStandard, s.CookieSpec)
}

func TestResolveProxy(t *testing.T) {
	tests := []struct {
		name  string
		props fakeProps
		want  *Proxy
	}{
		{
			name: "group level proxy",
			props: fakeProps{
				"http.request.payments.proxy.enabled": "true",
				"http.request.payments.proxy.host":    "proxy.internal",
				"http.request.payments.proxy.port":    "3128",
			},
			want: &Proxy{Host: "proxy.internal", Port: 3128},
		},
		{
			name: "global fallback",
			props: fakeProps{
				"http.proxy.enabled": "true",
				"http.proxy.host":    "global.proxy",
				"http.proxy.port":    "8080",
			},
			want: &Proxy{Host: "global.proxy", Port: 8080},
		},
		{
			name: "group keys override global",
			props: fakeProps{
				"http.proxy.enabled":                  "true",
				"http.proxy.host":                     "global.proxy",
				"http.proxy.port":                     "8080",
				"http.request.payments.proxy.host":    "group.proxy",
				"http.request.payments.proxy.port":    "3128",
				"http.request.payments.proxy.enabled": "true",
			},
			want: &Proxy{Host: "group.proxy", Port: 3128},
		},
		{
			name: "disabled proxy is ignored",
			props: fakeProps{
				"http.request.payments.proxy.enabled": "false",
				"http.request.payments.proxy.host":    "proxy.internal",
				"http.request.payments.proxy.port":    "3128",
			},
			want: nil,
		},
		{
			name: "missing host disables",
			props: fakeProps{
				"http.request.payments.proxy.enabled": "true",
				"http.request.payments.proxy.port":    "3128",
			},
			want: nil,
		},
		{
			name: "zero port disables",
			props: fakeProps{
				"http.request.payments.proxy.enabled": "true",
				"http.request.payments.proxy.host":    "proxy.internal",
			},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewResolver(tt.props, "payments").Resolve("fetchOrder")
			assert.Equal(t, tt.want, s.Proxy)
		})
	}
}
