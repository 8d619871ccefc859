package restcall

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/text/encoding"
)

// Encoding selects the character set query text is converted to before
// percent-encoding. The zero value and UTF8 escape Go's native UTF-8
// directly; other encodings convert through x/text first, so "é" becomes
// %E9 under Latin-1 instead of %C3%A9.
type Encoding struct {
	name string
	enc  encoding.Encoding
}

// UTF8 is the default query encoding.
var UTF8 = &Encoding{name: "UTF-8"}

// NewEncoding wraps an x/text encoding under the given display name.
func NewEncoding(name string, enc encoding.Encoding) *Encoding {
	return &Encoding{name: name, enc: enc}
}

// Name returns the encoding's display name.
func (e *Encoding) Name() string {
	if e == nil || e.name == "" {
		return "UTF-8"
	}
	return e.name
}

// EncodeQuery builds the query string for this encoding: each key and value
// is converted to the target character set and percent-encoded
// independently, pairs are joined with "&" and the whole string is prefixed
// with "?". Pairs are emitted in sorted key order so output is
// deterministic.
//
// An empty or nil parameter set fails with a ConstructionError; callers that
// want "no query string" must skip the call instead. Text the encoding
// cannot represent also fails with a ConstructionError.
func (e *Encoding) EncodeQuery(params map[string]string) (string, error) {
	if len(params) == 0 {
		return "", NewConstructionError(ScenarioEmptyQueryParams, "query parameters must not be empty")
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteByte('?')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		ek, err := e.escape(k)
		if err != nil {
			return "", err
		}
		ev, err := e.escape(params[k])
		if err != nil {
			return "", err
		}
		sb.WriteString(ek)
		sb.WriteByte('=')
		sb.WriteString(ev)
	}
	return sb.String(), nil
}

func (e *Encoding) escape(s string) (string, error) {
	if e == nil || e.enc == nil {
		return url.QueryEscape(s), nil
	}
	converted, err := e.enc.NewEncoder().String(s)
	if err != nil {
		return "", NewConstructionError(ScenarioURICreation,
			fmt.Sprintf("cannot represent %q in %s", s, e.Name()))
	}
	return url.QueryEscape(converted), nil
}

// EncodeQuery builds a URL query string from the given parameters in UTF-8.
// See Encoding.EncodeQuery for the full contract.
func EncodeQuery(params map[string]string) (string, error) {
	return UTF8.EncodeQuery(params)
}
