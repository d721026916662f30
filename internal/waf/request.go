package waf

import (
	"net/url"
	"sort"
	"strings"
)

// FileUpload describes one uploaded file as seen by the heuristics. The
// transport layer fills SniffedType from the file's leading bytes when it
// can; an empty value means sniffing was unavailable and the check is
// skipped.
type FileUpload struct {
	Filename    string
	Size        int64
	ContentType string // declared by the client
	SniffedType string // detected from content, optional
}

// RequestInfo is the decoded, framework-independent view of one inbound
// request. The HTTP layer is responsible for producing it; the engine
// never touches the transport directly.
type RequestInfo struct {
	Method    string
	Path      string // raw request path
	RawQuery  string
	Body      url.Values // parsed form/body parameters
	UserAgent string
	ClientIP  string
	IsAdmin   bool
	Uploads   []FileUpload
}

// BuildPayload flattens the request into the single string rules are
// evaluated against: decoded query string, decoded body parameters
// (CSRF-token-like fields excluded), raw path, and User-Agent, joined by
// single spaces. Body keys are walked in sorted order so the payload is
// reproducible for a given request.
func BuildPayload(r *RequestInfo) string {
	var parts []string

	if r.RawQuery != "" {
		parts = append(parts, decode(r.RawQuery))
	}

	keys := make([]string, 0, len(r.Body))
	for k := range r.Body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if isTokenField(k) {
			continue
		}
		for _, v := range r.Body[k] {
			parts = append(parts, decode(v))
		}
	}

	if r.Path != "" {
		parts = append(parts, r.Path)
	}
	if r.UserAgent != "" {
		parts = append(parts, r.UserAgent)
	}

	return strings.Join(parts, " ")
}

// decode applies URL decoding, falling back to the raw value when the
// input is not valid percent-encoding. An attacker must not be able to
// dodge inspection by sending a malformed escape.
func decode(s string) string {
	if dec, err := url.QueryUnescape(s); err == nil {
		return dec
	}
	return s
}

// isTokenField filters anti-forgery fields out of the payload; their random
// values would otherwise trip entropy-sensitive patterns for no gain.
func isTokenField(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "csrf") ||
		strings.Contains(n, "nonce") ||
		strings.HasSuffix(n, "_token") ||
		n == "token"
}

// parameterBytes totals the serialized size of all request parameters,
// used by the oversized-request heuristic.
func parameterBytes(r *RequestInfo) int {
	total := len(r.RawQuery)
	for k, vs := range r.Body {
		for _, v := range vs {
			total += len(k) + len(v)
		}
	}
	return total
}

// eachValue walks every decoded request value: query parameters, body
// parameters, and the path. Used by checks that look at fields
// individually rather than at the joined payload.
func eachValue(r *RequestInfo, fn func(string) bool) bool {
	if q, err := url.ParseQuery(r.RawQuery); err == nil {
		for _, vs := range q {
			for _, v := range vs {
				if fn(v) {
					return true
				}
			}
		}
	} else if fn(decode(r.RawQuery)) {
		return true
	}
	for _, vs := range r.Body {
		for _, v := range vs {
			if fn(v) {
				return true
			}
		}
	}
	return fn(r.Path)
}
