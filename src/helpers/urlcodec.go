package helpers

import (
	"net/url"
	"sort"
	"strings"
)

// EncodeQueryComponent percent-encodes everything outside the RFC 3986
// unreserved set, so a space becomes %20 rather than '+'.
func EncodeQueryComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// DecodeQueryComponent reverses EncodeQueryComponent.
func DecodeQueryComponent(s string) (string, error) {
	return url.QueryUnescape(s)
}

// -----------------------------------------------------------------------------

// BuildQuery joins params as k=v pairs sorted by key.
func BuildQuery(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(EncodeQueryComponent(k))
		sb.WriteByte('=')
		sb.WriteString(EncodeQueryComponent(params[k]))
	}
	return sb.String()
}

// -----------------------------------------------------------------------------

// AppendQuery attaches params to rawURL, keeping any query already present.
func AppendQuery(rawURL string, params map[string]string) string {
	query := BuildQuery(params)
	if query == "" {
		return rawURL
	}
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + query
	}
	return rawURL + "?" + query
}
