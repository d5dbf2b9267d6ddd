package network

import "strings"

// BrowserHeaders is the header set sent with every upstream request. The
// User-Agent is left to the client so the configured one applies.
func BrowserHeaders() map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8,application/json",
		"Accept-Language":           "en-US,en;q=0.9",
		"Accept-Encoding":           "gzip, deflate, br",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Cache-Control":             "max-age=0",
	}
}

// -----------------------------------------------------------------------------

// WithDefaultUserAgent returns a copy of headers with ua added under
// "User-Agent", unless some key already names that header in any case.
func WithDefaultUserAgent(headers map[string]string, ua string) map[string]string {
	out := copyHeaders(headers)
	if _, ok := lookupHeader(out, "User-Agent"); !ok && ua != "" {
		out["User-Agent"] = ua
	}
	return out
}

// -----------------------------------------------------------------------------

func lookupHeader(headers map[string]string, name string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

func copyHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	return out
}
