package helpers

import (
	"fmt"
	"net/url"
	"strings"
)

// -----------------------------------------------------------------------------

// ValidateProxy checks if a proxy string is roughly valid.
func ValidateProxy(proxyStr string) bool {
	u, err := url.Parse(FormatProxy(proxyStr))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https" || u.Scheme == "socks5"
}

// -----------------------------------------------------------------------------

// FormatProxy ensures the proxy has a scheme.
func FormatProxy(proxyStr string) string {
	if !strings.Contains(proxyStr, "://") {
		return "http://" + proxyStr
	}
	return proxyStr
}

// -----------------------------------------------------------------------------

// ParseProxy turns the configured proxy into a URL. Empty means no proxy and
// returns nil without error.
func ParseProxy(proxyStr string) (*url.URL, error) {
	proxyStr = strings.TrimSpace(proxyStr)
	if proxyStr == "" {
		return nil, nil
	}
	if !ValidateProxy(proxyStr) {
		return nil, fmt.Errorf("invalid proxy %q", proxyStr)
	}
	return url.Parse(FormatProxy(proxyStr))
}
