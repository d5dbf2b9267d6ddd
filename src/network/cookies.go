package network

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"golang.org/x/net/publicsuffix"
)

func newCookieJar() (http.CookieJar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// -----------------------------------------------------------------------------

// cookiePairs lists name=value for the cookies a response set plus whatever
// the jar holds for the final URL, without repeats.
func cookiePairs(set []*http.Cookie, jar http.CookieJar, final *url.URL) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(c *http.Cookie) {
		if c == nil || c.Name == "" {
			return
		}
		pair := c.Name + "=" + c.Value
		if _, ok := seen[pair]; ok {
			return
		}
		seen[pair] = struct{}{}
		out = append(out, pair)
	}

	for _, c := range set {
		add(c)
	}
	if jar != nil && final != nil {
		for _, c := range jar.Cookies(final) {
			add(c)
		}
	}
	return out
}
