package helpers

import "regexp"

const redacted = "REDACTED"

// crumbParam matches the session crumb in a query string, including inside
// quoted URLs embedded in net/http error text.
var crumbParam = regexp.MustCompile(`(?i)([?&]crumb=)[^&\s"']*`)

// -----------------------------------------------------------------------------

// Redact masks the crumb query parameter wherever it appears in s. Error
// text and logs go through it since they may reach API clients.
func Redact(s string) string {
	return crumbParam.ReplaceAllString(s, "${1}"+redacted)
}
