package models

// MRequest is a single outbound call. URL already carries the encoded query.
type MRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string // POST only
}

// MResponse is what a transport backend hands back for one round trip.
type MResponse struct {
	StatusCode int
	Body       string
	// Cookies holds "name=value" pairs the backend saw on this exchange,
	// from Set-Cookie headers and the jar entries for the final URL.
	Cookies []string
}
