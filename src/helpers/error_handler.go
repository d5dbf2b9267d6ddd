package helpers

import (
	"errors"
	"fmt"

	"yfinance-go/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

// FetchError is the common base embedded by every error kind below.
type FetchError struct {
	Message string
	Cause   error
}

// Error masks the session crumb, since cause text from net/http embeds the
// full request URL.
func (e *FetchError) Error() string {
	if e.Cause != nil {
		return Redact(fmt.Sprintf("%s: %v", e.Message, e.Cause))
	}
	return Redact(e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// TransportError is a network-level failure (timeout, DNS, reset). Retryable.
type TransportError struct {
	FetchError
	URL string
}

// HttpStatusError is a definitive server answer with status >= 400. Never retried.
type HttpStatusError struct {
	FetchError
	StatusCode int
	URL        string
}

// ResponseParseError means a body that should be JSON was not.
type ResponseParseError struct {
	FetchError
	URL string
}

type EmptyResponseError struct {
	FetchError
	URL string
}

// AuthenticationError means the cookie/crumb handshake did not yield a crumb.
type AuthenticationError struct {
	FetchError
	Symbol string
}

type RetriesExhaustedError struct {
	FetchError
	URL      string
	Attempts int
}

// ValidationError is raised before any network call.
type ValidationError struct{ FetchError }

// DataFetchError tags an underlying failure with the symbol and endpoint path.
type DataFetchError struct {
	FetchError
	Symbol string
	Path   string
}

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewTransportError(url string, cause error) *TransportError {
	return &TransportError{FetchError: FetchError{Message: "request failed for " + url, Cause: cause}, URL: url}
}

func NewHttpStatusError(url string, status int) *HttpStatusError {
	return &HttpStatusError{
		FetchError: FetchError{Message: fmt.Sprintf("HTTP error %d for URL: %s", status, url)},
		StatusCode: status,
		URL:        url,
	}
}

func NewResponseParseError(url string, cause error) *ResponseParseError {
	return &ResponseParseError{FetchError: FetchError{Message: "failed to parse JSON response from " + url, Cause: cause}, URL: url}
}

func NewEmptyResponseError(url string) *EmptyResponseError {
	return &EmptyResponseError{FetchError: FetchError{Message: "empty response from server for URL: " + url}, URL: url}
}

func NewAuthenticationError(symbol string, cause error) *AuthenticationError {
	return &AuthenticationError{FetchError: FetchError{Message: "could not authenticate session for " + symbol, Cause: cause}, Symbol: symbol}
}

func NewRetriesExhaustedError(url string, attempts int, last error) *RetriesExhaustedError {
	return &RetriesExhaustedError{
		FetchError: FetchError{Message: fmt.Sprintf("max retries exceeded for URL: %s (%d attempts)", url, attempts), Cause: last},
		URL:        url,
		Attempts:   attempts,
	}
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{FetchError{Message: fmt.Sprintf(format, args...)}}
}

func NewDataFetchError(symbol, path string, cause error) *DataFetchError {
	return &DataFetchError{
		FetchError: FetchError{Message: fmt.Sprintf("failed to fetch %s for symbol %s", path, symbol), Cause: cause},
		Symbol:     symbol,
		Path:       path,
	}
}

// -----------------------------------------------------------------------------

// Kind names the most specific error kind in err's chain. Used by the API
// server and CLI to report failures without leaking Go type names.
func Kind(err error) string {
	var (
		authErr      *AuthenticationError
		validErr     *ValidationError
		statusErr    *HttpStatusError
		parseErr     *ResponseParseError
		emptyErr     *EmptyResponseError
		exhaustedErr *RetriesExhaustedError
		transportErr *TransportError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &authErr):
		return "authentication"
	case errors.As(err, &validErr):
		return "validation"
	case errors.As(err, &statusErr):
		return "http_status"
	case errors.As(err, &parseErr):
		return "response_parse"
	case errors.As(err, &emptyErr):
		return "empty_response"
	case errors.As(err, &exhaustedErr):
		return "retries_exhausted"
	case errors.As(err, &transportErr):
		return "transport"
	}
	return "unknown"
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler keeps a running failure count for a long-lived loop.
type ErrorHandler struct {
	Logger                 *logger.Logger
	ErrorCount             int
	MaxErrorsBeforeRestart int
}

func NewErrorHandler() *ErrorHandler {
	return &ErrorHandler{
		Logger:                 logger.NewLogger(nil, "ErrorHandler"),
		ErrorCount:             0,
		MaxErrorsBeforeRestart: 10,
	}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.ErrorCount = 0
}

// -----------------------------------------------------------------------------

// Handle logs err with its kind and bumps the counter. Returns true once the
// counter has reached MaxErrorsBeforeRestart.
func (e *ErrorHandler) Handle(err error, context string) bool {
	if err == nil {
		if e.ErrorCount > 0 {
			e.ErrorCount--
		}
		return false
	}

	e.ErrorCount++
	e.Logger.Error("Error in %s [%s]: %v", context, Kind(err), err)
	return e.ErrorCount >= e.MaxErrorsBeforeRestart
}
