package helpers

import (
	"context"
	"errors"
	"strings"
	"time"

	"yfinance-go/src/logger"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// transientPatterns are matched case-insensitively against the error text.
// "no such host" and "stopped after" are how Go's resolver and redirect
// limit word the DNS and too-many-redirects failures.
var transientPatterns = []string{
	"timeout",
	"connection refused",
	"connection reset",
	"network is unreachable",
	"temporary failure in name resolution",
	"could not resolve host",
	"no such host",
	"too many redirects",
	"stopped after",
}

// -----------------------------------------------------------------------------

// IsTransientMessage reports whether msg looks like a recoverable network fault.
func IsTransientMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, pattern := range transientPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// IsTransient classifies err. Server answers, validation failures and body
// problems are fatal whatever their text says.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var (
		statusErr *HttpStatusError
		validErr  *ValidationError
		parseErr  *ResponseParseError
		emptyErr  *EmptyResponseError
	)
	if errors.As(err, &statusErr) || errors.As(err, &validErr) ||
		errors.As(err, &parseErr) || errors.As(err, &emptyErr) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	return IsTransientMessage(err.Error())
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryPolicy runs one logical request up to MaxRetries+1 times. The wait
// before attempt i (i >= 1) is BaseDelay*i.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Logger     *logger.Logger

	// Sleep waits for d or until ctx is done. Nil means a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryPolicy(maxRetries int, baseDelay time.Duration) *RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
		Logger:     logger.NewLogger(nil, "RetryPolicy"),
	}
}

// -----------------------------------------------------------------------------

// Delay returns the backoff applied after the failed attempt with the given
// zero-based index.
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt+1)
}

// -----------------------------------------------------------------------------

// Do calls fn until it succeeds, fails fatally, or runs out of attempts.
// target names the request in errors and logs.
func (p *RetryPolicy) Do(ctx context.Context, target string, fn func(ctx context.Context) error) error {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		attempts++
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if !IsTransient(err) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return err
		}

		lastErr = err
		if attempt == p.MaxRetries {
			break
		}

		delay := p.Delay(attempt)
		if p.Logger != nil {
			p.Logger.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, p.MaxRetries+1, target, err, delay)
		}
		if err := p.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return NewRetriesExhaustedError(target, attempts, lastErr)
}

// -----------------------------------------------------------------------------

func (p *RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
