package helpers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func recordingPolicy(maxRetries int) (*RetryPolicy, *[]time.Duration) {
	p := NewRetryPolicy(maxRetries, 10*time.Millisecond)
	var waits []time.Duration
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return p, &waits
}

// -----------------------------------------------------------------------------

func TestIsTransient(t *testing.T) {
	testCases := []struct {
		err       error
		transient bool
	}{
		{err: errors.New("dial tcp: connection refused"), transient: true},
		{err: errors.New("read: Connection Reset by peer"), transient: true},
		{err: errors.New("Client.Timeout exceeded while awaiting headers"), transient: true},
		{err: errors.New("lookup query1.finance.yahoo.com: no such host"), transient: true},
		{err: errors.New("stopped after 10 redirects"), transient: true},
		{err: NewTransportError("u", errors.New("i/o timeout")), transient: true},
		{err: NewHttpStatusError("timeout-page", 504), transient: false},
		{err: NewEmptyResponseError("u"), transient: false},
		{err: NewResponseParseError("u", errors.New("timeout")), transient: false},
		{err: NewValidationError("bad"), transient: false},
		{err: errors.New("x509: certificate has expired"), transient: false},
		{err: context.Canceled, transient: false},
		{err: nil, transient: false},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%v", tc.err), func(t *testing.T) {
			require.Equal(t, tc.transient, IsTransient(tc.err))
		})
	}
}

// -----------------------------------------------------------------------------

func TestRetryStatusErrorIsSingleAttempt(t *testing.T) {
	p, waits := recordingPolicy(3)
	calls := 0

	err := p.Do(context.Background(), "https://example.test", func(ctx context.Context) error {
		calls++
		return NewHttpStatusError("https://example.test", 404)
	})

	var statusErr *HttpStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 404, statusErr.StatusCode)
	require.Equal(t, 1, calls)
	require.Empty(t, *waits)
}

func TestRetryRecoversWithGrowingDelay(t *testing.T) {
	p, waits := recordingPolicy(3)
	calls := 0

	err := p.Do(context.Background(), "u", func(ctx context.Context) error {
		calls++
		if calls <= 2 {
			return errors.New("connection reset by peer")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *waits)
}

func TestRetryAttemptsAreBounded(t *testing.T) {
	for _, maxRetries := range []int{0, 1, 3} {
		t.Run(fmt.Sprint(maxRetries), func(t *testing.T) {
			p, waits := recordingPolicy(maxRetries)
			calls := 0
			last := errors.New("i/o timeout")

			err := p.Do(context.Background(), "u", func(ctx context.Context) error {
				calls++
				return last
			})

			var exhausted *RetriesExhaustedError
			require.ErrorAs(t, err, &exhausted)
			require.ErrorIs(t, err, last)
			require.Equal(t, maxRetries+1, calls)
			require.Equal(t, maxRetries+1, exhausted.Attempts)
			require.Len(t, *waits, maxRetries)
			for i := 1; i < len(*waits); i++ {
				require.GreaterOrEqual(t, (*waits)[i], (*waits)[i-1])
			}
		})
	}
}

func TestRetryStopsOnCancel(t *testing.T) {
	p := NewRetryPolicy(5, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	done := make(chan error, 1)
	go func() {
		done <- p.Do(ctx, "u", func(ctx context.Context) error {
			calls++
			return errors.New("connection refused")
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

// -----------------------------------------------------------------------------

func TestKind(t *testing.T) {
	status := NewHttpStatusError("u", 500)
	require.Equal(t, "http_status", Kind(NewDataFetchError("AAPL", "/p", status)))
	require.Equal(t, "authentication", Kind(NewAuthenticationError("AAPL", nil)))
	require.Equal(t, "retries_exhausted", Kind(NewRetriesExhaustedError("u", 4, errors.New("timeout"))))
	require.Equal(t, "transport", Kind(NewTransportError("u", errors.New("boom"))))
	require.Equal(t, "unknown", Kind(errors.New("boom")))
	require.Equal(t, "", Kind(nil))
	require.Equal(t, "HTTP error 500 for URL: u", status.Error())
}

func TestErrorHandlerThreshold(t *testing.T) {
	h := NewErrorHandler()
	h.MaxErrorsBeforeRestart = 2

	require.False(t, h.Handle(errors.New("a"), "poll"))
	require.True(t, h.Handle(errors.New("b"), "poll"))
	require.False(t, h.Handle(nil, "poll"))
	require.Equal(t, 1, h.ErrorCount)

	h.ResetErrorCount()
	require.Equal(t, 0, h.ErrorCount)
}

// -----------------------------------------------------------------------------

func TestValidateSymbol(t *testing.T) {
	for _, ok := range []string{"AAPL", "BRK.B", "BF-B", "A", "ABCDEFGHIJ"} {
		require.NoError(t, ValidateSymbol(ok), ok)
	}

	for _, bad := range []string{"", "ABCDEFGHIJK", "AA@PL", "AA PL", "ÄPPL"} {
		err := ValidateSymbol(bad)
		var validErr *ValidationError
		require.ErrorAs(t, err, &validErr, bad)
	}
}

func TestValidateHistory(t *testing.T) {
	require.NoError(t, ValidateHistory(30, "1d"))
	require.NoError(t, ValidateHistory(1, "1m"))
	require.Error(t, ValidateHistory(0, "1d"))
	require.Error(t, ValidateHistory(-3, "1d"))
	require.Error(t, ValidateHistory(30, "2d"))
}

func TestDaysToPeriod(t *testing.T) {
	testCases := map[int]string{
		1: "1d", 5: "5d", 30: "1mo", 90: "3mo", 180: "6mo",
		365: "1y", 730: "2y", 1825: "5y", 3650: "10y", 3651: "max",
	}
	for days, expected := range testCases {
		require.Equal(t, expected, DaysToPeriod(days), days)
	}
}

// -----------------------------------------------------------------------------

func TestQueryComponentRoundTrip(t *testing.T) {
	require.Equal(t, "AAPL%26info", EncodeQueryComponent("AAPL&info"))
	require.Equal(t, "a%20b", EncodeQueryComponent("a b"))

	for _, s := range []string{"AAPL&info", "a b+c", "x=y/z?", "日本", ""} {
		decoded, err := DecodeQueryComponent(EncodeQueryComponent(s))
		require.NoError(t, err)
		require.Equal(t, s, decoded)
	}
}

func TestAppendQuery(t *testing.T) {
	params := map[string]string{"b": "2", "a": "1"}
	require.Equal(t, "https://h/p?a=1&b=2", AppendQuery("https://h/p", params))
	require.Equal(t, "https://h/p?q=0&a=1&b=2", AppendQuery("https://h/p?q=0", params))
	require.Equal(t, "https://h/p", AppendQuery("https://h/p", nil))
}

func TestParseProxy(t *testing.T) {
	u, err := ParseProxy("")
	require.NoError(t, err)
	require.Nil(t, u)

	u, err = ParseProxy("127.0.0.1:8080")
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:8080", u.String())

	_, err = ParseProxy("ftp://proxy")
	require.Error(t, err)
}

func TestRedact(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{name: "first param", in: "https://x/q?crumb=abc&symbol=AAPL", want: "https://x/q?crumb=REDACTED&symbol=AAPL"},
		{name: "later param", in: "https://x/q?a=1&crumb=a%2Fb", want: "https://x/q?a=1&crumb=REDACTED"},
		{name: "quoted in error text", in: `Get "https://x/q?crumb=abc": EOF`, want: `Get "https://x/q?crumb=REDACTED": EOF`},
		{name: "no crumb", in: "https://x/q?symbol=AAPL", want: "https://x/q?symbol=AAPL"},
		{name: "not a param", in: "crumb=abc", want: "crumb=abc"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Redact(tc.in))
		})
	}
}

func TestFetchErrorHidesCrumb(t *testing.T) {
	cause := errors.New(`Get "https://x/q?crumb=secret&symbol=AAPL": connection reset`)
	err := NewDataFetchError("AAPL", "/q", NewTransportError("https://x/q?crumb=secret", cause))

	require.NotContains(t, err.Error(), "secret")
	require.Contains(t, err.Error(), "crumb=REDACTED")
	require.Equal(t, "transport", Kind(err))
}
