package network

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/require"

	"yfinance-go/src/extract"
	"yfinance-go/src/helpers"
	"yfinance-go/src/models"
)

var backends = []string{"http", "resty"}

func testConfig(backend string) *models.MConfig {
	return &models.MConfig{
		Network: models.MNetworkConfig{
			Backend:          backend,
			RequestTimeout:   5,
			MaxRetries:       2,
			RetryBaseDelayMs: 1,
		},
	}
}

func newTestClient(t *testing.T, backend string) *Client {
	t.Helper()
	client, err := NewClient(testConfig(backend), nil)
	require.NoError(t, err)
	return client
}

// -----------------------------------------------------------------------------

func TestUserAgentInjection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.Header.Get("User-Agent"))
	}))
	defer srv.Close()

	testCases := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{name: "default", headers: nil, expected: DefaultUserAgent},
		{name: "caller wins", headers: map[string]string{"User-Agent": "X"}, expected: "X"},
		{name: "any case", headers: map[string]string{"user-agent": "lower"}, expected: "lower"},
	}

	for _, backend := range backends {
		client := newTestClient(t, backend)
		for _, tc := range testCases {
			t.Run(backend+"/"+tc.name, func(t *testing.T) {
				text, err := client.GetText(context.Background(), srv.URL, tc.headers, nil)
				require.NoError(t, err)
				require.Equal(t, tc.expected, text)
			})
		}
	}
}

func TestWithDefaultUserAgentKeepsCallerMap(t *testing.T) {
	in := map[string]string{"Accept": "*/*"}
	out := WithDefaultUserAgent(in, "UA")

	require.Equal(t, "UA", out["User-Agent"])
	require.NotContains(t, in, "User-Agent")

	out = WithDefaultUserAgent(map[string]string{"USER-AGENT": "mine"}, "UA")
	require.Len(t, out, 1)
	require.Equal(t, "mine", out["USER-AGENT"])
}

// -----------------------------------------------------------------------------

func TestQueryParamsAreSortedAndEncoded(t *testing.T) {
	var rawQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery.Store(r.URL.RawQuery)
		_, _ = io.WriteString(w, "{}")
	}))
	defer srv.Close()

	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			client := newTestClient(t, backend)
			_, err := client.GetJSON(context.Background(), srv.URL, nil, map[string]string{
				"symbol": "BRK B",
				"crumb":  "a/b",
			})
			require.NoError(t, err)
			require.Equal(t, "crumb=a%2Fb&symbol=BRK%20B", rawQuery.Load())
		})
	}
}

// -----------------------------------------------------------------------------

func TestCookiesAccumulateOnErrorStatus(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.SetCookie(w, &http.Cookie{Name: "A", Value: "1", Path: "/"})
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			atomic.StoreInt32(&hits, 0)
			client := newTestClient(t, backend)

			_, err := client.GetText(context.Background(), srv.URL, nil, nil)

			var statusErr *helpers.HttpStatusError
			require.ErrorAs(t, err, &statusErr)
			require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
			require.Contains(t, client.Cookies(), "A=1")
			require.EqualValues(t, 1, atomic.LoadInt32(&hits))
		})
	}
}

func TestCookiesAreNotRepeated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "B", Value: "2", Path: "/"})
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	client := newTestClient(t, "http")
	for i := 0; i < 3; i++ {
		_, err := client.GetText(context.Background(), srv.URL, nil, nil)
		require.NoError(t, err)
	}
	require.Equal(t, "B=2", client.Cookies())

	client.SetCookies("x=1; y=2")
	require.Equal(t, "x=1; y=2", client.Cookies())
}

// -----------------------------------------------------------------------------

func TestJSONBodyErrors(t *testing.T) {
	testCases := []struct {
		name  string
		body  string
		check func(t *testing.T, err error)
	}{
		{
			name: "empty",
			body: "",
			check: func(t *testing.T, err error) {
				var target *helpers.EmptyResponseError
				require.ErrorAs(t, err, &target)
			},
		},
		{
			name: "html",
			body: "<html>nope</html>",
			check: func(t *testing.T, err error) {
				var target *helpers.ResponseParseError
				require.ErrorAs(t, err, &target)
			},
		},
		{
			name: "valid",
			body: `{"a":{"b":[1,2]}}`,
			check: func(t *testing.T, err error) {
				require.NoError(t, err)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			client := newTestClient(t, "http")
			_, err := client.GetJSON(context.Background(), srv.URL, nil, nil)
			tc.check(t, err)
		})
	}
}

func TestGetTextAllowsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	text, err := newTestClient(t, "http").GetText(context.Background(), srv.URL, nil, nil)
	require.NoError(t, err)
	require.Empty(t, text)
}

// -----------------------------------------------------------------------------

func TestPostJSONSendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(r.Body)
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			node, err := newTestClient(t, backend).PostJSON(context.Background(), srv.URL, `{"q":"x"}`, nil)
			require.NoError(t, err)
			require.Equal(t, "x", node.Get(extract.Key("q")).String())
		})
	}
}

// -----------------------------------------------------------------------------

func TestCompressedBodies(t *testing.T) {
	payload := []byte(`{"ok":true}`)

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write(payload)
	_ = gw.Close()

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write(payload)
	_ = bw.Close()

	encoded := map[string][]byte{"gzip": gz.Bytes(), "br": br.Bytes()}

	for encoding, body := range encoded {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Encoding", encoding)
			_, _ = w.Write(body)
		}))

		for _, backend := range backends {
			t.Run(encoding+"/"+backend, func(t *testing.T) {
				node, err := newTestClient(t, backend).GetJSON(context.Background(), srv.URL, BrowserHeaders(), nil)
				require.NoError(t, err)
				require.Equal(t, "true", node.Get(extract.Key("ok")).String())
			})
		}
		srv.Close()
	}
}

func TestDecodeBodyPassesPlainTextThrough(t *testing.T) {
	out, err := decodeBody("gzip", []byte("already plain"))
	require.NoError(t, err)
	require.Equal(t, "already plain", string(out))

	out, err = decodeBody("", []byte("x"))
	require.NoError(t, err)
	require.Equal(t, "x", string(out))
}

// -----------------------------------------------------------------------------

type scriptedTransport struct {
	errs  []error
	calls int
	resp  *models.MResponse
}

func (s *scriptedTransport) Do(ctx context.Context, req *models.MRequest) (*models.MResponse, error) {
	s.calls++
	if s.calls <= len(s.errs) {
		return nil, s.errs[s.calls-1]
	}
	return s.resp, nil
}

func (s *scriptedTransport) CloseIdleConnections() {}

func TestTransientFailuresAreRetried(t *testing.T) {
	reset := helpers.NewTransportError("u", errors.New("read: connection reset by peer"))
	transport := &scriptedTransport{
		errs: []error{reset, reset},
		resp: &models.MResponse{StatusCode: 200, Body: "fine"},
	}

	client := NewClientWithTransport(testConfig("http"), transport, nil)
	var waits []time.Duration
	client.Retry.Sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	text, err := client.GetText(context.Background(), "https://example.test/x", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "fine", text)
	require.Equal(t, 3, transport.calls)
	require.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestRetriesExhausted(t *testing.T) {
	timeout := helpers.NewTransportError("u", errors.New("i/o timeout"))
	transport := &scriptedTransport{errs: []error{timeout, timeout, timeout, timeout}}

	client := NewClientWithTransport(testConfig("http"), transport, nil)
	client.Retry.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	_, err := client.GetText(context.Background(), "https://example.test/x", nil, nil)

	var exhausted *helpers.RetriesExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 3, exhausted.Attempts)
	require.Equal(t, 3, transport.calls)
	require.ErrorIs(t, err, timeout)
}

func TestFatalTransportErrorIsNotRetried(t *testing.T) {
	tls := helpers.NewTransportError("u", errors.New("x509: certificate signed by unknown authority"))
	transport := &scriptedTransport{errs: []error{tls}}

	client := NewClientWithTransport(testConfig("http"), transport, nil)
	_, err := client.GetText(context.Background(), "https://example.test/x", nil, nil)

	require.ErrorIs(t, err, tls)
	require.Equal(t, 1, transport.calls)
}

// -----------------------------------------------------------------------------

func TestUnknownBackend(t *testing.T) {
	_, err := NewTransport(models.MNetworkConfig{Backend: "carrier-pigeon"})
	require.Error(t, err)
}

func TestCleanupIsSafeToRepeat(t *testing.T) {
	Initialize()
	_ = newTestClient(t, "http")
	Cleanup()
	Cleanup()
}
