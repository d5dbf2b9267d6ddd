package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"yfinance-go/src/data_source/yahoo"
	"yfinance-go/src/helpers"
	"yfinance-go/src/logger"
	"yfinance-go/src/models"
	"yfinance-go/src/network"
	"yfinance-go/src/storage"
)

const summaryPath = "/v10/finance/quoteSummary/"

type upstream struct {
	srv         *httptest.Server
	summaryHits int32
	flakyHits   int32
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{}

	mux := http.NewServeMux()
	mux.HandleFunc("/seed", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "A3", Value: "d=x", Path: "/"})
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/crumb", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "crumb-1")
	})
	mux.HandleFunc("/badcrumb", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html><body>consent</body></html>")
	})
	// flakycrumb refuses the first handshake only.
	mux.HandleFunc("/flakycrumb", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&u.flakyHits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "crumb-1")
	})
	mux.HandleFunc(summaryPath, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&u.summaryHits, 1)
		switch strings.TrimPrefix(r.URL.Path, summaryPath) {
		case "FAIL":
			w.WriteHeader(http.StatusInternalServerError)
		case "EMPTY":
			_, _ = io.WriteString(w, `{"quoteSummary":{"result":[],"error":null}}`)
		default:
			_, _ = io.WriteString(w, `{"quoteSummary":{"result":[{"calendarEvents":{"earnings":{"earningsDate":[1700000000]}}}],"error":null}}`)
		}
	})

	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) config(crumbPath string) *models.MConfig {
	return &models.MConfig{
		Network: models.MNetworkConfig{RequestTimeout: 5, RetryBaseDelayMs: 1},
		Session: models.MSessionConfig{
			BaseURL:   u.srv.URL,
			CookieURL: u.srv.URL + "/seed",
			CrumbURL:  u.srv.URL + crumbPath,
		},
		Poller: models.MPollerConfig{Symbols: []string{"AAPL"}, Datasets: []string{"info"}},
	}
}

func newTestServer(t *testing.T, cfg *models.MConfig, store *storage.SQLiteStore) *APIServer {
	t.Helper()
	logger.SetOutput(io.Discard)

	var s *APIServer
	if store != nil {
		s = NewAPIServer(cfg, store, logger.NewLogger(cfg, "APIServer"))
	} else {
		s = NewAPIServer(cfg, storage.NoopStore{}, logger.NewLogger(cfg, "APIServer"))
	}
	s.TickerFactory = func(symbol string) (*yahoo.Ticker, error) {
		client, err := network.NewClient(cfg, nil)
		if err != nil {
			return nil, err
		}
		return yahoo.NewTicker(symbol, client, cfg.Session, nil)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

func get(t *testing.T, s *APIServer, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Handler().ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec.Code, body
}

// -----------------------------------------------------------------------------

func TestTickerDatasetEndpoint(t *testing.T) {
	u := newUpstream(t)
	s := newTestServer(t, u.config("/crumb"), nil)

	testCases := []struct {
		name     string
		path     string
		status   int
		errKind  string
		nullData bool
	}{
		{name: "ok", path: "/api/tickers/AAPL/earnings_dates", status: http.StatusOK},
		{name: "absent field", path: "/api/tickers/EMPTY/earnings_dates", status: http.StatusOK, nullData: true},
		{name: "bad symbol", path: "/api/tickers/AA@PL/info", status: http.StatusBadRequest, errKind: "validation"},
		{name: "unknown dataset", path: "/api/tickers/AAPL/nope", status: http.StatusBadRequest, errKind: "validation"},
		{name: "upstream 500", path: "/api/tickers/FAIL/info", status: http.StatusBadGateway, errKind: "http_status"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := get(t, s, tc.path)
			require.Equal(t, tc.status, code)
			if tc.errKind != "" {
				require.Equal(t, tc.errKind, body["error"])
				return
			}
			if tc.nullData {
				require.Contains(t, body, "data")
				require.Nil(t, body["data"])
				return
			}
			require.NotNil(t, body["data"])
		})
	}
}

func TestTickerDatasetAuthFailure(t *testing.T) {
	u := newUpstream(t)
	s := newTestServer(t, u.config("/badcrumb"), nil)

	code, body := get(t, s, "/api/tickers/AAPL/info")
	require.Equal(t, http.StatusBadGateway, code)
	require.Equal(t, "authentication", body["error"])
	require.Zero(t, atomic.LoadInt32(&u.summaryHits))
}

func TestTickerReusedAcrossRequests(t *testing.T) {
	u := newUpstream(t)
	s := newTestServer(t, u.config("/crumb"), nil)

	var built int32
	factory := s.TickerFactory
	s.TickerFactory = func(symbol string) (*yahoo.Ticker, error) {
		atomic.AddInt32(&built, 1)
		return factory(symbol)
	}

	for i := 0; i < 3; i++ {
		code, _ := get(t, s, "/api/tickers/AAPL/earnings_dates")
		require.Equal(t, http.StatusOK, code)
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&built))
}

func TestTickerRebuiltAfterAuthFailure(t *testing.T) {
	u := newUpstream(t)
	s := newTestServer(t, u.config("/flakycrumb"), nil)

	code, body := get(t, s, "/api/tickers/AAPL/earnings_dates")
	require.Equal(t, http.StatusBadGateway, code)
	require.Equal(t, "authentication", body["error"])
	require.Zero(t, s.tickers.Len())

	code, body = get(t, s, "/api/tickers/AAPL/earnings_dates")
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, body["data"])
	require.Equal(t, int32(2), atomic.LoadInt32(&u.flakyHits))
	require.Equal(t, 1, s.tickers.Len())
}

func TestErrorBodyHidesCrumb(t *testing.T) {
	u := newUpstream(t)
	s := newTestServer(t, u.config("/crumb"), nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tickers/FAIL/info", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "crumb=REDACTED")
	require.NotContains(t, rec.Body.String(), "crumb-1")
}

func TestLiveTickersBounded(t *testing.T) {
	u := newUpstream(t)
	s := newTestServer(t, u.config("/crumb"), nil)
	s.tickers.MaxSize = 2

	var built int32
	factory := s.TickerFactory
	s.TickerFactory = func(symbol string) (*yahoo.Ticker, error) {
		atomic.AddInt32(&built, 1)
		return factory(symbol)
	}

	testCases := []struct {
		symbol string
		built  int32
	}{
		{symbol: "AAPL", built: 1},
		{symbol: "MSFT", built: 2},
		{symbol: "AAPL", built: 2},
		{symbol: "GOOG", built: 3},
		{symbol: "MSFT", built: 4},
	}
	for _, tc := range testCases {
		code, _ := get(t, s, "/api/tickers/"+tc.symbol+"/earnings_dates")
		require.Equal(t, http.StatusOK, code)
		require.Equal(t, tc.built, atomic.LoadInt32(&built), tc.symbol)
		require.LessOrEqual(t, s.tickers.Len(), 2)
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	logger.SetOutput(io.Discard)
	cfg := &models.MConfig{Storage: models.MStorageConfig{DBType: "sqlite", DBPath: ":memory:"}}
	store := storage.NewSQLiteStore(cfg, logger.NewLogger(cfg, "SQLiteStore"))
	require.NoError(t, store.Initialize())
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.SaveSnapshots([]models.MSnapshot{
		{Symbol: "AAPL", Dataset: "info", Data: []byte(`{"price":1}`), FetchedAt: 42},
	}))

	s := newTestServer(t, cfg, store)

	code, body := get(t, s, "/api/snapshots/AAPL/info")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, float64(42), body["fetched_at"])
	require.Equal(t, map[string]any{"price": float64(1)}, body["data"])

	code, body = get(t, s, "/api/snapshots/MSFT/info")
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "not_found", body["error"])

	code, _ = get(t, s, "/api/snapshots/A@/info")
	require.Equal(t, http.StatusBadRequest, code)
}

func TestHealthAndDatasets(t *testing.T) {
	s := newTestServer(t, &models.MConfig{}, nil)

	code, body := get(t, s, "/api/health")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, float64(0), body["connections"])

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/datasets", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list []map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, len(yahoo.Datasets))
	require.Equal(t, yahoo.DatasetNames()[0], list[0]["name"])
}

func TestUpdateAllDatasMerges(t *testing.T) {
	s := newTestServer(t, &models.MConfig{}, nil)

	s.UpdateAllDatas(&models.MLatestData{
		Snapshots: map[string]map[string]models.MSnapshot{"AAPL": {"info": {Symbol: "AAPL", Dataset: "info"}}},
		Timestamp: 1,
	})
	s.UpdateAllDatas(&models.MLatestData{
		Snapshots: map[string]map[string]models.MSnapshot{"AAPL": {"news": {Symbol: "AAPL", Dataset: "news"}}},
		Timestamp: 2,
		Metrics:   models.MPollMetrics{SnapshotsSaved: 1},
	})
	s.UpdateAllDatas(nil)

	require.Len(t, s.latestState.Snapshots["AAPL"], 2)
	require.Equal(t, int64(2), s.latestState.Timestamp)
	require.Equal(t, "UPDATE", s.latestState.Type)

	code, body := get(t, s, "/api/metrics")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, float64(1), body["snapshots_saved"])
}

func TestFilterState(t *testing.T) {
	state := &models.MLatestData{
		Type: "UPDATE",
		Snapshots: map[string]map[string]models.MSnapshot{
			"AAPL": {"info": {}, "news": {}},
			"MSFT": {"info": {}},
		},
	}

	require.Len(t, filterState(state, nil, nil).Snapshots, 2)
	require.Len(t, filterState(state, []string{"AAPL"}, nil).Snapshots, 1)

	onlyNews := filterState(state, nil, []string{"news"})
	require.Len(t, onlyNews.Snapshots, 1)
	require.Contains(t, onlyNews.Snapshots["AAPL"], "news")
	require.Equal(t, "UPDATE", onlyNews.Type)
}

func TestErrorStatus(t *testing.T) {
	testCases := []struct {
		err    error
		status int
	}{
		{helpers.NewValidationError("bad"), http.StatusBadRequest},
		{helpers.NewAuthenticationError("AAPL", nil), http.StatusBadGateway},
		{helpers.NewDataFetchError("AAPL", "/x", helpers.NewHttpStatusError("u", 404)), http.StatusBadGateway},
		{helpers.NewRetriesExhaustedError("u", 3, nil), http.StatusBadGateway},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.status, errorStatus(tc.err), tc.err.Error())
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	s := newTestServer(t, &models.MConfig{}, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	read := func() models.MLatestData {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg models.MLatestData
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	initial := read()
	require.Equal(t, "INITIAL", initial.Type)
	require.Empty(t, initial.Snapshots)

	require.NoError(t, conn.WriteJSON(models.MSubscribeCommand{Command: "subscribe", Symbols: []string{"MSFT"}}))
	subscribed := read()
	require.Empty(t, subscribed.Snapshots)

	update := &models.MLatestData{
		Type: "UPDATE",
		Snapshots: map[string]map[string]models.MSnapshot{
			"AAPL": {"info": {Symbol: "AAPL", Dataset: "info", Data: []byte(`1`)}},
			"MSFT": {"info": {Symbol: "MSFT", Dataset: "info", Data: []byte(`2`)}},
		},
		Timestamp: 7,
	}
	s.UpdateAllDatas(update)
	s.Broadcast(update)

	msg := read()
	require.Equal(t, "UPDATE", msg.Type)
	require.Equal(t, int64(7), msg.Timestamp)
	require.Len(t, msg.Snapshots, 1)
	require.Equal(t, "2", string(msg.Snapshots["MSFT"]["info"].Data))
}
