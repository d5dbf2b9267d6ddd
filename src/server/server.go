package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"yfinance-go/src/data_source/yahoo"
	"yfinance-go/src/helpers"
	"yfinance-go/src/interfaces"
	"yfinance-go/src/logger"
	"yfinance-go/src/models"
)

const shutdownTimeout = 5 * time.Second

// MaxLiveTickers bounds the sessions kept for live fetches.
const MaxLiveTickers = 256

// -----------------------------------------------------------------------------
// APIServer
// -----------------------------------------------------------------------------

type APIServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	Store  interfaces.ISnapshotStore

	// TickerFactory builds the Ticker used for live fetches. Tests swap it out.
	TickerFactory func(symbol string) (*yahoo.Ticker, error)

	engine  *gin.Engine
	httpSrv *http.Server

	tickers *yahoo.TickerCache

	// WebSocket clients
	clients    map[*Client]struct{}
	clientsMu  sync.RWMutex
	broadcast  chan *models.MLatestData
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	hubOnce    sync.Once
	stopOnce   sync.Once

	// Local cache
	latestState *models.MLatestData
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAPIServer(cfg *models.MConfig, store interfaces.ISnapshotStore, log *logger.Logger) *APIServer {
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &APIServer{
		Config:     cfg,
		Logger:     log,
		Store:      store,
		engine:     gin.New(),
		tickers:    yahoo.NewTickerCache(MaxLiveTickers),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan *models.MLatestData, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		latestState: &models.MLatestData{
			Type:      "INITIAL",
			Snapshots: make(map[string]map[string]models.MSnapshot),
		},
	}
	s.TickerFactory = func(symbol string) (*yahoo.Ticker, error) {
		return yahoo.NewTickerFromConfig(symbol, cfg)
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())

	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// -----------------------------------------------------------------------------

func (s *APIServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *APIServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/metrics", s.getMetrics)
	api.GET("/config", s.getConfig)
	api.GET("/datasets", s.getDatasets)
	api.GET("/tickers/:symbol/:dataset", s.getTickerDataset)
	api.GET("/snapshots/:symbol/:dataset", s.getSnapshot)

	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for httptest.
func (s *APIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start runs the hub and serves until Stop. Returns nil after a clean stop.
func (s *APIServer) Start() error {
	s.Logger.Info("Starting server on %s", s.httpSrv.Addr)

	s.startHub()

	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *APIServer) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = s.httpSrv.Shutdown(ctx)
		s.Logger.Info("Server stopped")
	})
	return err
}

// -----------------------------------------------------------------------------

func (s *APIServer) startHub() {
	s.hubOnce.Do(func() {
		go s.handleWebsockets()
	})
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *APIServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"connections":   s.connectionCount(),
		"latest_update": timestamp,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getMetrics(c *gin.Context) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, s.latestState.Metrics)
}

// -----------------------------------------------------------------------------

func (s *APIServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"symbols":                 s.Config.Poller.Symbols,
		"datasets":                s.Config.Poller.Datasets,
		"update_interval_seconds": s.Config.Poller.UpdateIntervalSeconds,
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getDatasets(c *gin.Context) {
	list := make([]gin.H, 0, len(yahoo.Datasets))
	for _, name := range yahoo.DatasetNames() {
		d, _ := yahoo.LookupDataset(name)
		list = append(list, gin.H{"name": d.Name, "description": d.Description})
	}
	c.JSON(http.StatusOK, list)
}

// -----------------------------------------------------------------------------

// getTickerDataset fetches a dataset live. A field missing upstream is a 200
// with null data, not an error.
func (s *APIServer) getTickerDataset(c *gin.Context) {
	symbol := c.Param("symbol")
	if err := helpers.ValidateSymbol(symbol); err != nil {
		writeError(c, err)
		return
	}
	d, ok := yahoo.LookupDataset(c.Param("dataset"))
	if !ok {
		writeError(c, helpers.NewValidationError("unknown dataset %q", c.Param("dataset")))
		return
	}

	ticker, err := s.tickers.Get(symbol, s.TickerFactory)
	if err != nil {
		writeError(c, err)
		return
	}
	defer func() {
		if s.tickers.Release(ticker) {
			s.Logger.Warning("Session for %s failed to authenticate, dropped", symbol)
		}
	}()

	node, err := d.Fetch(c.Request.Context(), ticker)
	if err != nil {
		s.Logger.Warning("Live fetch %s/%s failed [%s]: %v", symbol, d.Name, helpers.Kind(err), err)
		writeError(c, err)
		return
	}

	data, err := node.MarshalJSON()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MSnapshot{
		Symbol:    symbol,
		Dataset:   d.Name,
		Data:      data,
		FetchedAt: time.Now().UTC().Unix(),
	})
}

// -----------------------------------------------------------------------------

func (s *APIServer) getSnapshot(c *gin.Context) {
	symbol, dataset := c.Param("symbol"), c.Param("dataset")
	if err := helpers.ValidateSymbol(symbol); err != nil {
		writeError(c, err)
		return
	}

	snap, ok, err := s.Store.LatestSnapshot(symbol, dataset)
	if err != nil {
		s.Logger.Error("Snapshot lookup %s/%s failed: %v", symbol, dataset, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage", "message": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": fmt.Sprintf("no snapshot for %s/%s", symbol, dataset)})
		return
	}
	c.JSON(http.StatusOK, snap)
}
