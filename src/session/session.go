// Package session runs the cookie and crumb handshake Yahoo requires before
// it serves finance data, then signs every data request with both.
package session

import (
	"context"
	"strings"
	"sync"

	"yfinance-go/src/extract"
	"yfinance-go/src/helpers"
	"yfinance-go/src/interfaces"
	"yfinance-go/src/logger"
	"yfinance-go/src/models"
	"yfinance-go/src/network"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultCookieURL = "https://fc.yahoo.com"
	DefaultCrumbURL  = "https://query1.finance.yahoo.com/v1/test/getcrumb"
)

type State int

const (
	Unauthenticated State = iota
	CookieSeeded
	Authenticated
	AuthenticationFailed
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case CookieSeeded:
		return "cookie_seeded"
	case Authenticated:
		return "authenticated"
	case AuthenticationFailed:
		return "authentication_failed"
	}
	return "unknown"
}

// -----------------------------------------------------------------------------

// Manager owns the credentials of one session. AuthenticationFailed is
// terminal; a fresh Manager is the only way to try again.
type Manager struct {
	Config models.MSessionConfig
	Client interfaces.INetworkClient
	Logger *logger.Logger

	mu      sync.Mutex
	state   State
	crumb   string
	cookies string
}

func NewManager(client interfaces.INetworkClient, cfg models.MSessionConfig, log *logger.Logger) *Manager {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CookieURL == "" {
		cfg.CookieURL = DefaultCookieURL
	}
	if cfg.CrumbURL == "" {
		cfg.CrumbURL = DefaultCrumbURL
	}
	if log == nil {
		log = logger.NewLogger(nil, "Session")
	}

	return &Manager{
		Config: cfg,
		Client: client,
		Logger: log,
		state:  Unauthenticated,
	}
}

// -----------------------------------------------------------------------------

// EnsureAuthenticated runs the handshake the first time it is called and
// reports whether a crumb is available.
func (m *Manager) EnsureAuthenticated(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case Authenticated:
		return true
	case AuthenticationFailed:
		return false
	}

	m.seedCookies(ctx)
	m.fetchCrumb(ctx)
	return m.state == Authenticated
}

// -----------------------------------------------------------------------------

func (m *Manager) seedCookies(ctx context.Context) {
	if _, err := m.Client.GetText(ctx, m.Config.CookieURL, network.BrowserHeaders(), nil); err != nil {
		// Yahoo answers the seed URL with 404 while still setting the cookie.
		m.Logger.Debug("Cookie seed request to %s failed: %v", m.Config.CookieURL, err)
	}
	m.cookies = m.Client.Cookies()
	m.state = CookieSeeded
}

// -----------------------------------------------------------------------------

func (m *Manager) fetchCrumb(ctx context.Context) {
	headers := network.BrowserHeaders()
	if m.cookies != "" {
		headers["Cookie"] = m.cookies
	}

	body, err := m.Client.GetText(ctx, m.Config.CrumbURL, headers, nil)
	if err != nil {
		m.Logger.Warning("Crumb request failed: %v", err)
		m.state = AuthenticationFailed
		return
	}
	if body == "" || strings.Contains(body, "<html>") {
		m.Logger.Warning("Crumb endpoint returned no usable token")
		m.state = AuthenticationFailed
		return
	}

	m.crumb = body
	if cookies := m.Client.Cookies(); cookies != "" {
		m.cookies = cookies
	}
	m.state = Authenticated
	m.Logger.Debug("Session authenticated")
}

// -----------------------------------------------------------------------------

// Fetch performs an authenticated GET of BaseURL+path. symbol is added to the
// query unless params already carry one.
func (m *Manager) Fetch(ctx context.Context, symbol, path string, params map[string]string) (extract.Node, error) {
	if !m.EnsureAuthenticated(ctx) {
		return extract.Empty(), helpers.NewAuthenticationError(symbol, nil)
	}

	m.mu.Lock()
	crumb, cookies := m.crumb, m.cookies
	m.mu.Unlock()

	query := make(map[string]string, len(params)+2)
	for k, v := range params {
		query[k] = v
	}
	if _, ok := query["symbol"]; !ok {
		query["symbol"] = symbol
	}
	query["crumb"] = crumb

	headers := network.BrowserHeaders()
	if cookies != "" {
		headers["Cookie"] = cookies
	}

	node, err := m.Client.GetJSON(ctx, m.Config.BaseURL+path, headers, query)
	if err != nil {
		return extract.Empty(), helpers.NewDataFetchError(symbol, path, err)
	}
	return node, nil
}

// -----------------------------------------------------------------------------

// ClearCache exists for callers that expect a cache; responses are never
// cached so there is nothing to drop.
func (m *Manager) ClearCache() {}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Crumb() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.crumb
}

func (m *Manager) Cookies() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cookies
}
