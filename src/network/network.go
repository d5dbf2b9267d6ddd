package network

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"yfinance-go/src/extract"
	"yfinance-go/src/helpers"
	"yfinance-go/src/interfaces"
	"yfinance-go/src/logger"
	"yfinance-go/src/models"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (compatible; yfinance-go/1.0)"
	DefaultTimeout   = 30 // seconds
)

// Client sends requests through a backend, wraps them in the retry policy and
// accumulates the cookies every exchange hands back. One Client belongs to one
// ticker session and is not meant to be shared between goroutines that mutate
// the same session.
type Client struct {
	Config    *models.MConfig
	Transport interfaces.ITransport
	Retry     *helpers.RetryPolicy
	Logger    *logger.Logger
	UserAgent string

	cookies []string
	mu      sync.Mutex
}

// -----------------------------------------------------------------------------

// NewClient builds the backend named in cfg.Network.Backend.
func NewClient(cfg *models.MConfig, log *logger.Logger) (*Client, error) {
	transport, err := NewTransport(cfg.Network)
	if err != nil {
		return nil, err
	}
	return NewClientWithTransport(cfg, transport, log), nil
}

// -----------------------------------------------------------------------------

func NewClientWithTransport(cfg *models.MConfig, transport interfaces.ITransport, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewLogger(cfg, "NetworkClient")
	}

	ua := cfg.Network.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	baseDelay := helpers.DefaultBaseDelay
	if cfg.Network.RetryBaseDelayMs > 0 {
		baseDelay = time.Duration(cfg.Network.RetryBaseDelayMs) * time.Millisecond
	}

	retry := helpers.NewRetryPolicy(cfg.Network.MaxRetries, baseDelay)
	retry.Logger = log

	return &Client{
		Config:    cfg,
		Transport: transport,
		Retry:     retry,
		Logger:    log,
		UserAgent: ua,
	}
}

// -----------------------------------------------------------------------------

// Send performs one logical request and returns the raw body text.
func (c *Client) Send(ctx context.Context, method, url string, headers, params map[string]string, body string) (string, error) {
	fullURL := helpers.AppendQuery(url, params)
	req := &models.MRequest{
		Method:  method,
		URL:     fullURL,
		Headers: WithDefaultUserAgent(headers, c.UserAgent),
		Body:    body,
	}

	// Errors and logs carry the URL without the crumb.
	errURL := helpers.Redact(fullURL)

	var text string
	err := c.Retry.Do(ctx, errURL, func(ctx context.Context) error {
		resp, err := c.Transport.Do(ctx, req)
		if err != nil {
			return err
		}

		// Cookies count even when the server says no; the seed endpoint
		// routinely answers 404 while setting the session cookie.
		c.addCookies(resp.Cookies)

		if resp.StatusCode >= 400 {
			c.Logger.Debug("%s %s -> %d", method, errURL, resp.StatusCode)
			return helpers.NewHttpStatusError(errURL, resp.StatusCode)
		}

		text = resp.Body
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// -----------------------------------------------------------------------------

func (c *Client) GetText(ctx context.Context, url string, headers, params map[string]string) (string, error) {
	return c.Send(ctx, http.MethodGet, url, headers, params, "")
}

// -----------------------------------------------------------------------------

func (c *Client) GetJSON(ctx context.Context, url string, headers, params map[string]string) (extract.Node, error) {
	text, err := c.GetText(ctx, url, headers, params)
	if err != nil {
		return extract.Empty(), err
	}
	return parseJSONBody(helpers.Redact(helpers.AppendQuery(url, params)), text)
}

// -----------------------------------------------------------------------------

func (c *Client) PostJSON(ctx context.Context, url string, body string, headers map[string]string) (extract.Node, error) {
	if _, ok := lookupHeader(headers, "Content-Type"); !ok {
		headers = copyHeaders(headers)
		headers["Content-Type"] = "application/json"
	}

	text, err := c.Send(ctx, http.MethodPost, url, headers, nil, body)
	if err != nil {
		return extract.Empty(), err
	}
	return parseJSONBody(url, text)
}

// -----------------------------------------------------------------------------

// Cookies returns every cookie pair seen so far joined by "; ".
func (c *Client) Cookies() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.cookies, "; ")
}

// -----------------------------------------------------------------------------

// SetCookies replaces the accumulated cookie string.
func (c *Client) SetCookies(cookies string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cookies = c.cookies[:0]
	for _, pair := range strings.Split(cookies, ";") {
		if pair = strings.TrimSpace(pair); pair != "" {
			c.cookies = append(c.cookies, pair)
		}
	}
}

// -----------------------------------------------------------------------------

func (c *Client) addCookies(pairs []string) {
	if len(pairs) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, pair := range pairs {
		if !strings.Contains(pair, "=") {
			continue
		}
		seen := false
		for _, existing := range c.cookies {
			if existing == pair {
				seen = true
				break
			}
		}
		if !seen {
			c.cookies = append(c.cookies, pair)
		}
	}
}

// -----------------------------------------------------------------------------

func parseJSONBody(url, text string) (extract.Node, error) {
	if text == "" {
		return extract.Empty(), helpers.NewEmptyResponseError(url)
	}

	node, err := extract.Parse([]byte(text))
	if err != nil {
		return extract.Empty(), helpers.NewResponseParseError(url, err)
	}
	return node, nil
}

// -----------------------------------------------------------------------------

// NewTransport picks a backend by name. Empty selects net/http.
func NewTransport(cfg models.MNetworkConfig) (interfaces.ITransport, error) {
	var (
		t   interfaces.ITransport
		err error
	)

	switch strings.ToLower(cfg.Backend) {
	case "", "http":
		t, err = NewHTTPBackend(cfg)
	case "resty":
		t, err = NewRestyBackend(cfg)
	default:
		return nil, fmt.Errorf("unknown network backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	register(t)
	return t, nil
}

// -----------------------------------------------------------------------------

func requestTimeout(cfg models.MNetworkConfig) time.Duration {
	seconds := cfg.RequestTimeout
	if seconds <= 0 {
		seconds = DefaultTimeout
	}
	return time.Duration(seconds) * time.Second
}
