package network

import (
	"context"
	"io"
	"net/http"
	"strings"

	"yfinance-go/src/helpers"
	"yfinance-go/src/models"
)

// HTTPBackend is the net/http transport.
type HTTPBackend struct {
	client *http.Client
	jar    http.CookieJar
}

// -----------------------------------------------------------------------------

func NewHTTPBackend(cfg models.MNetworkConfig) (*HTTPBackend, error) {
	jar, err := newCookieJar()
	if err != nil {
		return nil, err
	}

	transport := baseTransport().Clone()
	if cfg.Proxy != "" {
		proxyURL, err := helpers.ParseProxy(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &HTTPBackend{
		client: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout(cfg),
			Jar:       jar,
		},
		jar: jar,
	}, nil
}

// -----------------------------------------------------------------------------

func (b *HTTPBackend) Do(ctx context.Context, req *models.MRequest) (*models.MResponse, error) {
	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, helpers.NewTransportError(helpers.Redact(req.URL), err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, helpers.NewTransportError(helpers.Redact(req.URL), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, helpers.NewTransportError(helpers.Redact(req.URL), err)
	}

	decoded, err := decodeBody(resp.Header.Get("Content-Encoding"), raw)
	if err != nil {
		return nil, helpers.NewTransportError(helpers.Redact(req.URL), err)
	}

	return &models.MResponse{
		StatusCode: resp.StatusCode,
		Body:       string(decoded),
		Cookies:    cookiePairs(resp.Cookies(), b.jar, resp.Request.URL),
	}, nil
}

// -----------------------------------------------------------------------------

func (b *HTTPBackend) CloseIdleConnections() {
	b.client.CloseIdleConnections()
}
