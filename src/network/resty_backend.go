package network

import (
	"context"

	"github.com/go-resty/resty/v2"

	"yfinance-go/src/helpers"
	"yfinance-go/src/models"
)

// RestyBackend is the go-resty transport. Resty's own retry stays off; the
// client's RetryPolicy is the only one that runs.
type RestyBackend struct {
	client *resty.Client
}

// -----------------------------------------------------------------------------

func NewRestyBackend(cfg models.MNetworkConfig) (*RestyBackend, error) {
	jar, err := newCookieJar()
	if err != nil {
		return nil, err
	}

	client := resty.New().
		SetTimeout(requestTimeout(cfg)).
		SetCookieJar(jar).
		SetRetryCount(0)

	if cfg.Proxy != "" {
		if _, err := helpers.ParseProxy(cfg.Proxy); err != nil {
			return nil, err
		}
		client.SetProxy(helpers.FormatProxy(cfg.Proxy))
	}

	client.OnAfterResponse(DecompressMiddleware)

	return &RestyBackend{client: client}, nil
}

// -----------------------------------------------------------------------------

func (b *RestyBackend) Do(ctx context.Context, req *models.MRequest) (*models.MResponse, error) {
	r := b.client.R().
		SetContext(ctx).
		SetHeaders(req.Headers)
	if req.Body != "" {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return nil, helpers.NewTransportError(helpers.Redact(req.URL), err)
	}

	out := &models.MResponse{
		StatusCode: resp.StatusCode(),
		Body:       string(resp.Body()),
	}
	if raw := resp.RawResponse; raw != nil && raw.Request != nil {
		out.Cookies = cookiePairs(resp.Cookies(), b.client.GetClient().Jar, raw.Request.URL)
	} else {
		out.Cookies = cookiePairs(resp.Cookies(), nil, nil)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (b *RestyBackend) CloseIdleConnections() {
	b.client.GetClient().CloseIdleConnections()
}
