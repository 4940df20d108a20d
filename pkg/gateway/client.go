package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/henriqueponts/labstore-sub002/pkg/config"
	pkgerrors "github.com/henriqueponts/labstore-sub002/pkg/errors"
	"github.com/henriqueponts/labstore-sub002/pkg/logger"
)

const linksPath = "/v1/payment-links"

// Client talks to the hosted payment-link provider.
type Client struct {
	http *resty.Client
	logg *logger.Logger
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewClient builds a gateway client with bearer auth and the configured timeout.
func NewClient(cfg config.GatewayConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("gateway base url is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gateway api key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: httpClient, logg: logg}, nil
}

// CreateLink registers a hosted payment link. Transport failures and non-2xx
// responses surface as DEPENDENCY_ERROR.
func (c *Client) CreateLink(ctx context.Context, req LinkRequest) (*Link, error) {
	if len(req.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment link requires at least one item")
	}

	var link Link
	var failure apiError
	r := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&link).
		SetError(&failure)
	if req.IdempotencyKey != "" {
		r.SetHeader("Idempotency-Key", req.IdempotencyKey)
	}

	started := time.Now()
	resp, err := r.Post(linksPath)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment gateway unavailable")
	}
	c.logRequest(ctx, resp.StatusCode(), time.Since(started), len(req.Items))

	if resp.IsError() {
		msg := failure.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway rejected link").
			WithDetails(map[string]any{"status": resp.StatusCode(), "gateway_code": failure.Code, "gateway_message": msg})
	}
	if link.ID == "" || link.URL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("payment gateway returned incomplete link (status %d)", resp.StatusCode()))
	}
	return &link, nil
}

// logRequest records the call without the request body, which carries the
// payer's document.
func (c *Client) logRequest(ctx context.Context, status int, elapsed time.Duration, items int) {
	if c.logg == nil {
		return
	}
	c.logg.Info(c.logg.WithFields(ctx, map[string]any{
		"gateway_status": status,
		"elapsed_ms":     elapsed.Milliseconds(),
		"item_count":     items,
	}), "payment link requested")
}
