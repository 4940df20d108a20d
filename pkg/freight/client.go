// Package freight quotes carrier rates for a parcel set.
package freight

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/henriqueponts/labstore-sub002/pkg/config"
	pkgerrors "github.com/henriqueponts/labstore-sub002/pkg/errors"
	"github.com/henriqueponts/labstore-sub002/pkg/types"
)

const quotePath = "/v1/quotes"

// Parcel is one package to ship.
type Parcel struct {
	WeightGrams int `json:"weight_grams"`
	LengthCM    int `json:"length_cm"`
	WidthCM     int `json:"width_cm"`
	HeightCM    int `json:"height_cm"`
	Quantity    int `json:"quantity"`
	// InsuredCents is the declared value of the parcel.
	InsuredCents int64 `json:"insured_cents"`
}

// QuoteRequest asks for every carrier option between two postal codes.
type QuoteRequest struct {
	OriginPostalCode      string   `json:"origin_postal_code"`
	DestinationPostalCode string   `json:"destination_postal_code"`
	Parcels               []Parcel `json:"parcels"`
}

// Option is a selectable carrier service.
type Option struct {
	Carrier      string `json:"carrier"`
	Service      string `json:"service"`
	PriceCents   int64  `json:"price_cents"`
	LeadTimeDays int    `json:"lead_time_days"`
}

type wireOption struct {
	Carrier      string          `json:"carrier"`
	Service      string          `json:"service"`
	Price        decimal.Decimal `json:"price"`
	LeadTimeDays int             `json:"lead_time_days"`
	Error        string          `json:"error,omitempty"`
}

type wireResponse struct {
	Options []wireOption `json:"options"`
}

// Client calls the carrier-rate aggregator.
type Client struct {
	http *resty.Client
}

// NewClient builds a freight client from config.
func NewClient(cfg config.FreightConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("freight base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		httpClient.SetAuthToken(cfg.Token)
	}
	return &Client{http: httpClient}, nil
}

// Quote returns the available options sorted by price. Carrier entries that
// report an error are dropped.
func (c *Client) Quote(ctx context.Context, req QuoteRequest) ([]Option, error) {
	if types.NormalizePostalCode(req.DestinationPostalCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination postal code is required")
	}
	if len(req.Parcels) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one parcel is required")
	}
	req.OriginPostalCode = types.NormalizePostalCode(req.OriginPostalCode)
	req.DestinationPostalCode = types.NormalizePostalCode(req.DestinationPostalCode)

	var body wireResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&body).
		Post(quotePath)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "freight service unavailable")
	}
	if resp.IsError() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "freight service rejected quote").
			WithDetails(map[string]any{"status": resp.StatusCode(), "reason": http.StatusText(resp.StatusCode())})
	}

	options := make([]Option, 0, len(body.Options))
	for _, o := range body.Options {
		if o.Error != "" || o.Carrier == "" || o.Service == "" {
			continue
		}
		options = append(options, Option{
			Carrier:      o.Carrier,
			Service:      o.Service,
			PriceCents:   o.Price.Shift(2).Round(0).IntPart(),
			LeadTimeDays: o.LeadTimeDays,
		})
	}
	sort.SliceStable(options, func(i, j int) bool { return options[i].PriceCents < options[j].PriceCents })
	return options, nil
}

// Select finds the option for the carrier and service, ignoring case.
func Select(options []Option, carrier, service string) (Option, bool) {
	for _, o := range options {
		if strings.EqualFold(o.Carrier, strings.TrimSpace(carrier)) && strings.EqualFold(o.Service, strings.TrimSpace(service)) {
			return o, true
		}
	}
	return Option{}, false
}
