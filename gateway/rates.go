package gateway

import (
	"context"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
)

// RateProvider fetches the official reference rate for the quote currency
// (units per USD) from an exchange-rate API.
type RateProvider struct {
	BaseURL    string
	Quote      string
	HTTPClient *http.Client
}

type officialRateResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// OfficialRate returns the official quote-per-USD rate. Callers treat a
// failure as "no official rate this cycle" (zero), never as fatal.
func (r *RateProvider) OfficialRate(ctx context.Context) (float64, error) {
	if r.HTTPClient == nil {
		return 0, fmt.Errorf("official rate: http client not set")
	}
	payload, err := getJSON(ctx, r.HTTPClient, r.BaseURL+"/v6/latest/USD")
	if err != nil {
		return 0, fmt.Errorf("official rate: %w", err)
	}
	var resp officialRateResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return 0, fmt.Errorf("official rate: decode: %w", err)
	}
	rate, ok := resp.Rates[r.Quote]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("official rate: %s missing from response", r.Quote)
	}
	return rate, nil
}

// PegProvider fetches the USDT/USD peg used to convert quoted prices onto a
// true USD basis before filtering and aggregation.
type PegProvider struct {
	BaseURL    string
	HTTPClient *http.Client
}

type pegResponse struct {
	Tether struct {
		USD float64 `json:"usd"`
	} `json:"tether"`
}

// UsdtPeg returns the current peg, or the neutral 1.0 on any failure so the
// pipeline still produces output.
func (p *PegProvider) UsdtPeg(ctx context.Context) float64 {
	if p.HTTPClient == nil {
		return 1.0
	}
	payload, err := getJSON(ctx, p.HTTPClient, p.BaseURL+"/api/v3/simple/price?ids=tether&vs_currencies=usd")
	if err != nil {
		return 1.0
	}
	var resp pegResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return 1.0
	}
	if resp.Tether.USD <= 0 {
		return 1.0
	}
	return resp.Tether.USD
}
