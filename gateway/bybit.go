package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"

	"p2pradar/market"
	"p2pradar/metrics"
)

// BybitSource pages through Bybit's fiat OTC order book. Bybit exposes no
// official public endpoint for this; the web client's API is used with its
// expected Referer.
type BybitSource struct {
	BaseURL    string
	Asset      string
	Fiat       string
	PageSize   int
	MaxPages   int
	HTTPClient *http.Client
	Limiter    RateLimiter
}

type bybitRequest struct {
	UserID     string   `json:"userId"`
	TokenID    string   `json:"tokenId"`
	CurrencyID string   `json:"currencyId"`
	Payment    []string `json:"payment"`
	Side       string   `json:"side"`
	Size       string   `json:"size"`
	Page       string   `json:"page"`
	AuthMaker  bool     `json:"authMaker"`
}

func (s *BybitSource) Venue() market.Exchange { return market.Bybit }

func (s *BybitSource) limiter() RateLimiter {
	if s.Limiter != nil {
		return s.Limiter
	}
	return nopLimiter{}
}

// Fetch walks pages until one comes back empty or the page cap is reached.
// A failed page ends the walk with whatever was collected so far.
func (s *BybitSource) Fetch(ctx context.Context, side market.Side) ([]market.MarketAd, error) {
	if s.HTTPClient == nil {
		return nil, fmt.Errorf("bybit: http client not set")
	}
	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	maxPages := s.MaxPages
	if maxPages <= 0 {
		maxPages = 5
	}

	var ads []market.MarketAd
	for page := 1; page <= maxPages; page++ {
		if err := s.limiter().Wait(ctx); err != nil {
			return ads, err
		}
		body, err := json.Marshal(bybitRequest{
			TokenID:    s.Asset,
			CurrencyID: s.Fiat,
			Payment:    []string{},
			Side:       bybitSideCode(side),
			Size:       strconv.Itoa(pageSize),
			Page:       strconv.Itoa(page),
		})
		if err != nil {
			return ads, fmt.Errorf("bybit: marshal request: %w", err)
		}
		payload, err := postJSON(ctx, s.HTTPClient, s.BaseURL+"/fiat/otc/item/online", body, map[string]string{
			"Referer": "https://www.bybit.com/",
		})
		if err != nil {
			if len(ads) > 0 {
				return ads, nil
			}
			return nil, fmt.Errorf("bybit: page %d: %w", page, err)
		}
		pageAds, dropped := market.ParseAds(payload, market.Bybit, side)
		metrics.AdsDropped.Add(float64(dropped))
		if len(pageAds) == 0 {
			break
		}
		ads = append(ads, pageAds...)
	}
	return ads, nil
}

// bybitSideCode maps the normalized side onto Bybit's wire encoding:
// "1" lists merchants selling the asset, "0" merchants buying it.
func bybitSideCode(side market.Side) string {
	if side == market.Sell {
		return "1"
	}
	return "0"
}
