package gateway

import (
	"context"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"

	"p2pradar/market"
	"p2pradar/metrics"
)

// P2PArmySource reads one venue's order book through the p2p.army aggregator
// API. The same adapter serves every venue the aggregator mirrors; Market
// selects which one.
type P2PArmySource struct {
	BaseURL    string
	APIKey     string
	Market     market.Exchange
	Asset      string
	Fiat       string
	Limit      int
	HTTPClient *http.Client
	Limiter    RateLimiter
}

type p2pArmyRequest struct {
	Market string `json:"market"`
	Fiat   string `json:"fiat"`
	Asset  string `json:"asset"`
	Side   string `json:"side"`
	Limit  int    `json:"limit"`
}

func (s *P2PArmySource) Venue() market.Exchange { return s.Market }

func (s *P2PArmySource) Fetch(ctx context.Context, side market.Side) ([]market.MarketAd, error) {
	if s.HTTPClient == nil {
		return nil, fmt.Errorf("p2p.army: http client not set")
	}
	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	limit := s.Limit
	if limit <= 0 {
		limit = 100
	}
	body, err := json.Marshal(p2pArmyRequest{
		Market: string(s.Market),
		Fiat:   s.Fiat,
		Asset:  s.Asset,
		Side:   string(side),
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("p2p.army: marshal request: %w", err)
	}
	payload, err := postJSON(ctx, s.HTTPClient, s.BaseURL+"/v1/api/get_p2p_order_book", body, map[string]string{
		"X-APIKEY": s.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("p2p.army: %s: %w", s.Market, err)
	}
	ads, dropped := market.ParseAds(payload, s.Market, side)
	metrics.AdsDropped.Add(float64(dropped))
	return ads, nil
}
