package poller

import (
	"net/http"

	"p2pradar/config"
	"p2pradar/gateway"
	"p2pradar/market"
)

// SourcesFromConfig expands the source configuration into one fetch spec per
// (venue, side) pair. All sources share the given HTTP client and limiter.
func SourcesFromConfig(cfg config.SourcesConfig, client *http.Client, limiter gateway.RateLimiter) ([]SourceSpec, error) {
	var specs []SourceSpec

	if cfg.Bybit.Enabled {
		src := &gateway.BybitSource{
			BaseURL:    cfg.Bybit.BaseURL,
			Asset:      cfg.Asset,
			Fiat:       cfg.Fiat,
			MaxPages:   cfg.Bybit.MaxPages,
			HTTPClient: client,
			Limiter:    limiter,
		}
		for _, raw := range cfg.Bybit.Sides {
			side, err := market.ParseSide(raw)
			if err != nil {
				return nil, err
			}
			specs = append(specs, SourceSpec{Source: src, Side: side})
		}
	}

	if cfg.P2PArmy.Enabled {
		for _, rawMarket := range cfg.P2PArmy.Markets {
			venue, err := market.ParseExchange(rawMarket)
			if err != nil {
				return nil, err
			}
			src := &gateway.P2PArmySource{
				BaseURL:    cfg.P2PArmy.BaseURL,
				APIKey:     cfg.P2PArmy.APIKey,
				Market:     venue,
				Asset:      cfg.Asset,
				Fiat:       cfg.Fiat,
				Limit:      cfg.P2PArmy.Limit,
				HTTPClient: client,
				Limiter:    limiter,
			}
			for _, raw := range cfg.P2PArmy.Sides {
				side, err := market.ParseSide(raw)
				if err != nil {
					return nil, err
				}
				specs = append(specs, SourceSpec{Source: src, Side: side})
			}
		}
	}
	return specs, nil
}
