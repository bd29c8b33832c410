package config

import (
	"errors"
	"fmt"

	"p2pradar/market"
)

// Validate ensures required fields are present and bounds are sane.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Poll.IntervalSec < 0 {
		return errors.New("poll.intervalSec must be >= 0")
	}
	if cfg.Poll.Workers <= 0 {
		return errors.New("poll.workers must be > 0")
	}
	if cfg.Poll.RequestTimeoutSec <= 0 {
		return errors.New("poll.requestTimeoutSec must be > 0")
	}

	if cfg.Sources.Asset == "" || cfg.Sources.Fiat == "" {
		return errors.New("sources.asset and sources.fiat are required")
	}
	if !cfg.Sources.Bybit.Enabled && !cfg.Sources.P2PArmy.Enabled {
		return errors.New("at least one source must be enabled")
	}
	if cfg.Sources.Bybit.Enabled {
		if cfg.Sources.Bybit.BaseURL == "" {
			return errors.New("sources.bybit.baseURL is required")
		}
		if err := validSides(cfg.Sources.Bybit.Sides); err != nil {
			return fmt.Errorf("sources.bybit: %w", err)
		}
	}
	if cfg.Sources.P2PArmy.Enabled {
		if cfg.Sources.P2PArmy.BaseURL == "" {
			return errors.New("sources.p2pArmy.baseURL is required")
		}
		if cfg.Sources.P2PArmy.APIKey == "" {
			return errors.New("sources.p2pArmy.apiKey is required (or RADAR_P2P_ARMY_KEY)")
		}
		if len(cfg.Sources.P2PArmy.Markets) == 0 {
			return errors.New("sources.p2pArmy.markets is required")
		}
		for _, m := range cfg.Sources.P2PArmy.Markets {
			if _, err := market.ParseExchange(m); err != nil {
				return fmt.Errorf("sources.p2pArmy: %w", err)
			}
		}
		if err := validSides(cfg.Sources.P2PArmy.Sides); err != nil {
			return fmt.Errorf("sources.p2pArmy: %w", err)
		}
	}

	if cfg.Filter.BandMin < 0 || cfg.Filter.BandMax <= cfg.Filter.BandMin {
		return errors.New("filter band must satisfy 0 <= bandMin < bandMax")
	}
	if cfg.Filter.ScamFactor < 0 || cfg.Filter.ScamFactor >= 1 {
		return errors.New("filter.scamFactor must be in [0, 1)")
	}

	if cfg.Engine.DustThreshold < 0 {
		return errors.New("engine.dustThreshold must be >= 0")
	}
	if cfg.Engine.WhaleCeiling <= cfg.Engine.DustThreshold {
		return errors.New("engine.whaleCeiling must exceed engine.dustThreshold")
	}

	switch cfg.Snapshot.Backend {
	case "file":
		if cfg.Snapshot.Path == "" {
			return errors.New("snapshot.path is required for the file backend")
		}
	case "redis":
		if cfg.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis snapshot backend")
		}
	default:
		return fmt.Errorf("unknown snapshot backend %q", cfg.Snapshot.Backend)
	}
	if cfg.Snapshot.StalenessMin <= 0 {
		return errors.New("snapshot.stalenessMin must be > 0")
	}

	switch cfg.Ledger.Backend {
	case "memory":
	case "file":
		if cfg.Ledger.Path == "" {
			return errors.New("ledger.path is required for the file backend")
		}
	case "redis":
		if cfg.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis ledger backend")
		}
	default:
		return fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
	if cfg.Ledger.RetentionMin < 15 || cfg.Ledger.RetentionMin > 24*60 {
		return errors.New("ledger.retentionMin must be between 15 minutes and 24 hours")
	}
	return nil
}

func validSides(sides []string) error {
	if len(sides) == 0 {
		return errors.New("sides is required")
	}
	for _, s := range sides {
		if _, err := market.ParseSide(s); err != nil {
			return err
		}
	}
	return nil
}
