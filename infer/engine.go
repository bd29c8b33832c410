// Package infer synthesizes a trade log from inventory deltas between
// consecutive order-book polls. None of the upstream venues expose a trade
// feed, so this is a best-effort approximation: only inventory drops inside
// the dust/whale band are a defensible proxy for "a trade happened", and
// consumers must treat the output as approximate.
package infer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"p2pradar/ledger"
	"p2pradar/market"
	"p2pradar/snapshot"
)

// Config holds the noise band for delta classification.
type Config struct {
	// DustThreshold is the largest delta still ignored as polling noise.
	// A delta of exactly this value is excluded.
	DustThreshold float64
	// WhaleCeiling is the smallest delta treated as ad churn rather than an
	// organic trade. A delta at or above it is excluded.
	WhaleCeiling float64
}

// DefaultConfig returns deployment defaults for the noise band.
func DefaultConfig() Config {
	return Config{DustThreshold: 5, WhaleCeiling: 10000}
}

func (c Config) Validate() error {
	if c.DustThreshold < 0 {
		return errors.New("dustThreshold must be >= 0")
	}
	if c.WhaleCeiling <= c.DustThreshold {
		return fmt.Errorf("whaleCeiling %v must exceed dustThreshold %v", c.WhaleCeiling, c.DustThreshold)
	}
	return nil
}

// Engine diffs a poll against the previous snapshot and classifies each
// meaningful inventory drop as a trade. The noise band is guarded because
// hot reload swaps it from another goroutine.
type Engine struct {
	mu  sync.Mutex
	cfg Config
	id  market.IdentityStrategy
}

// New builds an engine. A nil identity strategy falls back to the composite
// (exchange, advertiser, price) heuristic.
func New(cfg Config, id market.IdentityStrategy) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if id == nil {
		id = market.CompositeIdentity{}
	}
	return &Engine{cfg: cfg, id: id}, nil
}

// SetThresholds swaps the noise band, used by config hot reload. Invalid
// values are rejected and the current band kept.
func (e *Engine) SetThresholds(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
	return nil
}

// Infer compares the current ads against the previous snapshot.
//
// Classification per matched key, delta = previous - current:
//   - delta <= dust threshold: polling noise (rounding, micro-adjustments)
//   - delta < 0: restock, never a trade
//   - delta >= whale ceiling: probable ad removal/re-listing, not a fill
//   - otherwise: one TradeEvent with volume = delta
//
// Unmatched current ads seed future diffs once the snapshot is saved. Ads
// that vanished since the previous poll are dropped: cancellation and
// complete fill are indistinguishable here, and guessing fabricates volume.
// An empty previous snapshot (first run or staleness-expired) yields an
// empty result without error.
func (e *Engine) Infer(now time.Time, ads []market.MarketAd, prev snapshot.Snapshot) []ledger.TradeEvent {
	if prev.Empty() {
		return nil
	}
	e.mu.Lock()
	cfg := e.cfg
	e.mu.Unlock()

	var events []ledger.TradeEvent
	for _, ad := range ads {
		prevAmount, ok := prev.Amounts[e.id.KeyOf(ad)]
		if !ok {
			continue
		}
		delta := prevAmount - ad.Available
		if delta <= cfg.DustThreshold {
			continue
		}
		if delta >= cfg.WhaleCeiling {
			continue
		}
		events = append(events, ledger.TradeEvent{
			ID:        uuid.NewString(),
			Time:      now,
			Exchange:  ad.Exchange,
			Direction: counterpartyDirection(ad.Side),
			Price:     ad.Price,
			Volume:    delta,
		})
	}
	return events
}

// counterpartyDirection flips the advertiser's side: someone buying from a
// Sell ad executed a buy.
func counterpartyDirection(side market.Side) ledger.Direction {
	if side == market.Sell {
		return ledger.DirectionBuy
	}
	return ledger.DirectionSell
}
