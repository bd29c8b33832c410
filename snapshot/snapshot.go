// Package snapshot persists the per-ad inventories of the most recent poll so
// the next cycle can diff against them.
package snapshot

import (
	"context"
	"time"

	"p2pradar/market"
)

// Snapshot maps composite ad identities to the inventory observed at Taken.
// A zero-value Snapshot means "nothing to diff against".
type Snapshot struct {
	Taken   time.Time
	Amounts map[market.Key]float64
}

// Empty reports whether the snapshot carries no baseline.
func (s Snapshot) Empty() bool {
	return len(s.Amounts) == 0
}

// Capture builds a snapshot from one poll's ads. When two ads collide on the
// same key the larger inventory wins, so a later partial listing cannot fake
// a drop.
func Capture(ads []market.MarketAd, id market.IdentityStrategy, ts time.Time) Snapshot {
	if id == nil {
		id = market.CompositeIdentity{}
	}
	amounts := make(map[market.Key]float64, len(ads))
	for _, ad := range ads {
		key := id.KeyOf(ad)
		if prev, ok := amounts[key]; !ok || ad.Available > prev {
			amounts[key] = ad.Available
		}
	}
	return Snapshot{Taken: ts, Amounts: amounts}
}

// Store persists snapshots with full-overwrite semantics. Load returns an
// empty snapshot when nothing usable is stored; a partial Save must never be
// visible to a later Load.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, ads []market.MarketAd, ts time.Time) error
}
