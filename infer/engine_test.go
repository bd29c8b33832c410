package infer

import (
	"testing"
	"time"

	"p2pradar/ledger"
	"p2pradar/market"
	"p2pradar/snapshot"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Config{DustThreshold: 5, WhaleCeiling: 10000}, nil)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return e
}

func prevWith(amount float64) snapshot.Snapshot {
	return snapshot.Snapshot{
		Taken: time.Now().Add(-5 * time.Minute),
		Amounts: map[market.Key]float64{
			{Exchange: market.Binance, Advertiser: "adv1", Price: 130}: amount,
		},
	}
}

func sellAd(available float64) market.MarketAd {
	return market.MarketAd{
		Exchange:     market.Binance,
		Side:         market.Sell,
		AdvertiserID: "adv1",
		Price:        130,
		Available:    available,
	}
}

func TestInferQualifyingDelta(t *testing.T) {
	e := newEngine(t)
	now := time.Now()
	events := e.Infer(now, []market.MarketAd{sellAd(480)}, prevWith(500))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Direction != ledger.DirectionBuy {
		t.Fatalf("sell ad shrink is a counterparty buy, got %s", ev.Direction)
	}
	if ev.Price != 130 || ev.Volume != 20 || ev.Exchange != market.Binance {
		t.Fatalf("unexpected event %+v", ev)
	}
	if !ev.Time.Equal(now) || ev.ID == "" {
		t.Fatalf("event must carry cycle time and id: %+v", ev)
	}
}

func TestInferBuySideDirection(t *testing.T) {
	e := newEngine(t)
	ad := sellAd(480)
	ad.Side = market.Buy
	events := e.Infer(time.Now(), []market.MarketAd{ad}, prevWith(500))
	if len(events) != 1 || events[0].Direction != ledger.DirectionSell {
		t.Fatalf("buy ad shrink is a counterparty sell, got %+v", events)
	}
}

func TestInferDustBoundary(t *testing.T) {
	e := newEngine(t)
	// delta 5 is exactly the dust threshold: excluded.
	if events := e.Infer(time.Now(), []market.MarketAd{sellAd(495)}, prevWith(500)); len(events) != 0 {
		t.Fatalf("delta at dust threshold must be ignored: %+v", events)
	}
	// delta 6 clears the threshold: included.
	events := e.Infer(time.Now(), []market.MarketAd{sellAd(494)}, prevWith(500))
	if len(events) != 1 || events[0].Volume != 6 {
		t.Fatalf("delta just above dust must qualify: %+v", events)
	}
}

func TestInferWhaleBoundary(t *testing.T) {
	e := newEngine(t)
	// delta exactly at the ceiling: excluded.
	if events := e.Infer(time.Now(), []market.MarketAd{sellAd(0)}, prevWith(10000)); len(events) != 0 {
		t.Fatalf("delta at whale ceiling must be ignored: %+v", events)
	}
	if events := e.Infer(time.Now(), []market.MarketAd{sellAd(0)}, prevWith(50000)); len(events) != 0 {
		t.Fatalf("delta above whale ceiling must be ignored: %+v", events)
	}
	events := e.Infer(time.Now(), []market.MarketAd{sellAd(0.5)}, prevWith(10000))
	if len(events) != 1 {
		t.Fatalf("delta just under the ceiling must qualify: %+v", events)
	}
	// Direction does not rescue a whale delta.
	ad := sellAd(0)
	ad.Side = market.Buy
	if events := e.Infer(time.Now(), []market.MarketAd{ad}, prevWith(20000)); len(events) != 0 {
		t.Fatalf("whale exclusion is side-independent: %+v", events)
	}
}

func TestInferRestockNeverTrades(t *testing.T) {
	e := newEngine(t)
	for _, restocked := range []float64{501, 600, 99999} {
		if events := e.Infer(time.Now(), []market.MarketAd{sellAd(restocked)}, prevWith(500)); len(events) != 0 {
			t.Fatalf("restock to %v produced events: %+v", restocked, events)
		}
	}
}

func TestInferUnmatchedAdIgnored(t *testing.T) {
	e := newEngine(t)
	// Different advertiser and a re-priced ad: both miss the snapshot key.
	other := market.MarketAd{Exchange: market.Binance, Side: market.Sell, AdvertiserID: "adv2", Price: 130, Available: 100}
	repriced := market.MarketAd{Exchange: market.Binance, Side: market.Sell, AdvertiserID: "adv1", Price: 131, Available: 100}
	if events := e.Infer(time.Now(), []market.MarketAd{other, repriced}, prevWith(500)); len(events) != 0 {
		t.Fatalf("unmatched ads must not produce events: %+v", events)
	}
}

func TestInferDisappearanceNotAFill(t *testing.T) {
	e := newEngine(t)
	// The tracked ad is gone from the current poll entirely.
	if events := e.Infer(time.Now(), nil, prevWith(500)); len(events) != 0 {
		t.Fatalf("ad disappearance must not be inferred as a fill: %+v", events)
	}
}

func TestInferEmptySnapshot(t *testing.T) {
	e := newEngine(t)
	events := e.Infer(time.Now(), []market.MarketAd{sellAd(480)}, snapshot.Snapshot{})
	if events != nil {
		t.Fatalf("first run must return no events: %+v", events)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{DustThreshold: -1, WhaleCeiling: 100}).Validate(); err == nil {
		t.Fatalf("negative dust must fail")
	}
	if err := (Config{DustThreshold: 10, WhaleCeiling: 10}).Validate(); err == nil {
		t.Fatalf("ceiling must exceed dust")
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestSetThresholds(t *testing.T) {
	e := newEngine(t)
	if err := e.SetThresholds(Config{DustThreshold: 10, WhaleCeiling: 5}); err == nil {
		t.Fatalf("invalid reload must be rejected")
	}
	if err := e.SetThresholds(Config{DustThreshold: 0, WhaleCeiling: 20000}); err != nil {
		t.Fatalf("valid reload rejected: %v", err)
	}
	events := e.Infer(time.Now(), []market.MarketAd{sellAd(499)}, prevWith(500))
	if len(events) != 1 {
		t.Fatalf("reloaded dust threshold not applied: %+v", events)
	}
}
