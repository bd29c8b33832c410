package poller

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"p2pradar/infer"
	"p2pradar/ledger"
	"p2pradar/market"
	"p2pradar/snapshot"
)

type stubSource struct {
	venue market.Exchange
	ads   []market.MarketAd
	err   error
	calls int
}

func (s *stubSource) Venue() market.Exchange { return s.venue }

func (s *stubSource) Fetch(ctx context.Context, side market.Side) ([]market.MarketAd, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.ads, nil
}

type stubOfficial struct{ rate float64 }

func (s stubOfficial) OfficialRate(ctx context.Context) (float64, error) {
	if s.rate <= 0 {
		return 0, errors.New("feed down")
	}
	return s.rate, nil
}

type stubPeg struct{ peg float64 }

func (s stubPeg) UsdtPeg(ctx context.Context) float64 { return s.peg }

func sellAd(advertiser string, price, available float64) market.MarketAd {
	return market.MarketAd{
		Exchange:     market.Binance,
		Side:         market.Sell,
		AdvertiserID: advertiser,
		Price:        price,
		Available:    available,
	}
}

func newPoller(t *testing.T, src *stubSource) *Poller {
	t.Helper()
	engine, err := infer.New(infer.Config{DustThreshold: 5, WhaleCeiling: 10000}, nil)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return New(Options{
		Sources:    []SourceSpec{{Source: src, Side: market.Sell}},
		Official:   stubOfficial{rate: 120},
		Peg:        stubPeg{peg: 1.0},
		Filter:     market.Filter{Band: market.Band{Min: 10, Max: 500}},
		ScamFactor: 0.90,
		TopOffers:  15,
		Engine:     engine,
		Store:      &snapshot.FileStore{Path: filepath.Join(t.TempDir(), "snapshot.json")},
		Ledger:     ledger.New(context.Background(), time.Hour, nil),
		Workers:    4,
	})
}

func TestCycleInfersTradesAcrossPolls(t *testing.T) {
	src := &stubSource{venue: market.Binance, ads: []market.MarketAd{
		sellAd("adv1", 130, 500),
		sellAd("adv2", 131, 300),
	}}
	p := newPoller(t, src)

	first, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if len(first.Trades) != 0 {
		t.Fatalf("first run has nothing to diff against: %+v", first.Trades)
	}
	if first.Stats == nil || first.Stats.SampleCount != 2 {
		t.Fatalf("stats missing: %+v", first.Stats)
	}

	// adv1 sold 20 units since the last poll.
	src.ads = []market.MarketAd{
		sellAd("adv1", 130, 480),
		sellAd("adv2", 131, 300),
	}
	second, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if len(second.Trades) != 1 {
		t.Fatalf("expected 1 inferred trade, got %+v", second.Trades)
	}
	ev := second.Trades[0]
	if ev.Direction != ledger.DirectionBuy || ev.Price != 130 || ev.Volume != 20 {
		t.Fatalf("unexpected trade %+v", ev)
	}
	if recent := p.opts.Ledger.Recent(time.Hour); len(recent) != 1 {
		t.Fatalf("trade not appended to ledger: %+v", recent)
	}
}

func TestCyclePremium(t *testing.T) {
	src := &stubSource{venue: market.Binance, ads: []market.MarketAd{
		sellAd("a", 130, 10),
		sellAd("b", 134, 10),
	}}
	p := newPoller(t, src)
	res, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	// median 132 over official 120 -> +10%
	if res.Premium < 9.99 || res.Premium > 10.01 {
		t.Fatalf("premium got %f", res.Premium)
	}
	if len(res.Offers) == 0 {
		t.Fatalf("offer feed missing")
	}
}

func TestCycleDegradesOnSourceFailure(t *testing.T) {
	src := &stubSource{venue: market.Binance, err: errors.New("network down")}
	p := newPoller(t, src)
	res, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("source failure must not fail the cycle: %v", err)
	}
	if res.Stats != nil {
		t.Fatalf("no data means no stats, got %+v", res.Stats)
	}
	if len(res.Trades) != 0 {
		t.Fatalf("no data means no trades")
	}
	if res.AdsBySource["binance/SELL"] != 0 {
		t.Fatalf("failed source must contribute empty: %v", res.AdsBySource)
	}
}

func TestCycleCancelled(t *testing.T) {
	src := &stubSource{venue: market.Binance}
	p := newPoller(t, src)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.RunCycle(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestApplyFilterHotReload(t *testing.T) {
	src := &stubSource{venue: market.Binance, ads: []market.MarketAd{
		sellAd("a", 130, 10),
		sellAd("b", 134, 10),
	}}
	p := newPoller(t, src)
	p.ApplyFilter(market.Filter{Band: market.Band{Min: 200, Max: 500}}, 0.90)
	res, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if res.Stats != nil {
		t.Fatalf("reloaded band should exclude everything, got %+v", res.Stats)
	}
}
