package market

import (
	"reflect"
	"testing"
)

func TestFilterApply(t *testing.T) {
	f := Filter{Band: Band{Min: 10, Max: 500}}
	in := []float64{5, 130, 10, 500, 131.5, 9999, 0.13, 129}
	out := f.Apply(in)
	want := []float64{130, 131.5, 129}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("got %v want %v", out, want)
	}
}

func TestFilterBoundsExclusive(t *testing.T) {
	f := Filter{Band: Band{Min: 10, Max: 500}}
	if len(f.Apply([]float64{10})) != 0 {
		t.Fatalf("lower bound must be excluded")
	}
	if len(f.Apply([]float64{500})) != 0 {
		t.Fatalf("upper bound must be excluded")
	}
	if len(f.Apply([]float64{10.0001, 499.999})) != 2 {
		t.Fatalf("interior values must survive")
	}
}

func TestFilterIdempotent(t *testing.T) {
	f := Filter{Band: Band{Min: 10, Max: 500}}
	once := f.Apply([]float64{5, 130, 140, 600, 128})
	twice := f.Apply(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second pass narrowed output: %v vs %v", once, twice)
	}
}

func TestTrimBait(t *testing.T) {
	prices := []float64{100, 118, 120, 125, 130}
	out := TrimBait(prices, 125, 0.90)
	// cutoff 112.5: the 100 bait listing goes, everything else stays
	want := []float64{118, 120, 125, 130}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("got %v want %v", out, want)
	}
}

func TestTrimBaitDisabled(t *testing.T) {
	prices := []float64{100, 130}
	if got := TrimBait(prices, 0, 0.90); !reflect.DeepEqual(got, prices) {
		t.Fatalf("zero median must disable cutoff, got %v", got)
	}
	if got := TrimBait(prices, 125, 0); !reflect.DeepEqual(got, prices) {
		t.Fatalf("zero factor must disable cutoff, got %v", got)
	}
}

func TestTopOffers(t *testing.T) {
	ads := []MarketAd{
		{Exchange: Binance, Price: 130, Available: 100},
		{Exchange: MEXC, Price: 90, Available: 50},  // bait, below cutoff
		{Exchange: Bybit, Price: 126, Available: 10},
		{Exchange: Binance, Price: 128, Available: 70},
	}
	offers := TopOffers(ads, 1.0, 130, 0.90, 2)
	if len(offers) != 2 {
		t.Fatalf("expected 2 offers, got %d", len(offers))
	}
	if offers[0].Price != 126 || offers[0].Exchange != Bybit {
		t.Fatalf("cheapest legitimate offer first, got %+v", offers[0])
	}
	if offers[1].Price != 128 {
		t.Fatalf("unexpected second offer %+v", offers[1])
	}
}

func TestTopOffersPegConversion(t *testing.T) {
	ads := []MarketAd{{Exchange: Binance, Price: 131, Available: 1}}
	offers := TopOffers(ads, 1.0048, 0, 0, 0)
	if len(offers) != 1 {
		t.Fatalf("expected 1 offer")
	}
	want := 131 / 1.0048
	if diff := offers[0].Price - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("peg not applied: got %f want %f", offers[0].Price, want)
	}
}
