package market

import (
	"math"
	"testing"
)

func TestParseExchange(t *testing.T) {
	if ex, err := ParseExchange(" Binance "); err != nil || ex != Binance {
		t.Fatalf("got %v %v", ex, err)
	}
	if _, err := ParseExchange("kraken"); err == nil {
		t.Fatalf("expected error for unsupported venue")
	}
}

func TestAdValid(t *testing.T) {
	ok := MarketAd{Exchange: Binance, Side: Sell, Price: 130, Available: 0}
	if !ok.Valid() {
		t.Fatalf("zero inventory is valid: %+v", ok)
	}
	bad := []MarketAd{
		{Price: 0, Available: 1},
		{Price: -1, Available: 1},
		{Price: math.NaN(), Available: 1},
		{Price: math.Inf(1), Available: 1},
		{Price: 130, Available: -1},
	}
	for _, ad := range bad {
		if ad.Valid() {
			t.Fatalf("expected invalid: %+v", ad)
		}
	}
}

func TestCompositeIdentity(t *testing.T) {
	id := CompositeIdentity{}
	a := MarketAd{Exchange: Binance, AdvertiserID: "adv1", Price: 130, Available: 500}
	b := MarketAd{Exchange: Binance, AdvertiserID: "adv1", Price: 130, Available: 480}
	if id.KeyOf(a) != id.KeyOf(b) {
		t.Fatalf("inventory change must not change identity")
	}
	c := MarketAd{Exchange: Binance, AdvertiserID: "adv1", Price: 131, Available: 500}
	if id.KeyOf(a) == id.KeyOf(c) {
		t.Fatalf("re-priced ad must get a new identity")
	}
}
