package market

import (
	"fmt"
	"math"
	"strings"
)

// Exchange identifies a supported P2P venue.
type Exchange string

const (
	Binance Exchange = "binance"
	Bybit   Exchange = "bybit"
	MEXC    Exchange = "mexc"
)

// ParseExchange maps a config string onto a known venue.
func ParseExchange(s string) (Exchange, error) {
	switch Exchange(strings.ToLower(strings.TrimSpace(s))) {
	case Binance:
		return Binance, nil
	case Bybit:
		return Bybit, nil
	case MEXC:
		return MEXC, nil
	}
	return "", fmt.Errorf("unknown exchange %q", s)
}

// Side is the advertiser's side of the order. A Sell ad means the advertiser
// is selling the asset, so the counterparty buys.
type Side string

const (
	Sell Side = "SELL"
	Buy  Side = "BUY"
)

// ParseSide maps a config string onto a side.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case Sell:
		return Sell, nil
	case Buy:
		return Buy, nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// MarketAd is one advertised order on a P2P venue. A fresh list is built on
// every poll; ads are never mutated in place.
type MarketAd struct {
	Exchange     Exchange
	Side         Side
	AdvertiserID string
	Price        float64 // quote currency per unit of asset
	Available    float64 // advertised inventory in asset units
}

// Valid reports whether the ad satisfies the basic invariants.
func (a MarketAd) Valid() bool {
	if a.Price <= 0 || math.IsNaN(a.Price) || math.IsInf(a.Price, 0) {
		return false
	}
	if a.Available < 0 || math.IsNaN(a.Available) {
		return false
	}
	return true
}

// Key correlates the "same" ad across two consecutive polls.
type Key struct {
	Exchange   Exchange
	Advertiser string
	Price      float64
}

// IdentityStrategy derives the correlation key for an ad. The diff algorithm
// never looks inside the key, so a venue that starts exposing stable ad ids
// can swap in a new strategy without touching it.
type IdentityStrategy interface {
	KeyOf(ad MarketAd) Key
}

// CompositeIdentity keys ads by (exchange, advertiser, price). This is a
// heuristic: an advertiser re-pricing an ad changes its identity and silently
// resets its delta baseline, and two advertisers sharing a price on the same
// venue can collide. It is the best identity the upstream APIs allow.
type CompositeIdentity struct{}

func (CompositeIdentity) KeyOf(ad MarketAd) Key {
	return Key{Exchange: ad.Exchange, Advertiser: ad.AdvertiserID, Price: ad.Price}
}
