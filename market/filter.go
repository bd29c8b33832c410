package market

import "sort"

// Band is the hard sanity band for plausible quote prices. Prices at or
// outside the bounds are unit errors or obvious garbage.
type Band struct {
	Min float64
	Max float64
}

// Contains reports whether p lies strictly inside the band.
func (b Band) Contains(p float64) bool {
	return p > b.Min && p < b.Max
}

// Filter removes implausible prices from a batch before any statistic is
// computed. Applying it to its own output changes nothing.
type Filter struct {
	Band Band
}

// Apply returns the subset of prices inside the sanity band, preserving
// input order.
func (f Filter) Apply(prices []float64) []float64 {
	kept := make([]float64, 0, len(prices))
	for _, p := range prices {
		if f.Band.Contains(p) {
			kept = append(kept, p)
		}
	}
	return kept
}

// TrimBait drops prices below median*scamFactor. Listings that far under the
// median are non-executable bait; this feeds display paths only, never the
// statistics. A non-positive factor or median disables the cutoff.
func TrimBait(prices []float64, median, scamFactor float64) []float64 {
	if median <= 0 || scamFactor <= 0 {
		return prices
	}
	cutoff := median * scamFactor
	kept := make([]float64, 0, len(prices))
	for _, p := range prices {
		if p > cutoff {
			kept = append(kept, p)
		}
	}
	return kept
}

// Offer is one displayable listing from the cheapest-first feed.
type Offer struct {
	Exchange Exchange
	Price    float64
	Amount   float64
}

// TopOffers builds the bait-filtered, cheapest-first offer feed from a poll's
// ads. Prices are converted through peg before the cutoff is applied. Ties
// keep insertion order.
func TopOffers(ads []MarketAd, peg, median, scamFactor float64, limit int) []Offer {
	if peg <= 0 {
		peg = 1
	}
	cutoff := 0.0
	if median > 0 && scamFactor > 0 {
		cutoff = median * scamFactor
	}
	offers := make([]Offer, 0, len(ads))
	for _, ad := range ads {
		real := ad.Price / peg
		if real <= cutoff {
			continue
		}
		offers = append(offers, Offer{Exchange: ad.Exchange, Price: real, Amount: ad.Available})
	}
	sort.SliceStable(offers, func(i, j int) bool { return offers[i].Price < offers[j].Price })
	if limit > 0 && len(offers) > limit {
		offers = offers[:limit]
	}
	return offers
}
