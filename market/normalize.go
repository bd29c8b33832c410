package market

import (
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Field aliases tried in order when resolving listing payloads. Upstream
// schemas rename these freely between API revisions.
var (
	priceAliases      = []string{"price", "adv_price", "unit_price", "rate"}
	amountAliases     = []string{"available_amount", "surplus_amount", "available", "amount", "tradable_quantity", "last_quantity"}
	advertiserAliases = []string{"advertiser_id", "adv_no", "user_id", "merchant_id", "nickname"}
)

// ParseAds decodes a provider order-book payload into normalized ads.
// It accepts a bare JSON array or a result/data/ads envelope (with an
// optional nested items list, as Bybit wraps it). Entries with no resolvable
// positive price or inventory are dropped silently; the second return value
// is the number of dropped entries. Pure transformation, no side effects.
func ParseAds(payload []byte, ex Exchange, side Side) ([]MarketAd, int) {
	entries := extractEntries(payload)
	if len(entries) == 0 {
		return nil, 0
	}

	ads := make([]MarketAd, 0, len(entries))
	dropped := 0
	for _, raw := range entries {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			dropped++
			continue
		}
		price, ok := numField(fields, priceAliases)
		if !ok || price <= 0 {
			dropped++
			continue
		}
		amount, ok := numField(fields, amountAliases)
		if !ok || amount < 0 {
			dropped++
			continue
		}
		ad := MarketAd{
			Exchange:     ex,
			Side:         side,
			AdvertiserID: strField(fields, advertiserAliases),
			Price:        price,
			Available:    amount,
		}
		if !ad.Valid() {
			dropped++
			continue
		}
		ads = append(ads, ad)
	}
	return ads, dropped
}

// extractEntries locates the listing array inside payload.
func extractEntries(payload []byte) []json.RawMessage {
	var list []json.RawMessage
	if err := json.Unmarshal(payload, &list); err == nil {
		return list
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil
	}
	for _, key := range []string{"result", "data", "ads", "items"} {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &list); err == nil {
			return list
		}
		// Envelope value may itself be an object holding the list.
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(raw, &inner); err == nil {
			for _, innerKey := range []string{"items", "ads", "list"} {
				if innerRaw, ok := inner[innerKey]; ok {
					if err := json.Unmarshal(innerRaw, &list); err == nil {
						return list
					}
				}
			}
		}
	}
	return nil
}

// numField resolves the first alias present as a float. Providers send
// numbers both as JSON numbers and as quoted strings.
func numField(fields map[string]json.RawMessage, aliases []string) (float64, bool) {
	for _, name := range aliases {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return f, true
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func strField(fields map[string]json.RawMessage, aliases []string) string {
	for _, name := range aliases {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
		// Some venues expose numeric advertiser ids.
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil && n.String() != "" {
			return n.String()
		}
	}
	return ""
}
