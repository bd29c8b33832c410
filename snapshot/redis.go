package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"p2pradar/market"
)

// RedisStore keeps the snapshot under one Redis key with a TTL equal to the
// staleness bound, so expiry enforces first-run semantics instead of a
// timestamp check on load.
type RedisStore struct {
	rdb       *redis.Client
	key       string
	staleness time.Duration
	identity  market.IdentityStrategy
}

// NewRedisStore wires a snapshot store onto an existing Redis client.
func NewRedisStore(rdb *redis.Client, key string, staleness time.Duration, id market.IdentityStrategy) *RedisStore {
	if key == "" {
		key = "p2pradar:snapshot"
	}
	if staleness <= 0 {
		staleness = DefaultStaleness
	}
	if id == nil {
		id = market.CompositeIdentity{}
	}
	return &RedisStore{rdb: rdb, key: key, staleness: staleness, identity: id}
}

// Load fetches the stored snapshot; an expired or missing key is an empty
// snapshot. The stored timestamp is still checked in case the server does not
// honor the TTL (e.g. restored from an RDB dump).
func (rs *RedisStore) Load(ctx context.Context) (Snapshot, error) {
	raw, err := rs.rdb.Get(ctx, rs.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("redis: load snapshot: %w", err)
	}
	var doc fileDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Snapshot{}, nil
	}
	if time.Since(doc.Taken) > rs.staleness {
		return Snapshot{}, nil
	}
	amounts := make(map[market.Key]float64, len(doc.Ads))
	for _, it := range doc.Ads {
		key := market.Key{Exchange: market.Exchange(it.Exchange), Advertiser: it.Advertiser, Price: it.Price}
		if prev, ok := amounts[key]; !ok || it.Amount > prev {
			amounts[key] = it.Amount
		}
	}
	return Snapshot{Taken: doc.Taken, Amounts: amounts}, nil
}

// Save overwrites the stored snapshot. SET is atomic, so readers see either
// the old document or the new one, never a partial write.
func (rs *RedisStore) Save(ctx context.Context, ads []market.MarketAd, ts time.Time) error {
	doc := fileDoc{Taken: ts, Ads: make([]fileItem, 0, len(ads))}
	for _, ad := range ads {
		key := rs.identity.KeyOf(ad)
		doc.Ads = append(doc.Ads, fileItem{
			Exchange:   string(key.Exchange),
			Advertiser: key.Advertiser,
			Price:      key.Price,
			Amount:     ad.Available,
		})
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := rs.rdb.Set(ctx, rs.key, raw, rs.staleness).Err(); err != nil {
		return fmt.Errorf("redis: save snapshot: %w", err)
	}
	return nil
}
