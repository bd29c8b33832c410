package ledger

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// RedisPersister keeps the compacted log as one JSON value under a single
// key. SET replaces atomically, so a reader never observes a half-written
// log.
type RedisPersister struct {
	rdb *redis.Client
	key string
}

func NewRedisPersister(rdb *redis.Client, key string) *RedisPersister {
	if key == "" {
		key = "p2pradar:ledger"
	}
	return &RedisPersister{rdb: rdb, key: key}
}

func (rp *RedisPersister) Store(ctx context.Context, events []TradeEvent) error {
	raw, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	if err := rp.rdb.Set(ctx, rp.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis: store ledger: %w", err)
	}
	return nil
}

func (rp *RedisPersister) Load(ctx context.Context) ([]TradeEvent, error) {
	raw, err := rp.rdb.Get(ctx, rp.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: load ledger: %w", err)
	}
	var events []TradeEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, nil
	}
	return events, nil
}
