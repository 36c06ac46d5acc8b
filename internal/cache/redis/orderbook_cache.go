package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quanterra/arbscan/internal/domain"
)

// bookTTL bounds how long a cached book snapshot outlives the scan that
// wrote it. Consumers treat expiry as "no data", same as a missed fetch.
const bookTTL = 5 * time.Minute

func bookKey(tokenID string) string { return "book:" + tokenID }

// OrderbookCache implements domain.OrderbookCache with one JSON value per
// token. This is a read-side convenience for the dashboard and debugging;
// the scan cycle always evaluates the books it fetched itself.
type OrderbookCache struct {
	rdb *redis.Client
}

// NewOrderbookCache creates an OrderbookCache backed by the given Client.
func NewOrderbookCache(c *Client) *OrderbookCache {
	return &OrderbookCache{rdb: c.Underlying()}
}

// SetSnapshot stores one token's book snapshot.
func (oc *OrderbookCache) SetSnapshot(ctx context.Context, snap domain.BookSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: encode book %s: %w", snap.TokenID, err)
	}
	if err := oc.rdb.Set(ctx, bookKey(snap.TokenID), data, bookTTL).Err(); err != nil {
		return fmt.Errorf("redis: set book %s: %w", snap.TokenID, err)
	}
	return nil
}

// GetSnapshot returns the cached snapshot for a token, or
// domain.ErrNotFound when none exists.
func (oc *OrderbookCache) GetSnapshot(ctx context.Context, tokenID string) (domain.BookSnapshot, error) {
	data, err := oc.rdb.Get(ctx, bookKey(tokenID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.BookSnapshot{}, domain.ErrNotFound
		}
		return domain.BookSnapshot{}, fmt.Errorf("redis: get book %s: %w", tokenID, err)
	}
	var snap domain.BookSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.BookSnapshot{}, fmt.Errorf("redis: decode book %s: %w", tokenID, err)
	}
	return snap, nil
}
