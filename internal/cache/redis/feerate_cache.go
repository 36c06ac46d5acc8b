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

const feeRateKey = "feerate:current"

// FeeRateCache implements domain.FeeRateCache with a single TTL key. When
// the key is missing or expired, Get returns domain.ErrFeeRateUnknown:
// the unknown state is first-class and is never papered over with a
// default rate.
type FeeRateCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFeeRateCache creates a FeeRateCache with the given TTL.
func NewFeeRateCache(c *Client, ttl time.Duration) *FeeRateCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &FeeRateCache{rdb: c.Underlying(), ttl: ttl}
}

// Get returns the cached fee rate, or domain.ErrFeeRateUnknown when no
// fresh value exists.
func (f *FeeRateCache) Get(ctx context.Context) (domain.FeeRate, error) {
	data, err := f.rdb.Get(ctx, feeRateKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.FeeRate{}, domain.ErrFeeRateUnknown
		}
		return domain.FeeRate{}, fmt.Errorf("redis: get fee rate: %w", err)
	}
	var fr domain.FeeRate
	if err := json.Unmarshal(data, &fr); err != nil {
		return domain.FeeRate{}, fmt.Errorf("redis: decode fee rate: %w", err)
	}
	return fr, nil
}

// Set stores a fee rate with the cache TTL.
func (f *FeeRateCache) Set(ctx context.Context, fr domain.FeeRate) error {
	data, err := json.Marshal(fr)
	if err != nil {
		return fmt.Errorf("redis: encode fee rate: %w", err)
	}
	if err := f.rdb.Set(ctx, feeRateKey, data, f.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set fee rate: %w", err)
	}
	return nil
}
