package pricefeed

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// KV is the cache surface Cached needs. Both redis.Client and its
// instrumented wrapper satisfy it.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Cached wraps another Source with a short-lived cache. It exists for live
// feeds where every price lookup costs an upstream call; with the static
// source it is a pass-through that keeps the wiring uniform.
type Cached struct {
	inner Source
	cache KV
	ttl   time.Duration
	log   *slog.Logger
}

// NewCached builds a caching Source around inner.
func NewCached(inner Source, cache KV, ttl time.Duration, log *slog.Logger) *Cached {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Cached{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

// CurrentPrice answers from the cache when possible, falling back to the
// wrapped source. Cache failures are logged and never surface to the caller.
func (c *Cached) CurrentPrice(ctx context.Context, pair string) (decimal.Decimal, error) {
	key := "price:" + pair

	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, key); err == nil {
			if price, perr := decimal.NewFromString(raw); perr == nil {
				return price, nil
			}
		}
	}

	price, err := c.inner.CurrentPrice(ctx, pair)
	if err != nil {
		return decimal.Decimal{}, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, price.String(), c.ttl); err != nil {
			c.log.Warn("price cache write failed", slog.String("pair", pair), slog.Any("error", err))
		}
	}

	return price, nil
}
