// Package cache keeps rendered storefront listings in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pkordes/dumper-shop/backend/internal/domain"
)

// DefaultPrefix namespaces every key the cache writes.
const DefaultPrefix = "featured:store"

// RedisListingCache implements service.ListingCache on plain Redis strings.
//
// Entries live under <prefix>:<generation>:<key>, each with its own TTL.
// Invalidate bumps <prefix>:gen, so entries of older generations are never
// read again and simply expire.
type RedisListingCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// Option configures a RedisListingCache.
type Option func(*RedisListingCache)

// WithPrefix overrides the key prefix. Tests use it to isolate runs.
func WithPrefix(prefix string) Option {
	return func(c *RedisListingCache) { c.prefix = prefix }
}

// NewRedisListingCache returns a cache whose entries expire after ttl.
func NewRedisListingCache(rdb *redis.Client, ttl time.Duration, opts ...Option) *RedisListingCache {
	c := &RedisListingCache{rdb: rdb, prefix: DefaultPrefix, ttl: ttl}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisListingCache) genKey() string { return c.prefix + ":gen" }

func (c *RedisListingCache) entryKey(gen int64, key string) string {
	return fmt.Sprintf("%s:%d:%s", c.prefix, gen, key)
}

// getter is satisfied by *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// generation reads the current generation; a missing counter is generation 0.
func generation(ctx context.Context, cmd getter, key string) (int64, error) {
	gen, err := cmd.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Get returns the listing cached under key in the current generation, and
// that generation. It reports false on a miss.
func (c *RedisListingCache) Get(ctx context.Context, key string) ([]domain.FeaturedProduct, int64, bool, error) {
	gen, err := generation(ctx, c.rdb, c.genKey())
	if err != nil {
		return nil, 0, false, fmt.Errorf("cache.RedisListingCache.Get: generation: %w", err)
	}

	raw, err := c.rdb.Get(ctx, c.entryKey(gen, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, gen, false, nil
		}
		return nil, gen, false, fmt.Errorf("cache.RedisListingCache.Get: %w", err)
	}

	var out []domain.FeaturedProduct
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, gen, false, fmt.Errorf("cache.RedisListingCache.Get: decode: %w", err)
	}
	return out, gen, true, nil
}

// Set stores featured under key for generation gen. The write is skipped when
// Invalidate has moved past gen, including concurrently with this call.
func (c *RedisListingCache) Set(ctx context.Context, key string, gen int64, featured []domain.FeaturedProduct) error {
	raw, err := json.Marshal(featured)
	if err != nil {
		return fmt.Errorf("cache.RedisListingCache.Set: encode: %w", err)
	}

	genKey := c.genKey()
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := generation(ctx, tx, genKey)
		if err != nil {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, c.entryKey(gen, key), raw, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		// The generation moved between WATCH and EXEC.
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache.RedisListingCache.Set: %w", err)
	}
	return nil
}

// Invalidate retires every cached listing by starting a new generation.
func (c *RedisListingCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, c.genKey()).Err(); err != nil {
		return fmt.Errorf("cache.RedisListingCache.Invalidate: %w", err)
	}
	return nil
}
