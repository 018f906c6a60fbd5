package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pricetracker/metrics"
)

// Store is a TTL key-value cache. It holds derived copies of store reads
// and is never a source of truth: every entry must survive being dropped
// at any moment.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Fetch is the read-through path: on a hit the cached JSON is decoded into
// dest without touching the backing store; on a miss load is invoked, its
// result cached under key with the given TTL, and decoded into dest.
// Cache errors degrade to a direct load, they never fail the read.
func Fetch[T any](ctx context.Context, c Store, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var zero T

	if raw, ok, err := c.Get(ctx, key); err == nil && ok {
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			metrics.CacheHits.WithLabelValues(keyPrefix(key)).Inc()
			return v, nil
		}
	}
	metrics.CacheMisses.WithLabelValues(keyPrefix(key)).Inc()

	v, err := load()
	if err != nil {
		return zero, err
	}

	if encoded, err := json.Marshal(v); err == nil {
		_ = c.Set(ctx, key, string(encoded), ttl)
	}
	return v, nil
}

func keyPrefix(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}

// Cache key layout. Refresh workers must invalidate every key derived
// from data they changed, listing keys before per-symbol keys.
const (
	KeyCryptoAll = "crypto:all"
	KeyStocksAll = "stocks:all"
	KeyForexAll  = "forex:all"
)

// KeyCryptoTop returns the key for the top-n listing.
func KeyCryptoTop(n int) string { return fmt.Sprintf("crypto:top:%d", n) }

// KeyCryptoSymbol returns the per-symbol crypto key.
func KeyCryptoSymbol(symbol string) string {
	return "crypto:symbol:" + strings.ToUpper(symbol)
}

// KeyStockSymbol returns the per-symbol stock key.
func KeyStockSymbol(symbol string) string {
	return "stocks:symbol:" + strings.ToUpper(symbol)
}

// KeyForexPair returns the key for one ordered currency pair.
func KeyForexPair(base, target string) string {
	return fmt.Sprintf("forex:%s:%s", strings.ToUpper(base), strings.ToUpper(target))
}
