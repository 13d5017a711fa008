package geocode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/caseload-router/internal/metrics"
)

const cacheKeyPrefix = "caseload:geocode:"

// RedisClient is the subset of *redis.Client the cache uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedClient wraps a Client with a Redis read-through cache. Definitive
// non-matches are cached alongside matches; provider failures are not.
type CachedClient struct {
	next Client
	rdb  RedisClient
	ttl  time.Duration
}

// NewCachedClient returns a Client that consults rdb before next. A zero ttl
// stores entries without expiry.
func NewCachedClient(next Client, rdb RedisClient, ttl time.Duration) *CachedClient {
	return &CachedClient{next: next, rdb: rdb, ttl: ttl}
}

// Geocode returns the cached result for address or delegates to the wrapped
// client. Cache errors are logged and bypassed.
func (c *CachedClient) Geocode(ctx context.Context, address string) (*Result, error) {
	if strings.TrimSpace(address) == "" {
		return c.next.Geocode(ctx, address)
	}

	key := CacheKey(address)
	if r, ok := c.lookup(ctx, key); ok {
		return r, nil
	}

	r, err := c.next.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}
	if !r.failed {
		c.store(ctx, key, r)
	}
	return r, nil
}

func (c *CachedClient) lookup(ctx context.Context, key string) (*Result, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("geocode cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		zap.L().Warn("geocode cache entry unreadable", zap.String("key", shortKey(key)), zap.Error(err))
		return nil, false
	}

	metrics.GeocodeRequestsTotal.WithLabelValues(r.Source, metrics.OutcomeCacheHit).Inc()
	zap.L().Debug("geocode cache hit", zap.String("key", shortKey(key)), zap.Bool("matched", r.Matched))
	return &r, true
}

func (c *CachedClient) store(ctx context.Context, key string, r *Result) {
	data, err := json.Marshal(r)
	if err != nil {
		zap.L().Warn("geocode cache encode failed", zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		zap.L().Warn("geocode cache write failed", zap.String("key", shortKey(key)), zap.Error(err))
	}
}

// CacheKey returns the cache key for an address. Addresses that differ only
// in Unicode composition, letter case, or whitespace share a key.
func CacheKey(address string) string {
	h := sha256.Sum256([]byte(NormalizeAddress(address)))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

// NormalizeAddress applies NFC normalization and case folding, and collapses
// runs of whitespace to a single space.
func NormalizeAddress(address string) string {
	s := norm.NFC.String(address)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

func shortKey(key string) string {
	key = strings.TrimPrefix(key, cacheKeyPrefix)
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
