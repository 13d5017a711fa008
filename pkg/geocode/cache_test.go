package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	data    map[string]string
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	setKeys []string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.setKeys = append(f.setKeys, key)
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

type stubClient struct {
	calls  int
	result *Result
	err    error
}

func (s *stubClient) Geocode(_ context.Context, _ string) (*Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	r := *s.result
	return &r, nil
}

func TestCacheKey_Deterministic(t *testing.T) {
	key1 := CacheKey("100 S Biscayne Blvd, Miami, FL 33131")
	key2 := CacheKey("100 S Biscayne Blvd, Miami, FL 33131")
	assert.Equal(t, key1, key2)
	assert.Len(t, key1, len(cacheKeyPrefix)+64) // SHA-256 hex is 64 chars
}

func TestCacheKey_Normalization(t *testing.T) {
	assert.Equal(t, CacheKey("100 Main St, Miami"), CacheKey("  100 MAIN   st,\tmiami "))
	// NFC: precomposed vs combining acute accent.
	assert.Equal(t, CacheKey("1 Calle Jos\u00e9"), CacheKey("1 Calle Jose\u0301"))
	assert.NotEqual(t, CacheKey("100 Main St"), CacheKey("200 Main St"))
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "12 elm ave, apt 3", NormalizeAddress(" 12  Elm AVE,\n Apt 3 "))
	assert.Equal(t, "", NormalizeAddress("   "))
}

func TestCachedClient_MissThenHit(t *testing.T) {
	rdb := newFakeRedis()
	next := &stubClient{result: &Result{Latitude: 1, Longitude: 2, Source: "google", Matched: true}}
	c := NewCachedClient(next, rdb, time.Hour)

	r1, err := c.Geocode(context.Background(), "1 Main St")
	require.NoError(t, err)
	r2, err := c.Geocode(context.Background(), "1 MAIN ST")
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, r1.Latitude, r2.Latitude)
	assert.Equal(t, r1.Longitude, r2.Longitude)
	assert.True(t, r2.Matched)
	assert.Equal(t, time.Hour, rdb.ttls[CacheKey("1 Main St")])
}

func TestCachedClient_CachesNotFound(t *testing.T) {
	rdb := newFakeRedis()
	next := &stubClient{result: &Result{Source: "google"}}
	c := NewCachedClient(next, rdb, 0)

	for range 3 {
		r, err := c.Geocode(context.Background(), "123 Unknown St")
		require.NoError(t, err)
		assert.False(t, r.Matched)
	}
	assert.Equal(t, 1, next.calls)

	var stored Result
	require.NoError(t, json.Unmarshal([]byte(rdb.data[CacheKey("123 Unknown St")]), &stored))
	assert.False(t, stored.Matched)
}

func TestCachedClient_DoesNotCacheFailures(t *testing.T) {
	rdb := newFakeRedis()
	next := &stubClient{result: &Result{Source: "google", failed: true}}
	c := NewCachedClient(next, rdb, time.Minute)

	_, err := c.Geocode(context.Background(), "1 Main St")
	require.NoError(t, err)
	_, err = c.Geocode(context.Background(), "1 Main St")
	require.NoError(t, err)

	assert.Equal(t, 2, next.calls)
	assert.Empty(t, rdb.setKeys)
}

func TestCachedClient_RedisDownBypasses(t *testing.T) {
	rdb := newFakeRedis()
	rdb.getErr = errors.New("dial tcp: connection refused")
	rdb.setErr = errors.New("dial tcp: connection refused")
	next := &stubClient{result: &Result{Latitude: 5, Longitude: 6, Matched: true}}
	c := NewCachedClient(next, rdb, time.Minute)

	r, err := c.Geocode(context.Background(), "1 Main St")
	require.NoError(t, err)
	assert.True(t, r.Matched)
	assert.Equal(t, 1, next.calls)
}

func TestCachedClient_CorruptEntryIgnored(t *testing.T) {
	rdb := newFakeRedis()
	rdb.data[CacheKey("1 Main St")] = "{not json"
	next := &stubClient{result: &Result{Latitude: 5, Longitude: 6, Matched: true}}
	c := NewCachedClient(next, rdb, time.Minute)

	r, err := c.Geocode(context.Background(), "1 Main St")
	require.NoError(t, err)
	assert.True(t, r.Matched)
	assert.Equal(t, 1, next.calls)
}

func TestCachedClient_PropagatesCancel(t *testing.T) {
	next := &stubClient{err: context.Canceled}
	c := NewCachedClient(next, newFakeRedis(), time.Minute)

	_, err := c.Geocode(context.Background(), "1 Main St")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCachedClient_BlankSkipsCache(t *testing.T) {
	rdb := newFakeRedis()
	next := &stubClient{result: &Result{}}
	c := NewCachedClient(next, rdb, time.Minute)

	_, err := c.Geocode(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, rdb.setKeys)
}
