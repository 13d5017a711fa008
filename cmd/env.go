package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/caseload-router/internal/caseload"
	"github.com/sells-group/caseload-router/internal/config"
	"github.com/sells-group/caseload-router/internal/store"
	"github.com/sells-group/caseload-router/pkg/geocode"
)

// appEnv holds the store, geocoder and service shared by the commands.
type appEnv struct {
	Store    store.Store
	Geocoder geocode.Client
	Service  *caseload.Service

	redis *redis.Client
}

// Close releases the store and the cache connection.
func (e *appEnv) Close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates cfg for mode, opens and migrates the store and, unless
// mode is "store", builds the geocoder. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	env := &appEnv{Store: st}
	if mode != "store" {
		env.Geocoder, env.redis = initGeocoder(cfg.Geocode, cfg.Redis)
	}
	env.Service = caseload.NewService(st, env.Geocoder, caseload.WithDefaultCapacity(cfg.Assign.DefaultCapacity))
	return env, nil
}

func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "sqlite":
		return store.NewSQLite(sc.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{
			MaxConns: sc.MaxConns,
			MinConns: sc.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}

// initGeocoder builds the provider client and, when redis.addr is set, wraps
// it in the Redis cache. The returned redis client is nil without a cache.
func initGeocoder(gc config.GeocodeConfig, rc config.RedisConfig) (geocode.Client, *redis.Client) {
	timeout := time.Duration(gc.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var client geocode.Client = geocode.NewClient(
		geocode.WithProvider(gc.Provider),
		geocode.WithGoogleAPIKey(gc.GoogleAPIKey),
		geocode.WithRateLimit(gc.RateLimit),
		geocode.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if gc.Provider != geocode.ProviderCensus && gc.GoogleAPIKey == "" {
		zap.L().Warn("GOOGLE_API_KEY not set, every geocode lookup will miss")
	}

	if rc.Addr == "" {
		return client, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	ttl := time.Duration(rc.TTLHours) * time.Hour
	zap.L().Info("geocode cache enabled", zap.String("addr", rc.Addr), zap.Duration("ttl", ttl))
	return geocode.NewCachedClient(client, rdb, ttl), rdb
}
