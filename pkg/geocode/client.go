// Package geocode resolves free-text addresses to coordinates via the Google
// Geocoding API (default) or the Census Geocoder, with an optional Redis cache.
package geocode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/caseload-router/internal/metrics"
)

// Supported providers.
const (
	ProviderGoogle = "google"
	ProviderCensus = "census"
)

// Client resolves an address to a location.
type Client interface {
	// Geocode makes at most one provider call. A failed or empty lookup is
	// reported as an unmatched Result with a nil error; only context
	// cancellation is returned as an error.
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Source    string  `json:"source"`  // "google" or "census"
	Quality   string  `json:"quality"` // "rooftop", "range", "centroid", "approximate"
	Matched   bool    `json:"matched"`

	// failed marks an unmatched result caused by a transport or provider
	// error rather than a definitive "no such address".
	failed bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithProvider selects the provider. Unknown names fall back to Google.
func WithProvider(name string) Option {
	return func(g *geocoder) {
		g.provider = strings.ToLower(strings.TrimSpace(name))
	}
}

// WithGoogleAPIKey sets the Google Geocoding API key.
func WithGoogleAPIKey(key string) Option {
	return func(g *geocoder) {
		g.googleKey = key
	}
}

// WithHTTPClient sets a custom HTTP client for provider requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second rate limit for provider calls.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		if rps <= 0 {
			g.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

type geocoder struct {
	provider   string
	httpClient *http.Client
	googleKey  string
	limiter    *rate.Limiter
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		provider:   ProviderGoogle,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.provider != ProviderCensus {
		g.provider = ProviderGoogle
	}
	return g
}

// Geocode resolves address with the configured provider.
func (g *geocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		metrics.GeocodeRequestsTotal.WithLabelValues(g.provider, metrics.OutcomeSkipped).Inc()
		return &Result{Source: g.provider}, nil
	}

	start := time.Now()
	var (
		result *Result
		err    error
	)
	switch g.provider {
	case ProviderCensus:
		result, err = g.geocodeCensus(ctx, address)
	default:
		result, err = g.geocodeGoogle(ctx, address)
	}
	metrics.GeocodeDurationMs.WithLabelValues(g.provider).Observe(float64(time.Since(start).Milliseconds()))

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, eris.Wrap(ctxErr, "geocode: lookup canceled")
		}
		metrics.GeocodeRequestsTotal.WithLabelValues(g.provider, metrics.OutcomeError).Inc()
		zap.L().Warn("geocode lookup failed",
			zap.String("provider", g.provider),
			zap.Error(err),
		)
		return &Result{Source: g.provider, failed: true}, nil
	}

	if result.Matched {
		metrics.GeocodeRequestsTotal.WithLabelValues(g.provider, metrics.OutcomeMatched).Inc()
	} else {
		metrics.GeocodeRequestsTotal.WithLabelValues(g.provider, metrics.OutcomeNotFound).Inc()
	}
	return result, nil
}
