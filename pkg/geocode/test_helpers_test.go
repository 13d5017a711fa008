package geocode

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/time/rate"
)

func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// newRewriteClient returns a client that sends every request whose URL starts
// with targetPrefix to the test server instead.
func newRewriteClient(testServerURL, targetPrefix string) *http.Client {
	target, err := url.Parse(testServerURL)
	if err != nil {
		panic(err)
	}
	return &http.Client{Transport: rewriteTransport{target: target, prefix: targetPrefix}}
}

type rewriteTransport struct {
	target *url.URL
	prefix string
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !strings.HasPrefix(req.URL.String(), t.prefix) {
		return http.DefaultTransport.RoundTrip(req)
	}
	out := req.Clone(req.Context())
	out.URL.Scheme = t.target.Scheme
	out.URL.Host = t.target.Host
	out.URL.Path = t.target.Path + strings.TrimPrefix(req.URL.Path, mustPath(t.prefix))
	out.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(out)
}

func mustPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		panic(err)
	}
	return u.Path
}

// newProviderTestGeocoder serves every provider call from h.
func newProviderTestGeocoder(t *testing.T, prefix, googleKey string, h http.HandlerFunc) *geocoder {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &geocoder{
		httpClient: newRewriteClient(srv.URL, prefix),
		googleKey:  googleKey,
		limiter:    newTestLimiter(),
	}
}

// respond writes a fixed status and body.
func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}
