package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
)

// getJSON waits for the limiter, issues one GET to endpoint with params and
// decodes a 200 response into dst. Any other status is an error.
func (g *geocoder) getJSON(ctx context.Context, provider, endpoint string, params url.Values, dst any) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return eris.Wrapf(err, "geocode: %s rate limit", provider)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrapf(err, "geocode: %s build request", provider)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return eris.Wrapf(err, "geocode: %s request", provider)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("geocode: %s returned status %d", provider, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return eris.Wrapf(err, "geocode: %s parse response", provider)
	}
	return nil
}
