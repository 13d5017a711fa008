package geocode

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

type googleGeocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
			LocationType string `json:"location_type"`
		} `json:"geometry"`
	} `json:"results"`
}

// googleQuality maps Google's location_type onto Result.Quality.
var googleQuality = map[string]string{
	"ROOFTOP":            "rooftop",
	"RANGE_INTERPOLATED": "range",
	"GEOMETRIC_CENTER":   "centroid",
}

func (g *geocoder) geocodeGoogle(ctx context.Context, address string) (*Result, error) {
	if g.googleKey == "" {
		return nil, eris.New("geocode: google api key not configured")
	}

	var body googleGeocodeResponse
	params := url.Values{"address": {address}, "key": {g.googleKey}}
	if err := g.getJSON(ctx, ProviderGoogle, googleGeocodeURL, params, &body); err != nil {
		return nil, err
	}

	switch {
	case body.Status == "ZERO_RESULTS", body.Status == "OK" && len(body.Results) == 0:
		return &Result{Source: ProviderGoogle}, nil
	case body.Status != "OK":
		// REQUEST_DENIED, OVER_QUERY_LIMIT and friends carry a reason.
		return nil, eris.Errorf("geocode: google status %s: %s", body.Status, body.ErrorMessage)
	}

	first := body.Results[0].Geometry
	return &Result{
		Latitude:  first.Location.Lat,
		Longitude: first.Location.Lng,
		Source:    ProviderGoogle,
		Quality:   googleLocationTypeToQuality(first.LocationType),
		Matched:   true,
	}, nil
}

func googleLocationTypeToQuality(locType string) string {
	if q, ok := googleQuality[strings.ToUpper(locType)]; ok {
		return q
	}
	return "approximate"
}
