package geocode

import (
	"context"
	"net/url"
)

const (
	censusOneLineURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"
	censusBenchmark  = "Public_AR_Current"
)

type censusOneLineResponse struct {
	Result struct {
		AddressMatches []struct {
			Coordinates struct {
				X float64 `json:"x"` // longitude
				Y float64 `json:"y"` // latitude
			} `json:"coordinates"`
		} `json:"addressMatches"`
	} `json:"result"`
}

// geocodeCensus uses the keyless Census one-line API. Only US addresses
// resolve, and a match is always address-level.
func (g *geocoder) geocodeCensus(ctx context.Context, address string) (*Result, error) {
	var body censusOneLineResponse
	params := url.Values{
		"address":   {address},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}
	if err := g.getJSON(ctx, ProviderCensus, censusOneLineURL, params, &body); err != nil {
		return nil, err
	}

	matches := body.Result.AddressMatches
	if len(matches) == 0 {
		return &Result{Source: ProviderCensus}, nil
	}
	return &Result{
		Latitude:  matches[0].Coordinates.Y,
		Longitude: matches[0].Coordinates.X,
		Source:    ProviderCensus,
		Quality:   "rooftop",
		Matched:   true,
	}, nil
}
