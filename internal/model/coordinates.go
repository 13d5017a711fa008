// Package model defines the patient and staff records shared by the store,
// the assignment core, and the HTTP API.
package model

import (
	"math"

	"github.com/rotisserie/eris"
)

var (
	// ErrHalfCoordinates is returned when only one of latitude and longitude is set.
	ErrHalfCoordinates = eris.New("model: latitude and longitude must be provided together")
	// ErrCoordinateRange is returned for NaN, infinite or out-of-range values.
	ErrCoordinateRange = eris.New("model: latitude must be within [-90, 90] and longitude within [-180, 180]")
)

// Coordinates is an optional (latitude, longitude) pair. Both halves are
// present or both are absent; Valid reports which.
type Coordinates struct {
	Lat   float64
	Lng   float64
	Valid bool
}

// At returns present coordinates for the given pair.
func At(lat, lng float64) Coordinates {
	return Coordinates{Lat: lat, Lng: lng, Valid: true}
}

// NewCoordinates builds Coordinates from nullable halves. Exactly one nil
// half is rejected, as is any pair that is not a finite point on the globe.
func NewCoordinates(lat, lng *float64) (Coordinates, error) {
	switch {
	case lat == nil && lng == nil:
		return Coordinates{}, nil
	case lat == nil || lng == nil:
		return Coordinates{}, ErrHalfCoordinates
	case !inRange(*lat, 90) || !inRange(*lng, 180):
		return Coordinates{}, ErrCoordinateRange
	default:
		return At(*lat, *lng), nil
	}
}

// inRange is false for NaN, which fails every comparison.
func inRange(v, limit float64) bool {
	return !math.IsInf(v, 0) && v >= -limit && v <= limit
}

// Ptrs returns the pair as nullable halves, nil when absent.
func (c Coordinates) Ptrs() (*float64, *float64) {
	if !c.Valid {
		return nil, nil
	}
	lat, lng := c.Lat, c.Lng
	return &lat, &lng
}

// Equal reports whether two coordinate values are the same, treating all
// absent values as equal.
func (c Coordinates) Equal(o Coordinates) bool {
	if !c.Valid || !o.Valid {
		return c.Valid == o.Valid
	}
	return c.Lat == o.Lat && c.Lng == o.Lng
}
