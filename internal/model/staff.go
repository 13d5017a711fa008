package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Staff is a care staff member working out of a home base.
type Staff struct {
	ID              int64
	Name            string
	HomeBaseAddress string
	MaxCapacity     int
	ZipCode         string
	Location        Coordinates
}

type staffJSON struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	HomeBaseAddress string   `json:"home_base_address"`
	MaxCapacity     int      `json:"max_capacity"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	ZipCode         string   `json:"zip_code"`
}

// MarshalJSON flattens Location into nullable latitude/longitude fields.
func (s Staff) MarshalJSON() ([]byte, error) {
	lat, lng := s.Location.Ptrs()
	return json.Marshal(staffJSON{
		ID:              s.ID,
		Name:            s.Name,
		HomeBaseAddress: s.HomeBaseAddress,
		MaxCapacity:     s.MaxCapacity,
		Latitude:        lat,
		Longitude:       lng,
		ZipCode:         s.ZipCode,
	})
}

// UnmarshalJSON rejects records carrying only one coordinate half.
func (s *Staff) UnmarshalJSON(data []byte) error {
	var raw staffJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "model: decode staff")
	}
	loc, err := NewCoordinates(raw.Latitude, raw.Longitude)
	if err != nil {
		return err
	}
	*s = Staff{
		ID:              raw.ID,
		Name:            raw.Name,
		HomeBaseAddress: raw.HomeBaseAddress,
		MaxCapacity:     raw.MaxCapacity,
		ZipCode:         raw.ZipCode,
		Location:        loc,
	}
	return nil
}

// StaffLoad summarizes one staff member's caseload against capacity.
type StaffLoad struct {
	Name         string `json:"name"`
	Current      int    `json:"current"`
	Max          int    `json:"max"`
	OverCapacity bool   `json:"over_capacity"`
}
