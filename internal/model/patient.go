package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Patient is a home-care patient. ClusterID is written by the offline
// clustering job; AssignedStaff holds the assigned staff member's name.
type Patient struct {
	ID            int64
	Name          string
	Address       string
	TypeOfCare    string
	Status        string
	ZipCode       string
	Location      Coordinates
	ClusterID     *int
	AssignedStaff *string
}

// Unresolved reports whether the patient still needs coordinates or an
// assignment.
func (p Patient) Unresolved() bool {
	return !p.Location.Valid || p.AssignedStaff == nil
}

type patientJSON struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Address       string   `json:"address"`
	TypeOfCare    string   `json:"type_of_care"`
	Status        string   `json:"status"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	ClusterID     *int     `json:"cluster_id"`
	ZipCode       string   `json:"zip_code"`
	AssignedStaff *string  `json:"assigned_staff"`
}

// MarshalJSON flattens Location into nullable latitude/longitude fields.
func (p Patient) MarshalJSON() ([]byte, error) {
	lat, lng := p.Location.Ptrs()
	return json.Marshal(patientJSON{
		ID:            p.ID,
		Name:          p.Name,
		Address:       p.Address,
		TypeOfCare:    p.TypeOfCare,
		Status:        p.Status,
		Latitude:      lat,
		Longitude:     lng,
		ClusterID:     p.ClusterID,
		ZipCode:       p.ZipCode,
		AssignedStaff: p.AssignedStaff,
	})
}

// UnmarshalJSON rejects records carrying only one coordinate half.
func (p *Patient) UnmarshalJSON(data []byte) error {
	var raw patientJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "model: decode patient")
	}
	loc, err := NewCoordinates(raw.Latitude, raw.Longitude)
	if err != nil {
		return err
	}
	*p = Patient{
		ID:            raw.ID,
		Name:          raw.Name,
		Address:       raw.Address,
		TypeOfCare:    raw.TypeOfCare,
		Status:        raw.Status,
		ZipCode:       raw.ZipCode,
		Location:      loc,
		ClusterID:     raw.ClusterID,
		AssignedStaff: raw.AssignedStaff,
	}
	return nil
}

// PatientUpdate is a partial update of a patient's derived fields. Fields
// whose Set flag is false are left untouched; a nil AssignedStaff with
// SetStaff clears the assignment.
type PatientUpdate struct {
	SetLocation   bool
	Location      Coordinates
	SetStaff      bool
	AssignedStaff *string
}

// Empty reports whether the update would change nothing.
func (u PatientUpdate) Empty() bool {
	return !u.SetLocation && !u.SetStaff
}
