package caseload

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/caseload-router/internal/model"
	"github.com/sells-group/caseload-router/internal/proximity"
)

// PatientInput is the add-patient payload.
type PatientInput struct {
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	TypeOfCare string   `json:"type_of_care"`
	Status     string   `json:"status"`
	ZipCode    string   `json:"zip_code"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	ClusterID  *int     `json:"cluster_id"`
}

// StaffInput is the add-staff payload.
type StaffInput struct {
	Name            string   `json:"name"`
	HomeBaseAddress string   `json:"home_base_address"`
	MaxCapacity     int      `json:"max_capacity"`
	ZipCode         string   `json:"zip_code"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
}

func (in PatientInput) toModel() (model.Patient, error) {
	p := model.Patient{
		Name:       trim(in.Name),
		Address:    trim(in.Address),
		TypeOfCare: trim(in.TypeOfCare),
		Status:     trim(in.Status),
		ZipCode:    trim(in.ZipCode),
		ClusterID:  in.ClusterID,
	}
	if p.Name == "" {
		return p, invalid("name", "is required")
	}
	if p.Address == "" {
		return p, invalid("address", "is required")
	}
	loc, err := model.NewCoordinates(in.Latitude, in.Longitude)
	if err != nil {
		return p, invalid("latitude/longitude", coordinateReason(err))
	}
	p.Location = loc
	return p, nil
}

func (in StaffInput) toModel() (model.Staff, error) {
	st := model.Staff{
		Name:            trim(in.Name),
		HomeBaseAddress: trim(in.HomeBaseAddress),
		MaxCapacity:     in.MaxCapacity,
		ZipCode:         trim(in.ZipCode),
	}
	if st.Name == "" {
		return st, invalid("name", "is required")
	}
	if st.HomeBaseAddress == "" {
		return st, invalid("home_base_address", "is required")
	}
	if st.MaxCapacity < 0 {
		return st, invalid("max_capacity", "must not be negative")
	}
	loc, err := model.NewCoordinates(in.Latitude, in.Longitude)
	if err != nil {
		return st, invalid("latitude/longitude", coordinateReason(err))
	}
	st.Location = loc
	return st, nil
}

func coordinateReason(err error) string {
	if errors.Is(err, model.ErrCoordinateRange) {
		return "must be finite, latitude within [-90, 90] and longitude within [-180, 180]"
	}
	return "must be provided together"
}

// AddPatient stores a new patient. Missing coordinates are geocoded from the
// address; when the patient ends up with coordinates the nearest staff member
// is assigned. An unresolvable address still stores the patient.
func (s *Service) AddPatient(ctx context.Context, in PatientInput) (*model.Patient, error) {
	p, err := in.toModel()
	if err != nil {
		return nil, err
	}

	if !p.Location.Valid {
		p.Location, err = s.resolve(ctx, p.Address)
		if err != nil {
			return nil, err
		}
	}

	if p.Location.Valid {
		staff, err := s.store.ListStaff(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "caseload: read staff for intake")
		}
		if name, ok := proximity.Nearest(p.Location, proximity.StaffCandidates(staff)); ok {
			p.AssignedStaff = &name
		}
	}

	id, err := s.store.InsertPatient(ctx, p)
	if err != nil {
		return nil, eris.Wrap(err, "caseload: insert patient")
	}
	p.ID = id

	zap.L().Info("patient added",
		zap.Int64("patient_id", id),
		zap.Bool("located", p.Location.Valid),
		zap.Bool("assigned", p.AssignedStaff != nil),
	)
	return &p, nil
}

// AddStaff stores a new staff member, geocoding the home base when no
// coordinates are supplied.
func (s *Service) AddStaff(ctx context.Context, in StaffInput) (*model.Staff, error) {
	st, err := in.toModel()
	if err != nil {
		return nil, err
	}

	if !st.Location.Valid {
		st.Location, err = s.resolve(ctx, st.HomeBaseAddress)
		if err != nil {
			return nil, err
		}
	}

	id, err := s.store.InsertStaff(ctx, st)
	if err != nil {
		return nil, eris.Wrap(err, "caseload: insert staff")
	}
	st.ID = id

	zap.L().Info("staff added", zap.Int64("staff_id", id), zap.Bool("located", st.Location.Valid))
	return &st, nil
}

// resolve geocodes address. An unmatched lookup yields absent coordinates and
// a nil error; only cancellation is returned.
func (s *Service) resolve(ctx context.Context, address string) (model.Coordinates, error) {
	r, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		return model.Coordinates{}, eris.Wrap(err, "caseload: geocode")
	}
	if !r.Matched {
		return model.Coordinates{}, nil
	}
	return model.At(r.Latitude, r.Longitude), nil
}

func trim(s string) string { return strings.TrimSpace(s) }
