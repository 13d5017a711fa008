// Package store persists patient and staff records. PostgresStore is the
// production backend; SQLiteStore serves local runs and tests.
package store

import (
	"context"
	"errors"

	"github.com/sells-group/caseload-router/internal/model"
)

// ErrNotFound is returned when an update targets a record that does not exist.
var ErrNotFound = errors.New("store: record not found")

// PatientFilter narrows ListPatients.
type PatientFilter struct {
	// Unresolved selects patients missing coordinates or an assigned staff member.
	Unresolved bool
	ClusterID  *int
}

// Store defines the persistence interface for patients and staff.
type Store interface {
	// Patients
	ListPatients(ctx context.Context, filter PatientFilter) ([]model.Patient, error)
	ListClusteredPatients(ctx context.Context) ([]model.Patient, error)
	UpdatePatient(ctx context.Context, id int64, upd model.PatientUpdate) error
	InsertPatient(ctx context.Context, p model.Patient) (int64, error)
	InsertPatients(ctx context.Context, ps []model.Patient) (int64, error)
	SetClusterLabels(ctx context.Context, labels map[int64]int) (int64, error)

	// Staff
	ListStaff(ctx context.Context) ([]model.Staff, error)
	UpdateStaffLocation(ctx context.Context, id int64, loc model.Coordinates) error
	InsertStaff(ctx context.Context, s model.Staff) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const patientColumns = "id, name, address, type_of_care, status, zip_code, latitude, longitude, cluster_id, assigned_staff"

const staffColumns = "id, name, home_base_address, max_capacity, zip_code, latitude, longitude"

// scanner is satisfied by pgx.Row, pgx.Rows, and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPatient(s scanner) (model.Patient, error) {
	var p model.Patient
	var lat, lng *float64
	if err := s.Scan(&p.ID, &p.Name, &p.Address, &p.TypeOfCare, &p.Status, &p.ZipCode,
		&lat, &lng, &p.ClusterID, &p.AssignedStaff); err != nil {
		return model.Patient{}, err
	}
	p.Location = pairedOrAbsent(lat, lng)
	return p, nil
}

func scanStaff(s scanner) (model.Staff, error) {
	var st model.Staff
	var lat, lng *float64
	if err := s.Scan(&st.ID, &st.Name, &st.HomeBaseAddress, &st.MaxCapacity, &st.ZipCode, &lat, &lng); err != nil {
		return model.Staff{}, err
	}
	st.Location = pairedOrAbsent(lat, lng)
	return st, nil
}

// pairedOrAbsent treats a half-populated pair as absent.
func pairedOrAbsent(lat, lng *float64) model.Coordinates {
	c, err := model.NewCoordinates(lat, lng)
	if err != nil {
		return model.Coordinates{}
	}
	return c
}

// nullable converts a typed pointer into a driver value, nil for NULL.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func patientArgs(p model.Patient) []any {
	lat, lng := p.Location.Ptrs()
	return []any{
		p.Name, p.Address, p.TypeOfCare, p.Status, p.ZipCode,
		nullable(lat), nullable(lng), nullable(p.ClusterID), nullable(p.AssignedStaff),
	}
}

func staffArgs(s model.Staff) []any {
	lat, lng := s.Location.Ptrs()
	return []any{s.Name, s.HomeBaseAddress, s.MaxCapacity, s.ZipCode, nullable(lat), nullable(lng)}
}

var insertPatientColumns = []string{"name", "address", "type_of_care", "status", "zip_code", "latitude", "longitude", "cluster_id", "assigned_staff"}
