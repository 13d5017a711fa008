// Package caseload ties the record store, the geocoder, and the matching core
// together into the operations exposed over HTTP and the CLI.
package caseload

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/caseload-router/internal/assign"
	"github.com/sells-group/caseload-router/internal/model"
	"github.com/sells-group/caseload-router/internal/store"
	"github.com/sells-group/caseload-router/pkg/geocode"
)

// DefaultCapacity is the caseload limit reported for staff whose record
// carries no max_capacity.
const DefaultCapacity = 10

// Service runs caseload operations against a Store. Every call re-reads
// current state; nothing is cached between calls.
type Service struct {
	store           store.Store
	geocoder        geocode.Client
	defaultCapacity int
}

// Option configures a Service.
type Option func(*Service)

// WithDefaultCapacity overrides DefaultCapacity. Non-positive values are ignored.
func WithDefaultCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultCapacity = n
		}
	}
}

// NewService creates a Service.
func NewService(st store.Store, gc geocode.Client, opts ...Option) *Service {
	s := &Service{
		store:           st,
		geocoder:        gc,
		defaultCapacity: DefaultCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidationError reports a malformed request. It matches ErrValidation
// under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

// ErrValidation is the sentinel all ValidationErrors match.
var ErrValidation = eris.New("caseload: invalid input")

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ListPatients returns patients ordered by id, restricted to one cluster
// when clusterID is set.
func (s *Service) ListPatients(ctx context.Context, clusterID *int) ([]model.Patient, error) {
	ps, err := s.store.ListPatients(ctx, store.PatientFilter{ClusterID: clusterID})
	if err != nil {
		return nil, eris.Wrap(err, "caseload: list patients")
	}
	return ps, nil
}

// ListStaff returns every staff member ordered by id.
func (s *Service) ListStaff(ctx context.Context) ([]model.Staff, error) {
	st, err := s.store.ListStaff(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "caseload: list staff")
	}
	return st, nil
}

// ProposeAssignments computes the nearest staff member for each patient
// cluster. Nothing is written.
func (s *Service) ProposeAssignments(ctx context.Context) (assign.Proposal, error) {
	patients, err := s.store.ListClusteredPatients(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "caseload: read clustered patients")
	}
	staff, err := s.store.ListStaff(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "caseload: read staff")
	}

	proposal, stats := assign.AssignWithStats(patients, staff)
	zap.L().Info("assignment proposal computed",
		zap.Int("clusters", stats.Clusters),
		zap.Int("assigned", len(proposal)),
		zap.Int("unmatched_clusters", stats.UnmatchedClusters),
		zap.Int("patients_missing_location", stats.MissingLocation),
	)
	return proposal, nil
}

// AssignmentInput is one row of an accepted proposal. A nil AssignedStaff
// clears the patient's assignment.
type AssignmentInput struct {
	PatientID     int64   `json:"patient_id"`
	AssignedStaff *string `json:"assigned_staff"`
}

// SaveAssignments validates every row, then applies them in order. It stops
// at the first store failure; rows applied before it stay applied.
func (s *Service) SaveAssignments(ctx context.Context, rows []AssignmentInput) (int, error) {
	for i, row := range rows {
		if row.PatientID <= 0 {
			return 0, invalid(fmt.Sprintf("[%d].patient_id", i), "must be a positive integer")
		}
		if row.AssignedStaff != nil && trim(*row.AssignedStaff) == "" {
			return 0, invalid(fmt.Sprintf("[%d].assigned_staff", i), "must be null or a non-empty name")
		}
	}

	for i, row := range rows {
		upd := model.PatientUpdate{SetStaff: true, AssignedStaff: row.AssignedStaff}
		if err := s.store.UpdatePatient(ctx, row.PatientID, upd); err != nil {
			return i, eris.Wrapf(err, "caseload: save assignment for patient %d", row.PatientID)
		}
	}

	zap.L().Info("assignments saved", zap.Int("rows", len(rows)))
	return len(rows), nil
}
