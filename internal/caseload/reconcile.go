package caseload

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/caseload-router/internal/metrics"
	"github.com/sells-group/caseload-router/internal/model"
	"github.com/sells-group/caseload-router/internal/proximity"
	"github.com/sells-group/caseload-router/internal/store"
)

// ProcessUnassigned visits every patient missing coordinates or an assigned
// staff member, geocodes the address when coordinates are absent, and assigns
// the nearest staff member when coordinates are present. A geocoding miss
// does not skip the patient. Patients run one at a time; each patient's
// changes are written before the next is visited, so a store error leaves
// earlier patients updated.
//
// The returned count is the number of patients visited, not resolved.
func (s *Service) ProcessUnassigned(ctx context.Context) (int, error) {
	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID))
	metrics.ReconcileRunsTotal.Inc()

	staff, err := s.store.ListStaff(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "caseload: reconcile read staff")
	}
	candidates := proximity.StaffCandidates(staff)

	patients, err := s.store.ListPatients(ctx, store.PatientFilter{Unresolved: true})
	if err != nil {
		return 0, eris.Wrap(err, "caseload: reconcile read patients")
	}

	log.Info("reconcile: starting", zap.Int("patients", len(patients)), zap.Int("staff", len(staff)))

	var visited, located, assigned int
	for _, p := range patients {
		if !p.Unresolved() {
			continue
		}
		visited++

		upd, outcome, err := s.reconcileOne(ctx, p, candidates)
		if err != nil {
			metrics.ReconcilePatientsTotal.WithLabelValues(metrics.OutcomeError).Inc()
			return visited - 1, err
		}
		metrics.ReconcilePatientsTotal.WithLabelValues(outcome).Inc()

		if upd.Empty() {
			log.Debug("reconcile: no change", zap.Int64("patient_id", p.ID), zap.String("outcome", outcome))
			continue
		}
		if err := s.store.UpdatePatient(ctx, p.ID, upd); err != nil {
			metrics.ReconcilePatientsTotal.WithLabelValues(metrics.OutcomeError).Inc()
			log.Error("reconcile: persist failed", zap.Int64("patient_id", p.ID), zap.Error(err))
			return visited - 1, eris.Wrapf(err, "caseload: reconcile persist patient %d", p.ID)
		}
		if upd.SetLocation {
			located++
		}
		if upd.SetStaff {
			assigned++
		}
	}

	log.Info("reconcile: complete",
		zap.Int("visited", visited),
		zap.Int("located", located),
		zap.Int("assigned", assigned),
	)
	return visited, nil
}

// reconcileOne computes the changes for a single patient. Only fields whose
// value differs from the stored record are set, so re-running over unchanged
// data produces no writes.
func (s *Service) reconcileOne(ctx context.Context, p model.Patient, candidates []proximity.Candidate) (model.PatientUpdate, string, error) {
	var upd model.PatientUpdate
	loc := p.Location

	if !loc.Valid {
		resolved, err := s.resolve(ctx, p.Address)
		if err != nil {
			return upd, metrics.OutcomeError, err
		}
		if resolved.Valid {
			loc = resolved
			upd.SetLocation = true
			upd.Location = resolved
		} else {
			zap.L().Warn("reconcile: address not found", zap.Int64("patient_id", p.ID))
		}
	}

	if !loc.Valid {
		return upd, metrics.OutcomeNotFound, nil
	}

	name, ok := proximity.Nearest(loc, candidates)
	if !ok {
		return upd, metrics.OutcomeUnmatched, nil
	}
	if p.AssignedStaff == nil || *p.AssignedStaff != name {
		upd.SetStaff = true
		upd.AssignedStaff = &name
	}
	return upd, metrics.OutcomeMatched, nil
}
