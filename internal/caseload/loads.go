package caseload

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"

	"github.com/sells-group/caseload-router/internal/model"
	"github.com/sells-group/caseload-router/internal/store"
)

// StaffLoads reports how many patients reference each staff member against
// that member's capacity. Staff names are matched case-insensitively. It does
// not move patients.
func (s *Service) StaffLoads(ctx context.Context) ([]model.StaffLoad, error) {
	staff, err := s.store.ListStaff(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "caseload: loads read staff")
	}
	patients, err := s.store.ListPatients(ctx, store.PatientFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "caseload: loads read patients")
	}

	fold := cases.Fold()
	counts := make(map[string]int, len(staff))
	for _, p := range patients {
		if p.AssignedStaff != nil {
			counts[fold.String(trim(*p.AssignedStaff))]++
		}
	}

	loads := make([]model.StaffLoad, 0, len(staff))
	for _, st := range staff {
		limit := st.MaxCapacity
		if limit <= 0 {
			limit = s.defaultCapacity
		}
		current := counts[fold.String(trim(st.Name))]
		loads = append(loads, model.StaffLoad{
			Name:         st.Name,
			Current:      current,
			Max:          limit,
			OverCapacity: current > limit,
		})
	}
	return loads, nil
}
