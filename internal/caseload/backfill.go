package caseload

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// BackfillResult summarizes a staff geocoding pass.
type BackfillResult struct {
	Visited  int `json:"visited"`
	Located  int `json:"located"`
	NotFound int `json:"not_found"`
}

// BackfillStaff geocodes the home base of every staff member without
// coordinates. Misses are counted and left absent.
func (s *Service) BackfillStaff(ctx context.Context) (BackfillResult, error) {
	var res BackfillResult
	log := zap.L().With(zap.String("run_id", uuid.NewString()))

	staff, err := s.store.ListStaff(ctx)
	if err != nil {
		return res, eris.Wrap(err, "caseload: backfill read staff")
	}

	for _, st := range staff {
		if st.Location.Valid {
			continue
		}
		res.Visited++

		loc, err := s.resolve(ctx, st.HomeBaseAddress)
		if err != nil {
			return res, err
		}
		if !loc.Valid {
			res.NotFound++
			log.Warn("backfill: home base not found", zap.Int64("staff_id", st.ID), zap.String("name", st.Name))
			continue
		}
		if err := s.store.UpdateStaffLocation(ctx, st.ID, loc); err != nil {
			return res, eris.Wrapf(err, "caseload: backfill persist staff %d", st.ID)
		}
		res.Located++
	}

	log.Info("backfill: complete",
		zap.Int("visited", res.Visited),
		zap.Int("located", res.Located),
		zap.Int("not_found", res.NotFound),
	)
	return res, nil
}
