// Package assign proposes a staff member for each patient cluster by matching
// the cluster centroid to the nearest staff home base.
package assign

import (
	"sort"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/caseload-router/internal/model"
	"github.com/sells-group/caseload-router/internal/proximity"
)

// Proposal maps a cluster label to the name of the proposed staff member.
// It encodes to JSON as an object keyed by the decimal label.
type Proposal map[int]string

// Stats describes the input Assign skipped.
type Stats struct {
	Clusters          int // distinct labels seen
	Unlabeled         int // patients without a cluster label, not assigned
	MissingLocation   int // labelled patients left out of centroid averaging
	UnmatchedClusters int // clusters with no centroid or no staff match
}

// Centroids returns the arithmetic mean location of each cluster. Patients
// without a label or without coordinates do not contribute; a cluster whose
// members all lack coordinates has no centroid.
func Centroids(patients []model.Patient) map[int]model.Coordinates {
	calcs := make(map[int]*xy.PointCentroidCalculator)
	for _, p := range patients {
		if p.ClusterID == nil || !p.Location.Valid {
			continue
		}
		calc, ok := calcs[*p.ClusterID]
		if !ok {
			c := xy.NewPointCentroidCalculator()
			calc = &c
			calcs[*p.ClusterID] = calc
		}
		calc.AddCoord(geom.Coord{p.Location.Lng, p.Location.Lat})
	}

	out := make(map[int]model.Coordinates, len(calcs))
	for label, calc := range calcs {
		c := calc.GetCentroid()
		out[label] = model.At(c.Y(), c.X())
	}
	return out
}

// Assign maps each cluster to the staff member nearest its centroid. Staff
// capacity is not considered, so one staff member may receive several
// clusters. Clusters without a centroid or without a staff match are omitted.
func Assign(patients []model.Patient, staff []model.Staff) Proposal {
	p, _ := AssignWithStats(patients, staff)
	return p
}

// AssignWithStats is Assign that also reports what was skipped.
func AssignWithStats(patients []model.Patient, staff []model.Staff) (Proposal, Stats) {
	var stats Stats
	labels := make(map[int]struct{})
	for _, p := range patients {
		switch {
		case p.ClusterID == nil:
			stats.Unlabeled++
			continue
		case !p.Location.Valid:
			stats.MissingLocation++
		}
		labels[*p.ClusterID] = struct{}{}
	}
	stats.Clusters = len(labels)

	centroids := Centroids(patients)
	candidates := proximity.StaffCandidates(staff)

	proposal := make(Proposal, len(centroids))
	for _, label := range Labels(labels) {
		center, ok := centroids[label]
		if !ok {
			stats.UnmatchedClusters++
			continue
		}
		name, ok := proximity.Nearest(center, candidates)
		if !ok {
			stats.UnmatchedClusters++
			continue
		}
		proposal[label] = name
	}
	return proposal, stats
}

// Labels returns the keys of a label set in ascending order.
func Labels[V any](m map[int]V) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
