// Package proximity selects the candidate closest to a reference point.
//
// Distance is squared Euclidean distance on raw (latitude, longitude) pairs,
// not great-circle distance. The approximation holds only at regional scale:
// a degree of longitude shrinks with latitude, so east-west separation is
// overstated away from the equator. Matching is a linear scan over the
// candidates; a grid or k-d tree index is the extension point if staff counts
// grow well beyond a regional roster.
package proximity

import (
	"math"

	"github.com/sells-group/caseload-router/internal/model"
)

// Candidate is a labelled location that can be matched against a point.
type Candidate struct {
	Label    string
	Location model.Coordinates
}

// SquaredDistance returns the squared planar distance between two present
// coordinate pairs.
func SquaredDistance(a, b model.Coordinates) float64 {
	dLat := a.Lat - b.Lat
	dLng := a.Lng - b.Lng
	return dLat*dLat + dLng*dLng
}

// Nearest returns the label of the candidate closest to point. Candidates
// without coordinates, or whose distance is NaN, are skipped; on equal distance the earlier candidate
// wins. ok is false when point is absent or no candidate has coordinates.
func Nearest(point model.Coordinates, candidates []Candidate) (label string, ok bool) {
	if !point.Valid {
		return "", false
	}

	var best float64
	for _, c := range candidates {
		if !c.Location.Valid {
			continue
		}
		d := SquaredDistance(point, c.Location)
		if math.IsNaN(d) {
			continue
		}
		if !ok || d < best {
			best, label, ok = d, c.Label, true
		}
	}
	return label, ok
}

// StaffCandidates converts staff to candidates labelled by name, preserving
// input order. Staff without coordinates are kept so Nearest does the
// filtering in one place.
func StaffCandidates(staff []model.Staff) []Candidate {
	out := make([]Candidate, len(staff))
	for i, s := range staff {
		out[i] = Candidate{Label: s.Name, Location: s.Location}
	}
	return out
}
