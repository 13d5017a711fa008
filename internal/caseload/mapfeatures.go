package caseload

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/caseload-router/internal/assign"
	"github.com/sells-group/caseload-router/internal/model"
	"github.com/sells-group/caseload-router/internal/store"
)

// Feature kinds in the map export.
const (
	KindPatient = "patient"
	KindStaff   = "staff"
	KindCluster = "cluster"
)

// MapFeatures renders located patients and staff as GeoJSON points, plus one
// convex-hull territory per cluster. Records without coordinates are left
// out. Positions are [longitude, latitude].
func (s *Service) MapFeatures(ctx context.Context) (*geojson.FeatureCollection, error) {
	patients, err := s.store.ListPatients(ctx, store.PatientFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "caseload: map read patients")
	}
	staff, err := s.store.ListStaff(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "caseload: map read staff")
	}

	fc := &geojson.FeatureCollection{}
	bounds := geom.NewBounds(geom.XY)
	members := make(map[int][]model.Coordinates)

	for _, p := range patients {
		if !p.Location.Valid {
			continue
		}
		pt := point(p.Location)
		bounds.Extend(pt)
		props := map[string]interface{}{
			"kind":           KindPatient,
			"name":           p.Name,
			"type_of_care":   p.TypeOfCare,
			"status":         p.Status,
			"assigned_staff": p.AssignedStaff,
			"cluster_id":     p.ClusterID,
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         "patient-" + strconv.FormatInt(p.ID, 10),
			Geometry:   pt,
			Properties: props,
		})
		if p.ClusterID != nil {
			members[*p.ClusterID] = append(members[*p.ClusterID], p.Location)
		}
	}

	for _, st := range staff {
		if !st.Location.Valid {
			continue
		}
		pt := point(st.Location)
		bounds.Extend(pt)
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       "staff-" + strconv.FormatInt(st.ID, 10),
			Geometry: pt,
			Properties: map[string]interface{}{
				"kind":         KindStaff,
				"name":         st.Name,
				"max_capacity": st.MaxCapacity,
			},
		})
	}

	proposal := assign.Assign(patients, staff)
	for _, label := range assign.Labels(members) {
		hull := territory(members[label])
		if hull == nil {
			continue
		}
		props := map[string]interface{}{
			"kind":       KindCluster,
			"cluster_id": label,
			"patients":   len(members[label]),
		}
		if name, ok := proposal[label]; ok {
			props["proposed_staff"] = name
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         "cluster-" + strconv.Itoa(label),
			Geometry:   hull,
			Properties: props,
		})
	}

	if len(fc.Features) > 0 {
		fc.BBox = bounds
	}
	return fc, nil
}

func point(c model.Coordinates) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{c.Lng, c.Lat})
}

// territory returns the convex hull of a cluster's locations: a Point for a
// single distinct location, a LineString for two or a collinear set, and a
// Polygon otherwise.
func territory(locs []model.Coordinates) geom.T {
	seen := make(map[[2]float64]struct{}, len(locs))
	flat := make([]float64, 0, 2*len(locs))
	for _, c := range locs {
		k := [2]float64{c.Lng, c.Lat}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		flat = append(flat, c.Lng, c.Lat)
	}
	if len(flat) == 0 {
		return nil
	}
	return xy.ConvexHullFlat(geom.XY, flat)
}
