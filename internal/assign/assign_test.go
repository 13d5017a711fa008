package assign

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/caseload-router/internal/model"
)

func label(v int) *int { return &v }

func patient(id int64, cluster *int, loc model.Coordinates) model.Patient {
	return model.Patient{ID: id, ClusterID: cluster, Location: loc}
}

func TestAssign_NearestStaffPerCluster(t *testing.T) {
	t.Parallel()

	patients := []model.Patient{
		patient(1, label(0), model.At(10, 10)),
		patient(2, label(0), model.At(12, 12)),
	}
	staff := []model.Staff{
		{Name: "A", Location: model.At(11, 11)},
		{Name: "B", Location: model.At(50, 50)},
	}

	got := Assign(patients, staff)
	assert.Equal(t, Proposal{0: "A"}, got)

	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"0":"A"}`, string(data))
}

func TestAssign_MultipleClustersSameStaff(t *testing.T) {
	t.Parallel()

	patients := []model.Patient{
		patient(1, label(0), model.At(0, 0)),
		patient(2, label(1), model.At(1, 1)),
		patient(3, label(2), model.At(40, 40)),
	}
	staff := []model.Staff{
		{Name: "A", Location: model.At(0.5, 0.5)},
		{Name: "B", Location: model.At(41, 41)},
	}

	got := Assign(patients, staff)
	assert.Equal(t, Proposal{0: "A", 1: "A", 2: "B"}, got)
}

func TestAssign_EmptyInputs(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Assign(nil, []model.Staff{{Name: "A", Location: model.At(1, 1)}}))

	got := Assign([]model.Patient{patient(1, label(0), model.At(1, 1))}, nil)
	assert.Empty(t, got)
}

func TestAssign_NoStaffWithCoordinates(t *testing.T) {
	t.Parallel()

	patients := []model.Patient{patient(1, label(3), model.At(1, 1))}
	got, stats := AssignWithStats(patients, []model.Staff{{Name: "A"}, {Name: "B"}})
	assert.Empty(t, got)
	assert.Equal(t, 1, stats.UnmatchedClusters)
}

func TestAssign_UnlabeledPatientsDropped(t *testing.T) {
	t.Parallel()

	patients := []model.Patient{
		patient(1, nil, model.At(100, 100)),
		patient(2, label(5), model.At(1, 1)),
	}
	staff := []model.Staff{
		{Name: "near-unlabeled", Location: model.At(100, 100)},
		{Name: "near-cluster", Location: model.At(2, 2)},
	}

	got, stats := AssignWithStats(patients, staff)
	assert.Equal(t, Proposal{5: "near-cluster"}, got)
	assert.Equal(t, 1, stats.Unlabeled)
	assert.Equal(t, 1, stats.Clusters)
}

func TestAssign_ClusterWithoutCoordinatesOmitted(t *testing.T) {
	t.Parallel()

	patients := []model.Patient{
		patient(1, label(0), model.Coordinates{}),
		patient(2, label(0), model.Coordinates{}),
		patient(3, label(1), model.At(5, 5)),
	}
	staff := []model.Staff{{Name: "A", Location: model.At(0, 0)}}

	got, stats := AssignWithStats(patients, staff)
	assert.Equal(t, Proposal{1: "A"}, got)
	assert.Equal(t, 2, stats.MissingLocation)
	assert.Equal(t, 1, stats.UnmatchedClusters)
}

func TestAssign_OnlyKnownLabelsAndStaff(t *testing.T) {
	t.Parallel()

	patients := []model.Patient{
		patient(1, label(7), model.At(3, 3)),
		patient(2, label(9), model.At(-3, 8)),
		patient(3, label(7), model.At(4, 1)),
		patient(4, label(11), model.Coordinates{}),
	}
	staff := []model.Staff{
		{Name: "S1", Location: model.At(0, 0)},
		{Name: "S2"},
		{Name: "S3", Location: model.At(-5, 9)},
	}
	knownLabels := map[int]bool{7: true, 9: true, 11: true}
	knownStaff := map[string]bool{"S1": true, "S2": true, "S3": true}

	for lbl, name := range Assign(patients, staff) {
		assert.True(t, knownLabels[lbl], "unexpected label %d", lbl)
		assert.True(t, knownStaff[name], "unexpected staff %q", name)
		assert.NotEqual(t, "S2", name, "staff without coordinates must never be assigned")
	}
}

func TestCentroids_Mean(t *testing.T) {
	t.Parallel()

	got := Centroids([]model.Patient{
		patient(1, label(0), model.At(10, 10)),
		patient(2, label(0), model.At(12, 14)),
		patient(3, label(0), model.Coordinates{}), // excluded from the denominator
		patient(4, nil, model.At(90, 90)),
	})
	require.Len(t, got, 1)
	assert.InDelta(t, 11.0, got[0].Lat, 1e-9)
	assert.InDelta(t, 12.0, got[0].Lng, 1e-9)
}

func TestCentroids_WithinBoundingBox(t *testing.T) {
	t.Parallel()

	clusters := map[int][]model.Coordinates{
		0: {model.At(36.1, -86.7), model.At(36.2, -86.9), model.At(35.9, -86.6)},
		1: {model.At(-12, 40)},
		2: {model.At(1, 1), model.At(1, 1), model.At(3, -7), model.At(-4, 2)},
	}

	var patients []model.Patient
	var id int64
	for lbl, locs := range clusters {
		for _, loc := range locs {
			id++
			patients = append(patients, patient(id, label(lbl), loc))
		}
	}

	centroids := Centroids(patients)
	require.Len(t, centroids, len(clusters))
	for lbl, locs := range clusters {
		bounds := geom.NewBounds(geom.XY)
		for _, loc := range locs {
			bounds.Extend(geom.NewPointFlat(geom.XY, []float64{loc.Lng, loc.Lat}))
		}
		c := centroids[lbl]
		assert.True(t, bounds.OverlapsPoint(geom.XY, geom.Coord{c.Lng, c.Lat}),
			"centroid of cluster %d outside its bounding box", lbl)
	}
}

func TestLabels_Sorted(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{-1, 0, 4}, Labels(map[int]string{4: "a", -1: "b", 0: "c"}))
}
