package caseload

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/caseload-router/internal/model"
)

func TestStaffLoads(t *testing.T) {
	st := newTestStore(t)
	seedStaff(t, st,
		model.Staff{Name: "A", HomeBaseAddress: "a", MaxCapacity: 2},
		model.Staff{Name: "B", HomeBaseAddress: "b"},
		model.Staff{Name: "C", HomeBaseAddress: "c", MaxCapacity: 5},
	)
	for _, name := range []string{"A", "a ", "A", "B"} {
		seedPatient(t, st, model.Patient{Name: "p", Address: "x", AssignedStaff: ptr(name)})
	}
	seedPatient(t, st, model.Patient{Name: "p", Address: "x"})

	loads, err := NewService(st, &stubGeocoder{}).StaffLoads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.StaffLoad{
		{Name: "A", Current: 3, Max: 2, OverCapacity: true},
		{Name: "B", Current: 1, Max: DefaultCapacity},
		{Name: "C", Current: 0, Max: 5},
	}, loads)
}

func TestStaffLoads_ConfiguredDefault(t *testing.T) {
	st := newTestStore(t)
	seedStaff(t, st, model.Staff{Name: "A", HomeBaseAddress: "a"})
	seedPatient(t, st, model.Patient{Name: "p", Address: "x", AssignedStaff: ptr("A")})
	seedPatient(t, st, model.Patient{Name: "q", Address: "y", AssignedStaff: ptr("A")})

	loads, err := NewService(st, &stubGeocoder{}, WithDefaultCapacity(1)).StaffLoads(context.Background())
	require.NoError(t, err)
	require.Len(t, loads, 1)
	assert.True(t, loads[0].OverCapacity)
	assert.Equal(t, 1, loads[0].Max)
}

func TestBackfillStaff(t *testing.T) {
	st := newTestStore(t)
	seedStaff(t, st,
		model.Staff{Name: "A", HomeBaseAddress: "known", Location: model.Coordinates{}},
		model.Staff{Name: "B", HomeBaseAddress: "lost"},
		model.Staff{Name: "C", HomeBaseAddress: "done", Location: model.At(1, 1)},
	)
	geo := &stubGeocoder{results: map[string]model.Coordinates{"known": model.At(4, 5)}}

	res, err := NewService(st, geo).BackfillStaff(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BackfillResult{Visited: 2, Located: 1, NotFound: 1}, res)
	assert.Equal(t, []string{"known", "lost"}, geo.calls)

	staff, err := st.ListStaff(context.Background())
	require.NoError(t, err)
	assert.True(t, staff[0].Location.Equal(model.At(4, 5)))
	assert.False(t, staff[1].Location.Valid)
	assert.True(t, staff[2].Location.Equal(model.At(1, 1)))
}

type featureJSON struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Geometry struct {
		Type string `json:"type"`
	} `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

func TestMapFeatures(t *testing.T) {
	st := newTestStore(t)
	seedStaff(t, st,
		model.Staff{Name: "A", HomeBaseAddress: "a", Location: model.At(1, 1)},
		model.Staff{Name: "Ghost", HomeBaseAddress: "?"},
	)
	for _, c := range []model.Coordinates{model.At(0, 0), model.At(0, 2), model.At(2, 2), model.At(2, 0), model.At(1, 1)} {
		seedPatient(t, st, model.Patient{Name: "sq", Address: "x", ClusterID: ptr(0), Location: c})
	}
	seedPatient(t, st, model.Patient{Name: "solo", Address: "x", ClusterID: ptr(1), Location: model.At(9, 9)})
	seedPatient(t, st, model.Patient{Name: "nowhere", Address: "x", ClusterID: ptr(2)})

	fc, err := NewService(st, &stubGeocoder{}).MapFeatures(context.Background())
	require.NoError(t, err)

	data, err := json.Marshal(fc)
	require.NoError(t, err)

	var decoded struct {
		Type     string        `json:"type"`
		BBox     []float64     `json:"bbox"`
		Features []featureJSON `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded.Type)
	assert.Equal(t, []float64{0, 0, 9, 9}, decoded.BBox)

	kinds := map[string]int{}
	byID := map[string]featureJSON{}
	for _, f := range decoded.Features {
		kinds[f.Properties["kind"].(string)]++
		byID[f.ID] = f
	}
	assert.Equal(t, map[string]int{KindPatient: 6, KindStaff: 1, KindCluster: 2}, kinds)

	square := byID["cluster-0"]
	assert.Equal(t, "Polygon", square.Geometry.Type)
	assert.Equal(t, "A", square.Properties["proposed_staff"])
	assert.EqualValues(t, 5, square.Properties["patients"])

	assert.Equal(t, "Point", byID["cluster-1"].Geometry.Type)
	assert.NotContains(t, byID, "cluster-2")
	assert.Equal(t, "Point", byID["staff-1"].Geometry.Type)
}

func TestMapFeatures_Empty(t *testing.T) {
	fc, err := NewService(newTestStore(t), &stubGeocoder{}).MapFeatures(context.Background())
	require.NoError(t, err)
	assert.Empty(t, fc.Features)
	assert.Nil(t, fc.BBox)
}
