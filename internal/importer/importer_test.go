package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/caseload-router/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func createTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadRows_CSV(t *testing.T) {
	path := writeFile(t, "patients.csv", "name,address\nAda,\"1 Elm St, Apt 2\"\nBo,2 Oak Ave\n")

	rows, err := ReadRows(path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"name", "address"},
		{"Ada", "1 Elm St, Apt 2"},
		{"Bo", "2 Oak Ave"},
	}, rows)
}

func TestReadRows_XLSX(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"Name", "Home Base Address"},
		{"Eve", "9 Depot Rd"},
	})

	rows, err := ReadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Eve", "9 Depot Rd"}, rows[1])
}

func TestReadRows_Unsupported(t *testing.T) {
	_, err := ReadRows(writeFile(t, "data.json", "[]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestReadRows_Missing(t *testing.T) {
	_, err := ReadRows(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestPatients(t *testing.T) {
	rows := [][]string{
		{"\ufeffName", "Address", "Type of Care", "status", "latitude", "longitude", "cluster_id", "assigned_staff"},
		{"Ada", "1 Elm St", "nursing", "active", "36.1", "-86.7", "2.0", "A"},
		{"", "", "", "", "", "", "", ""},
		{"Bo", "2 Oak Ave", "therapy", "", "", "", "", ""},
	}

	ps, err := Patients(rows)
	require.NoError(t, err)
	require.Len(t, ps, 2)

	assert.Equal(t, "Ada", ps[0].Name)
	assert.Equal(t, "nursing", ps[0].TypeOfCare)
	assert.True(t, ps[0].Location.Equal(model.At(36.1, -86.7)))
	require.NotNil(t, ps[0].ClusterID)
	assert.Equal(t, 2, *ps[0].ClusterID)
	require.NotNil(t, ps[0].AssignedStaff)
	assert.Equal(t, "A", *ps[0].AssignedStaff)

	assert.False(t, ps[1].Location.Valid)
	assert.Nil(t, ps[1].ClusterID)
	assert.Nil(t, ps[1].AssignedStaff)
}

func TestPatients_Errors(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		msg  string
	}{
		{"empty", nil, "empty"},
		{"missing address column", [][]string{{"name"}, {"Ada"}}, `missing column "address"`},
		{"blank name", [][]string{{"name", "address"}, {"", "1 Elm"}}, "row 2"},
		{"half coordinates", [][]string{{"name", "address", "latitude"}, {"Ada", "1 Elm", "3"}}, "row 2"},
		{"bad latitude", [][]string{{"name", "address", "latitude", "longitude"}, {"Ada", "1 Elm", "north", "3"}}, "latitude"},
		{"fractional cluster", [][]string{{"name", "address", "cluster_id"}, {"Ada", "1 Elm", "1.5"}}, "cluster_id"},
		{"nan latitude", [][]string{{"name", "address", "latitude", "longitude"}, {"Ada", "1 Elm", "NaN", "3"}}, "latitude must be within"},
		{"infinite longitude", [][]string{{"name", "address", "latitude", "longitude"}, {"Ada", "1 Elm", "3", "Inf"}}, "row 2"},
		{"latitude out of range", [][]string{{"name", "address", "lat", "lng"}, {"Ada", "1 Elm", "95", "3"}}, "row 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Patients(tt.rows)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestStaff(t *testing.T) {
	rows := [][]string{
		{"name", "home_base_address", "max_capacity", "latitude", "longitude"},
		{"A", "1 Depot Rd", "12", "36", "-86"},
		{"B", "2 Depot Rd", "", "", ""},
	}

	staff, err := Staff(rows)
	require.NoError(t, err)
	require.Len(t, staff, 2)
	assert.Equal(t, 12, staff[0].MaxCapacity)
	assert.True(t, staff[0].Location.Valid)
	assert.Zero(t, staff[1].MaxCapacity)
	assert.False(t, staff[1].Location.Valid)
}

func TestStaff_AddressAlias(t *testing.T) {
	staff, err := Staff([][]string{{"name", "address"}, {"A", "1 Depot Rd"}})
	require.NoError(t, err)
	assert.Equal(t, "1 Depot Rd", staff[0].HomeBaseAddress)
}

func TestStaff_Errors(t *testing.T) {
	_, err := Staff([][]string{{"name"}, {"A"}})
	assert.ErrorContains(t, err, "home_base_address")

	_, err = Staff([][]string{{"name", "address", "max_capacity"}, {"A", "x", "-2"}})
	assert.ErrorContains(t, err, "must not be negative")

	_, err = Staff([][]string{{"name", "address", "latitude", "longitude"}, {"A", "x", "nan", "-inf"}})
	assert.ErrorIs(t, err, model.ErrCoordinateRange)
}

func TestClusterLabels(t *testing.T) {
	rows := [][]string{
		{"id", "name", "cluster_id"},
		{"1", "Ada", "0"},
		{"2", "Bo", "3"},
		{"3", "Cy", ""},
	}

	labels, err := ClusterLabels(rows)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 0, 2: 3}, labels)
}

func TestClusterLabels_Errors(t *testing.T) {
	_, err := ClusterLabels([][]string{{"name", "cluster_id"}, {"Ada", "1"}})
	assert.ErrorContains(t, err, `missing column "id"`)

	_, err = ClusterLabels([][]string{{"patient_id", "cluster_id"}, {"x", "1"}})
	assert.ErrorContains(t, err, "invalid patient id")

	_, err = ClusterLabels([][]string{{"id"}, {"1"}})
	assert.ErrorContains(t, err, `missing column "cluster_id"`)
}

func TestHeaderKey(t *testing.T) {
	assert.Equal(t, "home_base_address", headerKey(" Home Base Address "))
	assert.Equal(t, "zip_code", headerKey("Zip-Code"))
	assert.Equal(t, "name", headerKey("\ufeffname"))
}
