package importer

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/caseload-router/internal/model"
)

// table indexes data rows by normalized header name.
type table struct {
	cols map[string]int
	rows [][]string
}

func newTable(rows [][]string, required ...string) (*table, error) {
	if len(rows) == 0 {
		return nil, eris.New("importer: file is empty")
	}
	t := &table{cols: make(map[string]int), rows: rows[1:]}
	for i, h := range rows[0] {
		t.cols[headerKey(h)] = i
	}
	for _, name := range required {
		if !t.has(name) {
			return nil, eris.Errorf("importer: missing column %q", name)
		}
	}
	return t, nil
}

// headerKey lower-cases a header and turns spaces and dashes into
// underscores, so "Home Base Address" matches home_base_address.
func headerKey(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func (t *table) has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// get returns the trimmed cell for the first present column in names.
func (t *table) get(row []string, names ...string) string {
	for _, name := range names {
		i, ok := t.cols[name]
		if !ok {
			continue
		}
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	return ""
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parseInt accepts integral floats such as "3.0", which spreadsheet exports
// produce for numeric cells.
func parseInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		return &v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return nil, eris.Errorf("not an integer: %q", s)
	}
	v := int(f)
	return &v, nil
}

func location(t *table, row []string) (model.Coordinates, error) {
	lat, err := parseFloat(t.get(row, "latitude", "lat"))
	if err != nil {
		return model.Coordinates{}, eris.Wrap(err, "latitude")
	}
	lng, err := parseFloat(t.get(row, "longitude", "lng", "lon"))
	if err != nil {
		return model.Coordinates{}, eris.Wrap(err, "longitude")
	}
	return model.NewCoordinates(lat, lng)
}

// Patients converts rows with a header into patient records. name and address
// columns are required; the rest are optional. Blank rows are skipped.
func Patients(rows [][]string) ([]model.Patient, error) {
	t, err := newTable(rows, "name", "address")
	if err != nil {
		return nil, err
	}

	var out []model.Patient
	for i, row := range t.rows {
		line := i + 2
		if blank(row) {
			continue
		}
		p := model.Patient{
			Name:       t.get(row, "name"),
			Address:    t.get(row, "address"),
			TypeOfCare: t.get(row, "type_of_care"),
			Status:     t.get(row, "status"),
			ZipCode:    t.get(row, "zip_code", "zip"),
		}
		if p.Name == "" || p.Address == "" {
			return nil, eris.Errorf("importer: row %d: name and address are required", line)
		}
		if p.Location, err = location(t, row); err != nil {
			return nil, eris.Wrapf(err, "importer: row %d", line)
		}
		if p.ClusterID, err = parseInt(t.get(row, "cluster_id", "cluster")); err != nil {
			return nil, eris.Wrapf(err, "importer: row %d cluster_id", line)
		}
		if s := t.get(row, "assigned_staff"); s != "" {
			p.AssignedStaff = &s
		}
		out = append(out, p)
	}
	return out, nil
}

// Staff converts rows with a header into staff records. The home base may be
// given as home_base_address or address.
func Staff(rows [][]string) ([]model.Staff, error) {
	t, err := newTable(rows, "name")
	if err != nil {
		return nil, err
	}
	if !t.has("home_base_address") && !t.has("address") {
		return nil, eris.New(`importer: missing column "home_base_address"`)
	}

	var out []model.Staff
	for i, row := range t.rows {
		line := i + 2
		if blank(row) {
			continue
		}
		st := model.Staff{
			Name:            t.get(row, "name"),
			HomeBaseAddress: t.get(row, "home_base_address", "address"),
			ZipCode:         t.get(row, "zip_code", "zip"),
		}
		if st.Name == "" || st.HomeBaseAddress == "" {
			return nil, eris.Errorf("importer: row %d: name and home_base_address are required", line)
		}
		capacity, err := parseInt(t.get(row, "max_capacity", "capacity"))
		if err != nil {
			return nil, eris.Wrapf(err, "importer: row %d max_capacity", line)
		}
		if capacity != nil {
			if *capacity < 0 {
				return nil, eris.Errorf("importer: row %d: max_capacity must not be negative", line)
			}
			st.MaxCapacity = *capacity
		}
		if st.Location, err = location(t, row); err != nil {
			return nil, eris.Wrapf(err, "importer: row %d", line)
		}
		out = append(out, st)
	}
	return out, nil
}

// ClusterLabels reads (patient id, cluster label) pairs, the output of the
// external clustering job. Rows with a blank label are skipped.
func ClusterLabels(rows [][]string) (map[int64]int, error) {
	t, err := newTable(rows, "cluster_id")
	if err != nil {
		return nil, err
	}
	if !t.has("id") && !t.has("patient_id") {
		return nil, eris.New(`importer: missing column "id"`)
	}

	out := make(map[int64]int)
	for i, row := range t.rows {
		line := i + 2
		if blank(row) {
			continue
		}
		id, err := parseInt(t.get(row, "patient_id", "id"))
		if err != nil || id == nil || *id <= 0 {
			return nil, eris.Errorf("importer: row %d: invalid patient id", line)
		}
		label, err := parseInt(t.get(row, "cluster_id"))
		if err != nil {
			return nil, eris.Wrapf(err, "importer: row %d cluster_id", line)
		}
		if label == nil {
			continue
		}
		out[int64(*id)] = *label
	}
	return out, nil
}
