package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/caseload-router/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// A single writer keeps WAL happy and serializes the per-statement writes.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS staff (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	name              TEXT NOT NULL,
	home_base_address TEXT NOT NULL DEFAULT '',
	max_capacity      INTEGER NOT NULL DEFAULT 0,
	zip_code          TEXT NOT NULL DEFAULT '',
	latitude          REAL,
	longitude         REAL,
	CHECK ((latitude IS NULL) = (longitude IS NULL))
);

CREATE TABLE IF NOT EXISTS patients (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	name           TEXT NOT NULL,
	address        TEXT NOT NULL DEFAULT '',
	type_of_care   TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT '',
	zip_code       TEXT NOT NULL DEFAULT '',
	latitude       REAL,
	longitude      REAL,
	cluster_id     INTEGER,
	assigned_staff TEXT,
	CHECK ((latitude IS NULL) = (longitude IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_patients_cluster_id ON patients(cluster_id);
CREATE INDEX IF NOT EXISTS idx_patients_assigned_staff ON patients(assigned_staff);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListPatients(ctx context.Context, filter PatientFilter) ([]model.Patient, error) {
	var where []string
	var args []any
	if filter.Unresolved {
		where = append(where, "(latitude IS NULL OR longitude IS NULL OR assigned_staff IS NULL)")
	}
	if filter.ClusterID != nil {
		where = append(where, "cluster_id = ?")
		args = append(args, *filter.ClusterID)
	}

	query := "SELECT " + patientColumns + " FROM patients"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	return s.queryPatients(ctx, query, args...)
}

func (s *SQLiteStore) ListClusteredPatients(ctx context.Context) ([]model.Patient, error) {
	return s.queryPatients(ctx,
		"SELECT "+patientColumns+" FROM patients WHERE cluster_id IS NOT NULL ORDER BY cluster_id, id")
}

func (s *SQLiteStore) queryPatients(ctx context.Context, query string, args ...any) ([]model.Patient, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list patients")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan patient")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate patients")
}

func (s *SQLiteStore) UpdatePatient(ctx context.Context, id int64, upd model.PatientUpdate) error {
	if upd.Empty() {
		return nil
	}

	var sets []string
	var args []any
	if upd.SetLocation {
		lat, lng := upd.Location.Ptrs()
		sets = append(sets, "latitude = ?, longitude = ?")
		args = append(args, nullable(lat), nullable(lng))
	}
	if upd.SetStaff {
		sets = append(sets, "assigned_staff = ?")
		args = append(args, nullable(upd.AssignedStaff))
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, "UPDATE patients SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update patient %d", id)
	}
	return affectedOrNotFound(res, "sqlite: update patient", id)
}

func (s *SQLiteStore) InsertPatient(ctx context.Context, p model.Patient) (int64, error) {
	return insertPatient(ctx, s.db, p)
}

func (s *SQLiteStore) InsertPatients(ctx context.Context, ps []model.Patient) (int64, error) {
	if len(ps) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert patients")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, p := range ps {
		if _, err := insertPatient(ctx, tx, p); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert patients")
	}
	return int64(len(ps)), nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertPatient(ctx context.Context, e execer, p model.Patient) (int64, error) {
	res, err := e.ExecContext(ctx, `
		INSERT INTO patients (name, address, type_of_care, status, zip_code, latitude, longitude, cluster_id, assigned_staff)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		patientArgs(p)...,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: insert patient")
	}
	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "sqlite: insert patient id")
}

func (s *SQLiteStore) SetClusterLabels(ctx context.Context, labels map[int64]int) (int64, error) {
	if len(labels) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin cluster labels")
	}
	defer tx.Rollback() //nolint:errcheck

	var updated int64
	for _, id := range sortedIDs(labels) {
		res, err := tx.ExecContext(ctx, `UPDATE patients SET cluster_id = ? WHERE id = ?`, labels[id], id)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: set cluster label for patient %d", id)
		}
		n, _ := res.RowsAffected()
		updated += n
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit cluster labels")
	}
	return updated, nil
}

func (s *SQLiteStore) ListStaff(ctx context.Context) ([]model.Staff, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+staffColumns+" FROM staff ORDER BY id")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list staff")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Staff
	for rows.Next() {
		st, err := scanStaff(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan staff")
		}
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate staff")
}

func (s *SQLiteStore) UpdateStaffLocation(ctx context.Context, id int64, loc model.Coordinates) error {
	lat, lng := loc.Ptrs()
	res, err := s.db.ExecContext(ctx,
		`UPDATE staff SET latitude = ?, longitude = ? WHERE id = ?`,
		nullable(lat), nullable(lng), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update staff %d", id)
	}
	return affectedOrNotFound(res, "sqlite: update staff", id)
}

func (s *SQLiteStore) InsertStaff(ctx context.Context, st model.Staff) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO staff (name, home_base_address, max_capacity, zip_code, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?)`,
		staffArgs(st)...,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: insert staff")
	}
	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "sqlite: insert staff id")
}

func affectedOrNotFound(res sql.Result, op string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "%s %d", op, id)
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %d", op, id)
	}
	return nil
}
