package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/caseload-router/internal/db"
	"github.com/sells-group/caseload-router/internal/model"
)

// PostgresStore implements Store using pgxpool. Every call acquires a pooled
// connection for the duration of one statement and releases it on return.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS staff (
	id                BIGSERIAL PRIMARY KEY,
	name              TEXT NOT NULL,
	home_base_address TEXT NOT NULL DEFAULT '',
	max_capacity      INTEGER NOT NULL DEFAULT 0,
	zip_code          TEXT NOT NULL DEFAULT '',
	latitude          DOUBLE PRECISION,
	longitude         DOUBLE PRECISION,
	CONSTRAINT staff_coordinates_paired CHECK ((latitude IS NULL) = (longitude IS NULL))
);

CREATE TABLE IF NOT EXISTS patients (
	id             BIGSERIAL PRIMARY KEY,
	name           TEXT NOT NULL,
	address        TEXT NOT NULL DEFAULT '',
	type_of_care   TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT '',
	zip_code       TEXT NOT NULL DEFAULT '',
	latitude       DOUBLE PRECISION,
	longitude      DOUBLE PRECISION,
	cluster_id     INTEGER,
	assigned_staff TEXT,
	CONSTRAINT patients_coordinates_paired CHECK ((latitude IS NULL) = (longitude IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_patients_cluster_id ON patients(cluster_id);
CREATE INDEX IF NOT EXISTS idx_patients_assigned_staff ON patients(assigned_staff);
CREATE INDEX IF NOT EXISTS idx_patients_unresolved ON patients(id)
	WHERE latitude IS NULL OR assigned_staff IS NULL;
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListPatients(ctx context.Context, filter PatientFilter) ([]model.Patient, error) {
	var where []string
	var args []any
	if filter.Unresolved {
		where = append(where, "(latitude IS NULL OR longitude IS NULL OR assigned_staff IS NULL)")
	}
	if filter.ClusterID != nil {
		args = append(args, *filter.ClusterID)
		where = append(where, fmt.Sprintf("cluster_id = $%d", len(args)))
	}

	query := "SELECT " + patientColumns + " FROM patients"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	return s.queryPatients(ctx, query, args...)
}

func (s *PostgresStore) ListClusteredPatients(ctx context.Context) ([]model.Patient, error) {
	return s.queryPatients(ctx,
		"SELECT "+patientColumns+" FROM patients WHERE cluster_id IS NOT NULL ORDER BY cluster_id, id")
}

func (s *PostgresStore) queryPatients(ctx context.Context, query string, args ...any) ([]model.Patient, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list patients")
	}
	defer rows.Close()

	var out []model.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan patient")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate patients")
}

func (s *PostgresStore) UpdatePatient(ctx context.Context, id int64, upd model.PatientUpdate) error {
	if upd.Empty() {
		return nil
	}

	var sets []string
	var args []any
	if upd.SetLocation {
		lat, lng := upd.Location.Ptrs()
		args = append(args, nullable(lat), nullable(lng))
		sets = append(sets, fmt.Sprintf("latitude = $%d, longitude = $%d", len(args)-1, len(args)))
	}
	if upd.SetStaff {
		args = append(args, nullable(upd.AssignedStaff))
		sets = append(sets, fmt.Sprintf("assigned_staff = $%d", len(args)))
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE patients SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update patient %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: update patient %d", id)
	}
	return nil
}

func (s *PostgresStore) InsertPatient(ctx context.Context, p model.Patient) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO patients (name, address, type_of_care, status, zip_code, latitude, longitude, cluster_id, assigned_staff)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		patientArgs(p)...,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert patient")
	}
	return id, nil
}

func (s *PostgresStore) InsertPatients(ctx context.Context, ps []model.Patient) (int64, error) {
	n, err := db.CopyFrom(ctx, s.pool, "patients", insertPatientColumns, ps, patientArgs)
	return n, eris.Wrap(err, "postgres: insert patients")
}

// SetClusterLabels applies the offline clustering job's labels in one
// staged UPDATE. Ids with no matching patient are ignored.
func (s *PostgresStore) SetClusterLabels(ctx context.Context, labels map[int64]int) (int64, error) {
	rows := make([][]any, 0, len(labels))
	for _, id := range sortedIDs(labels) {
		rows = append(rows, []any{id, labels[id]})
	}
	n, err := db.BulkUpdate(ctx, s.pool, clusterLabelUpdate, rows)
	return n, eris.Wrap(err, "postgres: set cluster labels")
}

var clusterLabelUpdate = db.UpdateConfig{Table: "patients", Key: "id", Columns: []string{"cluster_id"}}

func (s *PostgresStore) ListStaff(ctx context.Context) ([]model.Staff, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+staffColumns+" FROM staff ORDER BY id")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list staff")
	}
	defer rows.Close()

	var out []model.Staff
	for rows.Next() {
		st, err := scanStaff(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan staff")
		}
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate staff")
}

func (s *PostgresStore) UpdateStaffLocation(ctx context.Context, id int64, loc model.Coordinates) error {
	lat, lng := loc.Ptrs()
	tag, err := s.pool.Exec(ctx,
		`UPDATE staff SET latitude = $1, longitude = $2 WHERE id = $3`,
		nullable(lat), nullable(lng), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update staff %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: update staff %d", id)
	}
	return nil
}

func (s *PostgresStore) InsertStaff(ctx context.Context, st model.Staff) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO staff (name, home_base_address, max_capacity, zip_code, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		staffArgs(st)...,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert staff")
	}
	return id, nil
}

func sortedIDs(labels map[int64]int) []int64 {
	ids := make([]int64, 0, len(labels))
	for id := range labels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
