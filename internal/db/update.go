package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpdateConfig describes a keyed bulk update.
type UpdateConfig struct {
	Table   string   // target table, optionally schema-qualified
	Key     string   // column matched between target and staged rows
	Columns []string // columns overwritten from the staged rows
}

// BulkUpdate stages rows in a temp table via COPY and applies them with a
// single UPDATE ... FROM. Each row is the key followed by Columns in order.
// Rows whose key matches nothing are ignored; the result counts updated rows.
func BulkUpdate(ctx context.Context, pool Pool, cfg UpdateConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if cfg.Key == "" {
		return 0, eris.New("db: bulk update: no key column specified")
	}
	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: bulk update: no columns specified")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: bulk update: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tempTable := tempTableName(cfg.Table)
	staged := append([]string{cfg.Key}, cfg.Columns...)

	// Column types come from the target; constraints do not.
	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s ON COMMIT DROP AS SELECT %s FROM %s WITH NO DATA",
		pgx.Identifier{tempTable}.Sanitize(),
		quoteAndJoin(staged),
		sanitizeTable(cfg.Table),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: bulk update: create temp table for %s", cfg.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{tempTable}, staged, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: bulk update: COPY into temp table for %s", cfg.Table)
	}

	setClauses := make([]string, len(cfg.Columns))
	for i, col := range cfg.Columns {
		c := pgx.Identifier{col}.Sanitize()
		setClauses[i] = fmt.Sprintf("%s = s.%s", c, c)
	}
	key := pgx.Identifier{cfg.Key}.Sanitize()
	updateSQL := fmt.Sprintf(
		"UPDATE %s AS t SET %s FROM %s AS s WHERE t.%s = s.%s",
		sanitizeTable(cfg.Table),
		strings.Join(setClauses, ", "),
		pgx.Identifier{tempTable}.Sanitize(),
		key, key,
	)

	tag, err := tx.Exec(ctx, updateSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "db: bulk update: UPDATE FROM for %s", cfg.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: bulk update: commit tx")
	}

	return tag.RowsAffected(), nil
}

func tempTableName(table string) string {
	return "_tmp_update_" + strings.ReplaceAll(table, ".", "_")
}

// sanitizeTable handles schema-qualified table names like "care.patients".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
