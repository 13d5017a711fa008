package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom bulk-inserts items into table over the COPY protocol. row maps an
// item to its values in columns order.
func CopyFrom[T any](ctx context.Context, pool Pool, table string, columns []string, items []T, row func(T) []any) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	src := pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
		vals := row(items[i])
		if len(vals) != len(columns) {
			return nil, eris.Errorf("db: row %d has %d values for %d columns", i, len(vals), len(columns))
		}
		return vals, nil
	})

	n, err := pool.CopyFrom(ctx, pgx.Identifier{table}, columns, src)
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	return n, nil
}
