package dataset

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"
)

// LoadFromPostgres reads the dataset from a table with the same columns as
// the CSV export. Row indexes follow the order the server returns them in.
func LoadFromPostgres(ctx context.Context, dsn, table string) (*Table, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to dataset database: %w", err)
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, "SELECT * FROM "+pgx.Identifier{table}.Sanitize())
	if err != nil {
		return nil, fmt.Errorf("failed to query dataset table %s: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}

	var raw [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset row %d: %w", len(raw), err)
		}
		converted := make([]any, len(values))
		for i, v := range values {
			converted[i] = normalizeValue(v)
		}
		raw = append(raw, converted)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset table %s: %w", table, err)
	}

	kinds := make(map[string]ColumnKind, len(columns))
	for i, col := range columns {
		kinds[col] = Numeric
		for _, row := range raw {
			if _, ok := row[i].(string); ok {
				kinds[col] = Categorical
				break
			}
		}
	}

	b, err := newBuilder(columns, kinds)
	if err != nil {
		return nil, err
	}
	for _, row := range raw {
		if err := b.add(row); err != nil {
			return nil, err
		}
	}

	t := b.table()
	log.Info().
		Str("table", table).
		Int("rows", t.Len()).
		Int("columns", len(t.Columns)).
		Msg("Postgres dataset loaded successfully")

	return t, nil
}

// normalizeValue maps driver values onto the float64/string/nil field model.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return x
	case float32:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case bool:
		if x {
			return 1.0
		}
		return 0.0
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
