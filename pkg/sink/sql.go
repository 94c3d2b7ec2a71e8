// pkg/sink/sql.go
package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/globalmed/customer-ingress/pkg/model"
)

// dialect captures what differs between the SQL engines the sinks write to
type dialect struct {
	placeholder func(int) string        // 1-based bind placeholder
	typeFor     func(ColumnKind) string // DDL type per column kind
	textDates   bool                    // Render dates as YYYY-MM-DD text
}

// columnDefs renders the column definition list for a CREATE TABLE
func columnDefs(d dialect, columns []ColumnSpec) string {
	definitions := make([]string, len(columns))
	for i, col := range columns {
		definitions[i] = fmt.Sprintf("%s %s", quoteIdentifier(col.Name), d.typeFor(col.Kind))
	}
	return strings.Join(definitions, ", ")
}

// columnList renders the quoted column name list for an INSERT
func columnList(columns []ColumnSpec) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdentifier(col.Name)
	}
	return strings.Join(quoted, ", ")
}

// rowArgs converts a row's cells to driver arguments in column order. Nulls
// stay nil so they land as SQL NULL
func rowArgs(row model.Row, columns []ColumnSpec, d dialect) []interface{} {
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		value := row.Data[col.Name]
		if value == nil {
			args[i] = nil
			continue
		}

		if d.textDates && col.Kind == KindDate {
			if t, ok := value.(time.Time); ok {
				args[i] = t.Format("2006-01-02")
				continue
			}
		}

		args[i] = value
	}
	return args
}

// insertBatches bulk inserts rows with multi-row VALUES statements,
// batching to stay under engine bind parameter limits
func insertBatches(
	ctx context.Context,
	execer sqlx.ExecerContext,
	d dialect,
	table string,
	columns []ColumnSpec,
	rows []model.Row,
	batchSize int,
) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	if batchSize <= 0 {
		batchSize = 500
	}

	columnStr := columnList(columns)

	var totalInserted int64

	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}

		batch := rows[i:end]

		placeholders := make([]string, len(batch))
		args := make([]interface{}, 0, len(batch)*len(columns))

		for j, row := range batch {
			rowPlaceholders := make([]string, len(columns))
			for k := range columns {
				rowPlaceholders[k] = d.placeholder(j*len(columns) + k + 1)
			}
			placeholders[j] = "(" + strings.Join(rowPlaceholders, ", ") + ")"
			args = append(args, rowArgs(row, columns, d)...)
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			table, columnStr, strings.Join(placeholders, ", "))

		result, err := execer.ExecContext(ctx, query, args...)
		if err != nil {
			return totalInserted, fmt.Errorf("batch insert failed: %w", err)
		}

		// The post-write count is authoritative, so a missing affected
		// count is not an error
		if rowsAffected, err := result.RowsAffected(); err == nil {
			totalInserted += rowsAffected
		}
	}

	return totalInserted, nil
}

// countRows returns how many rows the engine holds for a table
func countRows(ctx context.Context, db *sqlx.DB, table string) (int64, error) {
	var count int64
	if err := db.GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return count, nil
}
