// pkg/cleaner/cleaner.go
package cleaner

import (
	"errors"

	"go.uber.org/zap"

	"github.com/globalmed/customer-ingress/pkg/model"
)

// Cleaner applies field constraints and mandatory checks to bound rows
type Cleaner struct {
	logger *zap.Logger
}

// Result aggregates what a cleaning pass did to a batch
type Result struct {
	Dropped    map[string]int         // Rows dropped, keyed by the first missing mandatory column
	Nulled     map[string]int         // Overlength cells nulled, keyed by column
	Coerced    map[string]int         // Unparseable date cells nulled, keyed by column
	Operations []model.FieldOperation // Every action taken, in row order
}

// NewCleaner creates a Cleaner instance
func NewCleaner(logger *zap.Logger) (*Cleaner, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &Cleaner{logger: logger}, nil
}

// CleanRows cleans a batch of rows and returns the survivors along with a
// report of the operations performed. Constraint violations never fail the
// batch: overlength and unparseable cells become null, and rows missing a
// mandatory value are dropped
func (c *Cleaner) CleanRows(rows []model.Row, schema *model.Schema) ([]model.Row, *Result, error) {
	if schema == nil {
		return nil, nil, errors.New("schema cannot be nil")
	}

	result := &Result{
		Dropped: make(map[string]int),
		Nulled:  make(map[string]int),
		Coerced: make(map[string]int),
	}

	cleanedRows := make([]model.Row, 0, len(rows))
	for _, row := range rows {
		cleanedRow, kept := c.cleanSingleRow(row, schema, result)
		if kept {
			cleanedRows = append(cleanedRows, cleanedRow)
		}
	}

	c.logger.Info("Cleaned batch",
		zap.Int("rowsIn", len(rows)),
		zap.Int("rowsKept", len(cleanedRows)),
		zap.Int("operations", len(result.Operations)))

	return cleanedRows, result, nil
}

// cleanSingleRow applies length caps and date coercion to each cell, then
// checks mandatory columns. Returns false when the row is dropped
func (c *Cleaner) cleanSingleRow(row model.Row, schema *model.Schema, result *Result) (model.Row, bool) {
	cleanedRow := row.Clone()

	for i := range schema.Columns {
		col := &schema.Columns[i]
		value := cleanedRow.Data[col.Name]

		cleanedValue, operation := capLength(value, col, row.Line)
		if operation != nil {
			result.Nulled[col.Name]++
			result.Operations = append(result.Operations, *operation)
		}

		if col.IsDate() {
			cleanedValue, operation = coerceDate(cleanedValue, col, row.Line)
			if operation != nil {
				result.Coerced[col.Name]++
				result.Operations = append(result.Operations, *operation)
			}
		}

		cleanedRow.Data[col.Name] = cleanedValue
	}

	// The mandatory check runs after coercion so a row whose Open_Date
	// failed to parse is dropped, not kept with a null
	if col := firstMissingMandatory(cleanedRow, schema); col != nil {
		result.Dropped[col.Name]++
		result.Operations = append(result.Operations, model.FieldOperation{
			Line:      row.Line,
			Column:    col.Name,
			Operation: model.OpDroppedRow,
			Reason:    model.ReasonMissingMandatory,
		})
		c.logger.Debug("Dropping row with missing mandatory value",
			zap.Int("line", row.Line),
			zap.String("column", col.Name))
		return model.Row{}, false
	}

	return cleanedRow, true
}
