// pkg/source/binder.go
package source

import (
	"go.uber.org/zap"

	"github.com/globalmed/customer-ingress/pkg/model"
)

// Binder turns classified data records into rows bound to a schema
type Binder struct {
	logger *zap.Logger
}

// NewBinder creates a binder
func NewBinder(logger *zap.Logger) *Binder {
	return &Binder{logger: logger}
}

// Bind pairs each data record's fields with the schema's columns in header
// order. Records whose field count differs from the schema width are
// malformed: they are logged, counted, and skipped while the batch
// continues. Empty fields bind as null. Returns the bound rows and the
// number of malformed records
func (b *Binder) Bind(schema *model.Schema, records []Record) ([]model.Row, int) {
	rows := make([]model.Row, 0, len(records))
	malformed := 0

	for _, record := range records {
		if len(record.Fields) != schema.Width() {
			malformed++
			b.logger.Warn("Skipping malformed record",
				zap.Int("line", record.Line),
				zap.Int("fields", len(record.Fields)),
				zap.Int("expected", schema.Width()))
			continue
		}

		row := model.NewRow(record.Line)
		for i, col := range schema.Columns {
			// Duplicate header names collapse to the last field bound
			if record.Fields[i] == "" {
				row.Data[col.Name] = nil
				continue
			}
			row.Data[col.Name] = record.Fields[i]
		}

		rows = append(rows, row)
	}

	return rows, malformed
}
