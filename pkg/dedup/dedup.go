// pkg/dedup/dedup.go
package dedup

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/globalmed/customer-ingress/pkg/model"
)

// Deduplicator collapses repeated customers to their latest consultation
type Deduplicator struct {
	logger *zap.Logger
}

// NewDeduplicator creates a Deduplicator instance
func NewDeduplicator(logger *zap.Logger) *Deduplicator {
	return &Deduplicator{logger: logger}
}

// Collapse keeps one row per customer in a single pass over the batch. A
// later row replaces the incumbent only when its consultation date is
// strictly greater, so ties and null dates keep the earliest row in file
// order. Survivors come back ordered by ascending source line. Returns the
// survivors and the number of rows collapsed away
func (d *Deduplicator) Collapse(rows []model.Row, schema *model.Schema) ([]model.Row, int, error) {
	idCol := schema.ColumnByRole(model.RoleCustomerID)
	if idCol == nil {
		return nil, 0, errors.New("schema carries no customer id column")
	}

	// Without a consultation column the first occurrence always wins
	var consultedCol string
	if col := schema.ColumnByRole(model.RoleLastConsulted); col != nil {
		consultedCol = col.Name
	}

	index := make(map[string]int, len(rows))
	winners := make([]model.Row, 0, len(rows))

	for _, row := range rows {
		id := row.Text(idCol.Name)

		at, seen := index[id]
		if !seen {
			index[id] = len(winners)
			winners = append(winners, row)
			continue
		}

		if consultedCol != "" && consultedAfter(row, winners[at], consultedCol) {
			winners[at] = row
		}
	}

	sort.Slice(winners, func(i, j int) bool {
		return winners[i].Line < winners[j].Line
	})

	collapsed := len(rows) - len(winners)
	d.logger.Info("Collapsed duplicate customers",
		zap.Int("rowsIn", len(rows)),
		zap.Int("customers", len(winners)),
		zap.Int("collapsed", collapsed))

	return winners, collapsed, nil
}

// consultedAfter reports whether the candidate's consultation date is
// strictly later than the incumbent's. A null date never wins
func consultedAfter(candidate, incumbent model.Row, column string) bool {
	candidateTime, ok := candidate.Time(column)
	if !ok {
		return false
	}

	incumbentTime, ok := incumbent.Time(column)
	if !ok {
		return true
	}

	return candidateTime.After(incumbentTime)
}
