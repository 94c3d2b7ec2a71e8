// pkg/model/operation.go
package model

// Operation types applied by the cleaning stage
const (
	OpNulled     = "nulled"      // Cell rewritten to null
	OpDroppedRow = "dropped_row" // Whole row removed from the batch
)

// Reasons a cleaning operation was applied
const (
	ReasonLengthOverCap    = "length_over_cap"
	ReasonUnparseableDate  = "unparseable_date"
	ReasonMissingMandatory = "missing_mandatory"
)

// FieldOperation records a single cleaning action taken against a cell so a
// run can report exactly what it rewrote or removed
type FieldOperation struct {
	Line          int         // Source line of the affected row
	Column        string      // Column that was cleaned
	OriginalValue interface{} // Value before cleaning (may be nil)
	Operation     string      // Action taken, one of the Op constants
	Reason        string      // Why the action was taken, one of the Reason constants
}
