// pkg/model/row.go
package model

import (
	"fmt"
	"time"
)

// Row is a single bound data record. Cell values are nil for null, string
// for text, time.Time for normalized dates, and int for derived counters
type Row struct {
	Line int                    // 1-based position of the record in the source file
	Data map[string]interface{} // Cell values keyed by column name
}

// NewRow creates an empty row bound to a source line
func NewRow(line int) Row {
	return Row{
		Line: line,
		Data: make(map[string]interface{}),
	}
}

// Clone returns a copy of the row so stages can rewrite cells
// without aliasing the caller's map
func (r Row) Clone() Row {
	clone := Row{
		Line: r.Line,
		Data: make(map[string]interface{}, len(r.Data)),
	}
	for name, value := range r.Data {
		clone.Data[name] = value
	}
	return clone
}

// IsNull reports whether the named cell is absent or null
func (r Row) IsNull(column string) bool {
	value, ok := r.Data[column]
	return !ok || value == nil
}

// Text returns the named cell rendered as a string
// Null cells render as the empty string
func (r Row) Text(column string) string {
	value, ok := r.Data[column]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Time returns the named cell as a time.Time
// The second return value is false when the cell is null or non-temporal
func (r Row) Time(column string) (time.Time, bool) {
	value, ok := r.Data[column]
	if !ok || value == nil {
		return time.Time{}, false
	}
	t, ok := value.(time.Time)
	return t, ok
}
