// pkg/cleaner/operations.go
package cleaner

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/globalmed/customer-ingress/pkg/model"
)

// capLength nulls a text cell whose length exceeds the column cap
// Unbounded columns and null cells pass through untouched
func capLength(
	value interface{},
	col *model.Column,
	line int,
) (interface{}, *model.FieldOperation) {
	if value == nil || col.MaxLen <= 0 {
		return value, nil
	}

	strValue := toString(value)
	if utf8.RuneCountInString(strValue) <= col.MaxLen {
		return value, nil
	}

	return nil, &model.FieldOperation{
		Line:          line,
		Column:        col.Name,
		OriginalValue: strValue,
		Operation:     model.OpNulled,
		Reason:        model.ReasonLengthOverCap,
	}
}

// coerceDate parses a temporal cell against the column's layout, which
// normalizes it to midnight UTC. Values that do not parse exactly become
// null rather than failing the row
func coerceDate(
	value interface{},
	col *model.Column,
	line int,
) (interface{}, *model.FieldOperation) {
	if value == nil {
		return nil, nil
	}

	// Already normalized
	if t, ok := value.(time.Time); ok {
		return t, nil
	}

	strValue := toString(value)
	parsed, err := time.Parse(col.DateLayout, strValue)
	if err != nil {
		return nil, &model.FieldOperation{
			Line:          line,
			Column:        col.Name,
			OriginalValue: strValue,
			Operation:     model.OpNulled,
			Reason:        model.ReasonUnparseableDate,
		}
	}

	return parsed, nil
}

// firstMissingMandatory returns the first mandatory column the row holds no
// value for, in header order. Returns nil when the row is complete
func firstMissingMandatory(row model.Row, schema *model.Schema) *model.Column {
	for i := range schema.Columns {
		if schema.Columns[i].Mandatory && row.IsNull(schema.Columns[i].Name) {
			return &schema.Columns[i]
		}
	}
	return nil
}

// toString converts an interface to string
func toString(v interface{}) string {
	if v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		// Use Sprint as a fallback
		return fmt.Sprintf("%v", val)
	}
}
