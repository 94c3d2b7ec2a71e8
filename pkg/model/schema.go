// pkg/model/schema.go
package model

import "strings"

// ColumnRole marks columns the pipeline treats specially
type ColumnRole int

const (
	RoleNone          ColumnRole = iota
	RoleCustomerID               // Deduplication key
	RoleOpenDate                 // Mandatory enrollment date
	RoleLastConsulted            // Drives recency derivation and dedup ordering
	RoleBirthDate                // Drives age derivation
	RoleCountry                  // Partition key
)

// String returns a human-readable role name
func (r ColumnRole) String() string {
	switch r {
	case RoleCustomerID:
		return "customer_id"
	case RoleOpenDate:
		return "open_date"
	case RoleLastConsulted:
		return "last_consulted"
	case RoleBirthDate:
		return "birth_date"
	case RoleCountry:
		return "country"
	default:
		return "none"
	}
}

// Column describes one field of the customer feed
type Column struct {
	Name       string     // Column name as spelled in the header record
	MaxLen     int        // Maximum accepted value length, 0 means unbounded
	Mandatory  bool       // Whether a null cell drops the row
	DateLayout string     // Go time layout for temporal columns, empty for text
	Role       ColumnRole // Special handling marker
}

// IsDate reports whether the column holds a temporal value
func (c *Column) IsDate() bool {
	return c.DateLayout != ""
}

// fieldRule holds the static constraints applied to a known column name
type fieldRule struct {
	maxLen     int
	mandatory  bool
	dateLayout string
	role       ColumnRole
}

// fieldRules maps normalized column names to their constraints
// Columns absent from this table bind as unconstrained text
var fieldRules = map[string]fieldRule{
	"customer_name":       {maxLen: 255, mandatory: true},
	"customer_id":         {maxLen: 18, mandatory: true, role: RoleCustomerID},
	"open_date":           {mandatory: true, dateLayout: "20060102", role: RoleOpenDate},
	"last_consulted_date": {dateLayout: "20060102", role: RoleLastConsulted},
	"vaccination_id":      {maxLen: 5},
	"dr_name":             {maxLen: 255},
	"state":               {maxLen: 5},
	"country":             {maxLen: 5, role: RoleCountry},
	"dob":                 {dateLayout: "02012006", role: RoleBirthDate},
}

// Schema is the ordered column layout declared by a file's header record
type Schema struct {
	Columns []Column
}

// SchemaFromHeader resolves the header fields of a source file against the
// static field rules. Column order follows the header exactly
func SchemaFromHeader(fields []string) *Schema {
	columns := make([]Column, 0, len(fields))
	for _, field := range fields {
		name := strings.TrimSpace(field)
		rule := fieldRules[normalizeColumnName(name)]
		columns = append(columns, Column{
			Name:       name,
			MaxLen:     rule.maxLen,
			Mandatory:  rule.mandatory,
			DateLayout: rule.dateLayout,
			Role:       rule.role,
		})
	}
	return &Schema{Columns: columns}
}

// Width returns the number of fields a data record must carry to bind
func (s *Schema) Width() int {
	return len(s.Columns)
}

// ColumnNames returns the column names in header order
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

// GetColumnByName returns a column by name (case-insensitive)
// Returns nil if column not found
func (s *Schema) GetColumnByName(name string) *Column {
	normalizedName := normalizeColumnName(name)
	for i, col := range s.Columns {
		if normalizeColumnName(col.Name) == normalizedName {
			return &s.Columns[i]
		}
	}
	return nil
}

// ColumnByRole returns the first header column carrying the given role
// Returns nil if no column carries it
func (s *Schema) ColumnByRole(role ColumnRole) *Column {
	for i, col := range s.Columns {
		if col.Role == role {
			return &s.Columns[i]
		}
	}
	return nil
}

// MandatoryColumns returns the mandatory columns in header order
func (s *Schema) MandatoryColumns() []Column {
	mandatory := make([]Column, 0, len(s.Columns))
	for _, col := range s.Columns {
		if col.Mandatory {
			mandatory = append(mandatory, col)
		}
	}
	return mandatory
}

// Helper for case-insensitive column matching
func normalizeColumnName(name string) string {
	return strings.ToLower(name)
}

// TODO: load fieldRules from configuration so a new feed layout does not
// require a code change
