// pkg/derive/derive.go
package derive

import (
	"time"

	"go.uber.org/zap"

	"github.com/globalmed/customer-ingress/pkg/model"
)

// Derived column names, appended after the header columns on every output
const (
	ColumnAge                    = "Age"
	ColumnDaysSinceLastConsulted = "Days_Since_Last_Consulted"
	ColumnConsultedRecently      = "Consulted_Recently"
)

// recencyWindowDays is the boundary for the Consulted_Recently label.
// Exactly 30 days labels No, 31 labels Yes
const recencyWindowDays = 30

// Consulted_Recently labels
const (
	RecentlyYes     = "Yes"
	RecentlyNo      = "No"
	RecentlyUnknown = "Unknown"
)

// Columns returns the derived column names in output order
func Columns() []string {
	return []string{ColumnAge, ColumnDaysSinceLastConsulted, ColumnConsultedRecently}
}

// Deriver appends computed columns to canonical rows. Every row in a run is
// derived against the same reference date, so a rerun of the same file with
// the same date reproduces the batch byte for byte
type Deriver struct {
	asOf   time.Time
	logger *zap.Logger
}

// NewDeriver creates a deriver frozen to the given reference date
func NewDeriver(asOf time.Time, logger *zap.Logger) *Deriver {
	return &Deriver{
		asOf:   DateOnlyUTC(asOf),
		logger: logger,
	}
}

// AsOf returns the reference date the deriver is frozen to
func (d *Deriver) AsOf() time.Time {
	return d.asOf
}

// Enrich computes Age, Days_Since_Last_Consulted and Consulted_Recently for
// every row. Null inputs yield null outputs and an Unknown recency label
func (d *Deriver) Enrich(rows []model.Row, schema *model.Schema) []model.Row {
	var birthCol, consultedCol string
	if col := schema.ColumnByRole(model.RoleBirthDate); col != nil {
		birthCol = col.Name
	}
	if col := schema.ColumnByRole(model.RoleLastConsulted); col != nil {
		consultedCol = col.Name
	}

	enriched := make([]model.Row, 0, len(rows))
	for _, row := range rows {
		out := row.Clone()

		if birth, ok := out.Time(birthCol); ok {
			out.Data[ColumnAge] = d.age(birth)
		} else {
			out.Data[ColumnAge] = nil
		}

		if consulted, ok := out.Time(consultedCol); ok {
			days := d.daysSince(consulted)
			out.Data[ColumnDaysSinceLastConsulted] = days
			out.Data[ColumnConsultedRecently] = recencyLabel(days)
		} else {
			out.Data[ColumnDaysSinceLastConsulted] = nil
			out.Data[ColumnConsultedRecently] = RecentlyUnknown
		}

		enriched = append(enriched, out)
	}

	d.logger.Debug("Derived columns for batch",
		zap.Int("rows", len(enriched)),
		zap.Time("asOf", d.asOf))

	return enriched
}

// age is the plain calendar year difference; birthdays within the year do
// not adjust it
func (d *Deriver) age(birth time.Time) int {
	return d.asOf.Year() - birth.Year()
}

// daysSince counts whole days between the consultation date and the
// reference date, both taken at midnight UTC
func (d *Deriver) daysSince(consulted time.Time) int {
	return int(d.asOf.Sub(DateOnlyUTC(consulted)).Hours() / 24)
}

// recencyLabel maps a day count onto the Consulted_Recently label
func recencyLabel(days int) string {
	if days > recencyWindowDays {
		return RecentlyYes
	}
	return RecentlyNo
}

// DateOnlyUTC truncates a timestamp to midnight UTC
func DateOnlyUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
