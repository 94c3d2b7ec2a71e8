// pkg/sink/sink.go
package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/globalmed/customer-ingress/pkg/model"
)

// ColumnKind is the storage class of an output column
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindDate
	KindInteger
)

// ColumnSpec describes one column of a partition table
type ColumnSpec struct {
	Name string
	Kind ColumnKind
}

// TableSink persists partition tables, one per country in a batch
type TableSink interface {
	// Setup prepares the sink before the first write
	Setup(ctx context.Context) error

	// WriteTable replaces the named table with the given rows and returns
	// the number of rows the sink holds for that table afterwards
	WriteTable(ctx context.Context, table string, columns []ColumnSpec, rows []model.Row) (int64, error)

	// Close releases sink resources
	Close() error
}

// UnknownCountry is the partition key for rows with no country value
const UnknownCountry = "UNKNOWN"

// TableName renders the artifact name for a country partition
func TableName(country string) string {
	if country == "" {
		country = UnknownCountry
	}
	return "Table_" + sanitizeName(country)
}

// sanitizeName keeps partition names safe across engines and filesystems
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// quoteIdentifier quotes and escapes an identifier, preserving its case so
// the artifact naming contract holds on every engine
func quoteIdentifier(name string) string {
	return fmt.Sprintf("\"%s\"", strings.ReplaceAll(name, "\"", "\"\""))
}

// renderValue formats a cell for text storage. Dates render as YYYY-MM-DD
// and nulls as the empty string
func renderValue(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case time.Time:
		return v.Format("2006-01-02")
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// PingWithTimeout attempts to ping a database with a timeout
func PingWithTimeout(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- db.PingContext(pingCtx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-pingCtx.Done():
		return fmt.Errorf("ping timed out after %v: %w", timeout, pingCtx.Err())
	}
}

// ApplyConnectionSettings configures database connection pool settings
func ApplyConnectionSettings(db *sql.DB, maxOpen, maxIdle int, maxLifetime, maxIdleTime time.Duration) {
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if maxLifetime > 0 {
		db.SetConnMaxLifetime(maxLifetime)
	}
	if maxIdleTime > 0 {
		db.SetConnMaxIdleTime(maxIdleTime)
	}
}

// LogConnectionStats logs connection pool statistics
func LogConnectionStats(logger *zap.Logger, name string, db *sql.DB) {
	stats := db.Stats()
	logger.Debug("Connection pool stats",
		zap.String("database", name),
		zap.Int("openConnections", stats.OpenConnections),
		zap.Int("inUse", stats.InUse),
		zap.Int("idle", stats.Idle),
		zap.Int("maxOpen", stats.MaxOpenConnections),
	)
}
