// pkg/sink/sqlite_test.go
package sink

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalmed/customer-ingress/pkg/config"
	"github.com/globalmed/customer-ingress/pkg/model"
)

func newTestSQLiteSink(t *testing.T) *SQLiteSink {
	t.Helper()

	cfg := &config.SQLiteConfig{
		Path:        filepath.Join(t.TempDir(), "customers.db"),
		BusyTimeout: 5 * time.Second,
	}

	s, err := NewSQLiteSink(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Setup(context.Background()))
	return s
}

func TestSQLiteSinkWriteTable(t *testing.T) {
	s := newTestSQLiteSink(t)

	rows := []model.Row{
		csvRow(2, "Alex", "123457", time.Date(2010, 10, 12, 0, 0, 0, 0, time.UTC), 36),
		csvRow(3, "John", "123458", time.Date(2012, 1, 13, 0, 0, 0, 0, time.UTC), 29),
	}

	written, err := s.WriteTable(context.Background(), "Table_USA", csvColumns(), rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), written)

	var name, open string
	err = s.db.QueryRowContext(context.Background(),
		`SELECT "Customer_Name", "Open_Date" FROM "Table_USA" ORDER BY "Customer_Id" LIMIT 1`,
	).Scan(&name, &open)
	require.NoError(t, err)

	assert.Equal(t, "Alex", name)
	assert.Equal(t, "2010-10-12", open)
}

func TestSQLiteSinkWriteTable_NullsLandAsNull(t *testing.T) {
	s := newTestSQLiteSink(t)

	row := model.NewRow(2)
	row.Data["Customer_Name"] = "Alex"
	row.Data["Customer_Id"] = "123457"
	row.Data["Open_Date"] = nil
	row.Data["Age"] = nil

	_, err := s.WriteTable(context.Background(), "Table_UNKNOWN", csvColumns(), []model.Row{row})
	require.NoError(t, err)

	var open sql.NullString
	var age sql.NullInt64
	err = s.db.QueryRowContext(context.Background(),
		`SELECT "Open_Date", "Age" FROM "Table_UNKNOWN"`,
	).Scan(&open, &age)
	require.NoError(t, err)

	assert.False(t, open.Valid)
	assert.False(t, age.Valid)
}

func TestSQLiteSinkWriteTable_OverwriteReplacesRows(t *testing.T) {
	s := newTestSQLiteSink(t)

	first := []model.Row{
		csvRow(2, "Alex", "123457", time.Date(2010, 10, 12, 0, 0, 0, 0, time.UTC), 36),
		csvRow(3, "John", "123458", time.Date(2012, 1, 13, 0, 0, 0, 0, time.UTC), 29),
	}
	_, err := s.WriteTable(context.Background(), "Table_USA", csvColumns(), first)
	require.NoError(t, err)

	second := []model.Row{
		csvRow(2, "Mathew", "123459", time.Date(2012, 10, 13, 0, 0, 0, 0, time.UTC), 41),
	}
	written, err := s.WriteTable(context.Background(), "Table_USA", csvColumns(), second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), written)

	var name string
	err = s.db.QueryRowContext(context.Background(),
		`SELECT "Customer_Name" FROM "Table_USA"`,
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "Mathew", name)
}

func TestSQLiteSinkWriteTable_EmptyPartition(t *testing.T) {
	s := newTestSQLiteSink(t)

	written, err := s.WriteTable(context.Background(), "Table_NL", csvColumns(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), written)

	// The empty table still exists for downstream readers
	var count int64
	err = s.db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM "Table_NL"`,
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
