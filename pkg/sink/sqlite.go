// pkg/sink/sqlite.go
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/globalmed/customer-ingress/pkg/config"
	"github.com/globalmed/customer-ingress/pkg/model"
)

// sqliteDialect stores dates as YYYY-MM-DD text since SQLite has no date type
var sqliteDialect = dialect{
	placeholder: func(int) string { return "?" },
	typeFor: func(kind ColumnKind) string {
		if kind == KindInteger {
			return "INTEGER"
		}
		return "TEXT"
	},
	textDates: true,
}

// SQLiteSink writes partition tables into a single SQLite database file
type SQLiteSink struct {
	db     *sqlx.DB
	cfg    *config.SQLiteConfig
	logger *zap.Logger
}

// NewSQLiteSink opens the database file, creating it and its parent
// directory as needed
func NewSQLiteSink(ctx context.Context, cfg *config.SQLiteConfig) (*SQLiteSink, error) {
	logger := zap.L().Named("sqlite-sink")

	logger.Info("Opening SQLite database", zap.String("path", cfg.Path))

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)", cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite allows one writer at a time, so concurrent partition writers
	// serialize on a single connection
	db.SetMaxOpenConns(1)

	if err := PingWithTimeout(ctx, db.DB, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	return &SQLiteSink{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Setup is a no-op; the constructor already created the database file
func (s *SQLiteSink) Setup(ctx context.Context) error {
	return nil
}

// WriteTable replaces the partition table inside one transaction so readers
// never observe a half-written partition
func (s *SQLiteSink) WriteTable(ctx context.Context, table string, columns []ColumnSpec, rows []model.Row) (int64, error) {
	quoted := quoteIdentifier(table)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback transaction",
					zap.Error(rbErr),
					zap.Error(err))
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoted)); err != nil {
		return 0, fmt.Errorf("failed to drop table %s: %w", table, err)
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", quoted, columnDefs(sqliteDialect, columns))
	if _, err = tx.ExecContext(ctx, createSQL); err != nil {
		return 0, fmt.Errorf("failed to create table %s: %w", table, err)
	}

	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoted, columnList(columns), placeholderList(len(columns)))
	stmt, err := tx.PreparexContext(ctx, insertSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err = stmt.ExecContext(ctx, rowArgs(row, columns, sqliteDialect)...); err != nil {
			return 0, fmt.Errorf("failed to insert row from line %d: %w", row.Line, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return countRows(ctx, s.db, quoted)
}

// Close closes the database file
func (s *SQLiteSink) Close() error {
	s.logger.Info("Closing SQLite database", zap.String("path", s.cfg.Path))
	return s.db.Close()
}

// placeholderList renders n comma-separated ? placeholders
func placeholderList(n int) string {
	placeholders := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',', ' ')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
