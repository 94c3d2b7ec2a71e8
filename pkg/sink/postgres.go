// pkg/sink/postgres.go
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/globalmed/customer-ingress/pkg/config"
	"github.com/globalmed/customer-ingress/pkg/model"
)

var postgresDialect = dialect{
	placeholder: func(i int) string { return fmt.Sprintf("$%d", i) },
	typeFor: func(kind ColumnKind) string {
		switch kind {
		case KindDate:
			return "DATE"
		case KindInteger:
			return "INTEGER"
		default:
			return "TEXT"
		}
	},
}

// PostgresSink writes partition tables into a PostgreSQL schema
type PostgresSink struct {
	db     *sqlx.DB
	cfg    *config.PostgresConfig
	logger *zap.Logger
}

// NewPostgresSink creates and verifies a PostgreSQL-backed sink
func NewPostgresSink(ctx context.Context, cfg *config.PostgresConfig) (*PostgresSink, error) {
	logger := zap.L().Named("postgres-sink")

	// Log connection attempt (without credentials)
	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	db, err := sqlx.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	// Configure connection pool
	ApplyConnectionSettings(
		db.DB,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	// Set statement timeout if configured
	if cfg.StatementTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("SET statement_timeout = %d", cfg.StatementTimeout.Milliseconds()),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	// Verify connection
	if err := PingWithTimeout(ctx, db.DB, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	LogConnectionStats(logger, cfg.Database, db.DB)

	return &PostgresSink{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Setup ensures the target schema exists
func (s *PostgresSink) Setup(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", quoteIdentifier(s.cfg.Schema)))
	if err != nil {
		return fmt.Errorf("failed to create schema %s: %w", s.cfg.Schema, err)
	}
	return nil
}

// WriteTable replaces the partition table inside one transaction. DDL is
// transactional in PostgreSQL, so readers see the old table until commit
func (s *PostgresSink) WriteTable(ctx context.Context, table string, columns []ColumnSpec, rows []model.Row) (int64, error) {
	qualified := fmt.Sprintf("%s.%s", quoteIdentifier(s.cfg.Schema), quoteIdentifier(table))

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

	if _, err = tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", qualified)); err != nil {
		return 0, fmt.Errorf("failed to drop table %s: %w", table, err)
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", qualified, columnDefs(postgresDialect, columns))
	if _, err = tx.ExecContext(ctx, createSQL); err != nil {
		return 0, fmt.Errorf("failed to create table %s: %w", table, err)
	}

	if _, err = insertBatches(ctx, tx, postgresDialect, qualified, columns, rows, 500); err != nil {
		return 0, fmt.Errorf("failed to load table %s: %w", table, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return countRows(ctx, s.db, qualified)
}

// Close closes the database connection
func (s *PostgresSink) Close() error {
	s.logger.Info("Closing PostgreSQL connection")
	LogConnectionStats(s.logger, s.cfg.Database, s.db.DB)
	return s.db.Close()
}
