// pkg/sink/snowflake.go
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/globalmed/customer-ingress/pkg/config"
	"github.com/globalmed/customer-ingress/pkg/model"
)

var snowflakeDialect = dialect{
	placeholder: func(int) string { return "?" },
	typeFor: func(kind ColumnKind) string {
		switch kind {
		case KindDate:
			return "DATE"
		case KindInteger:
			return "INTEGER"
		default:
			return "VARCHAR"
		}
	},
}

// SnowflakeSink writes partition tables into a Snowflake schema
type SnowflakeSink struct {
	db     *sqlx.DB
	cfg    *config.SnowflakeConfig
	logger *zap.Logger
}

// NewSnowflakeSink creates a new Snowflake connection
func NewSnowflakeSink(ctx context.Context, cfg *config.SnowflakeConfig) (*SnowflakeSink, error) {
	logger := zap.L().Named("snowflake-sink")

	// Log connection attempt (without credentials)
	logger.Info("Connecting to Snowflake",
		zap.String("account", cfg.Account),
		zap.String("user", cfg.User),
		zap.String("database", cfg.Database),
		zap.String("warehouse", cfg.Warehouse),
		zap.String("role", cfg.Role))

	dsn, err := cfg.DSN()
	if err != nil {
		return nil, fmt.Errorf("failed to build Snowflake DSN: %w", err)
	}

	db, err := sqlx.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Snowflake connection: %w", err)
	}

	// Configure connection pool
	ApplyConnectionSettings(
		db.DB,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	// Set query timeout if configured
	if cfg.QueryTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("ALTER SESSION SET STATEMENT_TIMEOUT_IN_SECONDS = %d",
				int(cfg.QueryTimeout.Seconds())),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	// Verify connection
	if err := PingWithTimeout(ctx, db.DB, 10*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to Snowflake: %w", err)
	}

	LogConnectionStats(logger, cfg.Database, db.DB)

	return &SnowflakeSink{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Setup verifies the session context and ensures the target schema exists
func (s *SnowflakeSink) Setup(ctx context.Context) error {
	var role, database, warehouse string
	err := s.db.QueryRowContext(ctx,
		"SELECT CURRENT_ROLE(), CURRENT_DATABASE(), CURRENT_WAREHOUSE()").Scan(
		&role, &database, &warehouse)
	if err != nil {
		return fmt.Errorf("failed to verify Snowflake access: %w", err)
	}

	s.logger.Info("Connected to Snowflake",
		zap.String("role", role),
		zap.String("database", database),
		zap.String("warehouse", warehouse))

	if database != s.cfg.Database {
		return fmt.Errorf("connected to wrong database: %s (expected: %s)",
			database, s.cfg.Database)
	}

	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", quoteIdentifier(s.cfg.Schema)))
	if err != nil {
		return fmt.Errorf("failed to create schema %s: %w", s.cfg.Schema, err)
	}

	return nil
}

// WriteTable swaps the partition table with CREATE OR REPLACE. Snowflake
// autocommits DDL, so the swap itself is the atomic step
func (s *SnowflakeSink) WriteTable(ctx context.Context, table string, columns []ColumnSpec, rows []model.Row) (int64, error) {
	qualified := fmt.Sprintf("%s.%s", quoteIdentifier(s.cfg.Schema), quoteIdentifier(table))

	createSQL := fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s)",
		qualified, columnDefs(snowflakeDialect, columns))
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return 0, fmt.Errorf("failed to create table %s: %w", table, err)
	}

	if _, err := insertBatches(ctx, s.db, snowflakeDialect, qualified, columns, rows, 500); err != nil {
		return 0, fmt.Errorf("failed to load table %s: %w", table, err)
	}

	return countRows(ctx, s.db, qualified)
}

// Close closes the database connection
func (s *SnowflakeSink) Close() error {
	s.logger.Info("Closing Snowflake connection")
	LogConnectionStats(s.logger, s.cfg.Database, s.db.DB)
	return s.db.Close()
}
