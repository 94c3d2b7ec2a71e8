// pkg/sink/factory.go
package sink

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/globalmed/customer-ingress/pkg/config"
)

// Factory creates the sink selected by configuration
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new sink factory
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// Create builds the configured sink. Server-backed sinks connect and verify
// here so a bad target fails the run before any parsing work
func (f *Factory) Create(ctx context.Context) (TableSink, error) {
	switch f.cfg.Sink {
	case config.SinkCSV:
		f.logger.Info("Creating CSV sink", zap.String("dir", f.cfg.OutputDir))
		return NewCSVSink(f.cfg.OutputDir), nil

	case config.SinkSQLite:
		f.logger.Info("Creating SQLite sink", zap.String("path", f.cfg.SQLite.Path))
		sqliteSink, err := NewSQLiteSink(ctx, f.cfg.SQLite)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite sink: %w", err)
		}
		return sqliteSink, nil

	case config.SinkPostgres:
		f.logger.Info("Creating PostgreSQL sink")
		pgSink, err := NewPostgresSink(ctx, f.cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL sink: %w", err)
		}
		return pgSink, nil

	case config.SinkSnowflake:
		f.logger.Info("Creating Snowflake sink")
		snowSink, err := NewSnowflakeSink(ctx, f.cfg.Snowflake)
		if err != nil {
			return nil, fmt.Errorf("failed to create Snowflake sink: %w", err)
		}
		return snowSink, nil

	default:
		return nil, fmt.Errorf("unknown sink type: %s", f.cfg.Sink)
	}
}
