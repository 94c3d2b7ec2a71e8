// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
)

// Sink names accepted by the pipeline
const (
	SinkCSV       = "csv"
	SinkSQLite    = "sqlite"
	SinkPostgres  = "postgres"
	SinkSnowflake = "snowflake"
)

// Config represents the application configuration
type Config struct {
	// Source and output
	SourcePath string
	OutputDir  string

	// Sink selection
	Sink string

	// Sink connections, resolved for the selected sink only
	SQLite    *SQLiteConfig
	Postgres  *PostgresConfig
	Snowflake *SnowflakeConfig

	// Run settings
	AsOf         string // Reference date override, YYYY-MM-DD or RFC 3339
	WriteWorkers int    // 0 means size the pool from partition and CPU counts
	VerifyWrites bool
	DryRun       bool

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables. Connection
// settings for server-backed sinks are resolved later by EnsureSinkConfig
// so a plain CSV run never demands warehouse credentials
func LoadConfig() *Config {
	return &Config{
		SourcePath:   getEnv("INGRESS_SOURCE_PATH", ""),
		OutputDir:    getEnv("INGRESS_OUTPUT_DIR", "output"),
		Sink:         getEnv("INGRESS_SINK", SinkCSV),
		SQLite:       LoadSQLiteConfig(),
		AsOf:         getEnv("INGRESS_AS_OF", ""),
		WriteWorkers: getEnvAsInt("INGRESS_WRITE_WORKERS", 0),
		VerifyWrites: getEnvAsBool("INGRESS_VERIFY_WRITES", true),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
	}
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.SourcePath == "" {
		return errors.New("source path is required")
	}

	switch c.Sink {
	case SinkCSV, SinkSQLite, SinkPostgres, SinkSnowflake:
	default:
		return errors.New("unknown sink type: " + c.Sink)
	}

	if c.Sink == SinkCSV && c.OutputDir == "" {
		return errors.New("output directory is required for the csv sink")
	}

	if c.WriteWorkers < 0 {
		return errors.New("write workers cannot be negative")
	}

	return nil
}

// EnsureSinkConfig loads connection settings for the selected sink. It runs
// after command line overrides so the sink choice is final
func (c *Config) EnsureSinkConfig() error {
	switch c.Sink {
	case SinkPostgres:
		if c.Postgres != nil {
			return nil
		}
		pgConfig, err := LoadPostgresConfig()
		if err != nil {
			return errors.New("failed to load PostgreSQL configuration: " + err.Error())
		}
		c.Postgres = pgConfig
	case SinkSnowflake:
		if c.Snowflake != nil {
			return nil
		}
		snowConfig, err := LoadSnowflakeConfig()
		if err != nil {
			return errors.New("failed to load Snowflake configuration: " + err.Error())
		}
		c.Snowflake = snowConfig
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
