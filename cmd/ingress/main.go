package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/globalmed/customer-ingress/pkg/config"
	"github.com/globalmed/customer-ingress/pkg/pipeline"
	"github.com/globalmed/customer-ingress/pkg/sink"
	"github.com/globalmed/customer-ingress/pkg/source"
)

type ingestOptions struct {
	input     string
	outDir    string
	sinkType  string
	asOf      string
	workers   int
	envFile   string
	logLevel  string
	logFormat string
	dryRun    bool
	noVerify  bool
}

func newRootCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingress",
		Short: "Ingest a pipe-delimited customer feed into per-country tables",
		Long: `ingress reads a pipe-delimited customer flat file, validates and cleans
every record, keeps the latest consultation per customer, derives age and
recency columns, and writes one Table_<Country> artifact per country to the
configured sink.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, opts)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "Path to the source flat file (required unless INGRESS_SOURCE_PATH is set)")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", "", "Output directory for the csv sink")
	cmd.Flags().StringVar(&opts.sinkType, "sink", "", "Sink type: csv, sqlite, postgres or snowflake")
	cmd.Flags().StringVar(&opts.asOf, "as-of", "", "Reference date for derived columns (YYYY-MM-DD)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Write pool size, 0 sizes it from partitions and CPUs")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "Load environment variables from this file")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	cmd.Flags().StringVar(&opts.logFormat, "log-format", "", "Log format: json or console")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Plan partitions without writing to the sink")
	cmd.Flags().BoolVar(&opts.noVerify, "no-verify", false, "Skip post-write row count verification")

	return cmd
}

func runIngest(cmd *cobra.Command, opts ingestOptions) error {
	ctx := cmd.Context()

	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", opts.envFile, err)
		}
	} else {
		// Missing .env is fine, the environment may already be populated
		_ = godotenv.Load()
	}

	cfg := config.LoadConfig()
	applyFlagOverrides(cmd, opts, cfg)

	logger, err := buildLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsureSinkConfig(); err != nil {
		return err
	}

	tableSink, err := sink.NewFactory(cfg, logger).Create(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := tableSink.Close(); err != nil {
			logger.Warn("Failed to close sink", zap.Error(err))
		}
	}()

	runner, err := pipeline.NewRunner(source.NewFileSource(cfg.SourcePath), tableSink, cfg, logger)
	if err != nil {
		return err
	}

	report, runErr := runner.Run(ctx)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, runner.GenerateReport())
	printPlan(out, report)

	return runErr
}

// applyFlagOverrides lets explicit flags win over environment configuration
func applyFlagOverrides(cmd *cobra.Command, opts ingestOptions, cfg *config.Config) {
	if cmd.Flags().Changed("input") {
		cfg.SourcePath = opts.input
	}
	if cmd.Flags().Changed("out-dir") {
		cfg.OutputDir = opts.outDir
	}
	if cmd.Flags().Changed("sink") {
		cfg.Sink = opts.sinkType
	}
	if cmd.Flags().Changed("as-of") {
		cfg.AsOf = opts.asOf
	}
	if cmd.Flags().Changed("workers") {
		cfg.WriteWorkers = opts.workers
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = opts.logFormat
	}
	if opts.dryRun {
		cfg.DryRun = true
	}
	if opts.noVerify {
		cfg.VerifyWrites = false
	}
}

// buildLogger constructs the process logger from the configured level and
// format
func buildLogger(level, format string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}

	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(parsed)

	return zapCfg.Build()
}

// printPlan lists the partitions a dry run would have written
func printPlan(out io.Writer, report *pipeline.RunReport) {
	if report == nil || len(report.PlannedPartitions) == 0 {
		return
	}

	tables := make([]string, 0, len(report.PlannedPartitions))
	for table := range report.PlannedPartitions {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	fmt.Fprintln(out, "Planned partitions:")
	for _, table := range tables {
		fmt.Fprintf(out, "  %s: %d rows\n", table, report.PlannedPartitions[table])
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
