package pipeline

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/globalmed/customer-ingress/pkg/cleaner"
	"github.com/globalmed/customer-ingress/pkg/config"
	"github.com/globalmed/customer-ingress/pkg/dedup"
	"github.com/globalmed/customer-ingress/pkg/derive"
	"github.com/globalmed/customer-ingress/pkg/model"
	"github.com/globalmed/customer-ingress/pkg/sink"
	"github.com/globalmed/customer-ingress/pkg/source"
)

// maxWriteWorkers caps the write pool regardless of configuration
const maxWriteWorkers = 8

// Runner orchestrates a full ingest run from source file to sink tables
type Runner struct {
	id          string
	cfg         *config.Config
	source      source.LineSource
	sink        sink.TableSink
	classifier  *source.Classifier
	binder      *source.Binder
	cleaner     *cleaner.Cleaner
	dedup       *dedup.Deduplicator
	deriver     *derive.Deriver
	issues      *IssueLog
	metrics     *RunMetrics
	logger      *zap.Logger
	workerCount int
}

// NewRunner wires the pipeline stages together for one run
func NewRunner(
	lineSource source.LineSource,
	tableSink sink.TableSink,
	cfg *config.Config,
	logger *zap.Logger,
) (*Runner, error) {
	if lineSource == nil {
		return nil, fmt.Errorf("line source cannot be nil")
	}
	if tableSink == nil {
		return nil, fmt.Errorf("table sink cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	runID := uuid.New().String()
	runLogger := logger.With(zap.String("runID", runID))

	asOf, err := resolveAsOf(cfg.AsOf)
	if err != nil {
		return nil, fmt.Errorf("invalid as-of date %q: %w", cfg.AsOf, err)
	}

	rowCleaner, err := cleaner.NewCleaner(runLogger)
	if err != nil {
		return nil, err
	}

	return &Runner{
		id:          runID,
		cfg:         cfg,
		source:      lineSource,
		sink:        tableSink,
		classifier:  source.NewClassifier(runLogger),
		binder:      source.NewBinder(runLogger),
		cleaner:     rowCleaner,
		dedup:       dedup.NewDeduplicator(runLogger),
		deriver:     derive.NewDeriver(asOf, runLogger),
		issues:      NewIssueLog(runLogger),
		metrics:     NewRunMetrics(runLogger),
		logger:      runLogger,
		workerCount: cfg.WriteWorkers,
	}, nil
}

// resolveAsOf parses the reference date override, defaulting to the current
// day in UTC
func resolveAsOf(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

// WithWorkerCount overrides the write pool size
func (r *Runner) WithWorkerCount(count int) *Runner {
	r.workerCount = count
	return r
}

// ID returns the unique identifier of this run
func (r *Runner) ID() string {
	return r.id
}

// GetMetrics returns the run metrics
func (r *Runner) GetMetrics() *RunMetrics {
	return r.metrics
}

// GetIssueSummary returns issue counts by category
func (r *Runner) GetIssueSummary() map[IssueCategory]int {
	return r.issues.Counts()
}

// GenerateReport creates a detailed metrics report
func (r *Runner) GenerateReport() string {
	return r.metrics.GenerateReport()
}

// Run executes the full pipeline and returns the run report
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	report := NewRunReport(r.id, r.source.Name())

	r.logger.Info("Starting ingest run",
		zap.String("source", r.source.Name()),
		zap.String("sink", r.cfg.Sink),
		zap.Time("asOf", r.deriver.AsOf()),
		zap.Bool("dryRun", r.cfg.DryRun))

	stageStart := time.Now()
	lines, err := r.source.ReadLines(ctx)
	if err != nil {
		return report, err
	}
	report.LinesRead = len(lines)
	r.metrics.RecordStage("read", stageStart, len(lines))

	stageStart = time.Now()
	records, err := r.classifier.Classify(lines)
	if err != nil {
		return report, err
	}
	report.DataRecords = len(records.Data)
	report.IgnoredRecords = records.Ignored
	report.ExtraHeaders = records.ExtraHeaders

	schema := model.SchemaFromHeader(records.Header.Fields)
	r.logger.Info("Bound header schema",
		zap.Int("width", schema.Width()),
		zap.Strings("columns", schema.ColumnNames()))

	rows, malformed := r.binder.Bind(schema, records.Data)
	report.MalformedRecords = malformed
	r.metrics.RecordStage("classify", stageStart, len(rows))

	stageStart = time.Now()
	cleaned, cleanResult, err := r.cleaner.CleanRows(rows, schema)
	if err != nil {
		return report, err
	}
	r.issues.RecordOperations(cleanResult.Operations)
	report.RowsDropped = cleanResult.Dropped
	report.FieldsNulled = cleanResult.Nulled
	report.DatesCoerced = cleanResult.Coerced
	r.metrics.RecordStage("clean", stageStart, len(cleaned))

	stageStart = time.Now()
	canonical, collapsed, err := r.dedup.Collapse(cleaned, schema)
	if err != nil {
		return report, err
	}
	report.DuplicatesCollapsed = collapsed
	r.metrics.RecordStage("dedup", stageStart, len(canonical))

	stageStart = time.Now()
	enriched := r.deriver.Enrich(canonical, schema)
	report.CanonicalRows = len(enriched)
	r.metrics.RecordStage("derive", stageStart, len(enriched))

	jobs := r.partitionJobs(enriched, schema)
	columns := outputColumns(schema)

	if r.cfg.DryRun {
		for _, job := range jobs {
			report.PlannedPartitions[job.Table] = len(job.Rows)
		}
		r.logger.Info("Dry run, skipping sink writes",
			zap.Int("partitions", len(jobs)))

		report.Complete()
		r.metrics.RecordIssues(r.issues.Counts())
		r.metrics.Complete()
		return report, nil
	}

	if err := r.sink.Setup(ctx); err != nil {
		return report, fmt.Errorf("failed to prepare sink: %w", err)
	}

	if len(jobs) > 0 {
		r.writePartitions(ctx, jobs, columns, report)
	} else {
		r.logger.Info("No partitions to write")
	}

	report.Complete()
	r.metrics.RecordIssues(r.issues.Counts())
	r.metrics.Complete()

	r.logger.Info("Ingest run completed",
		zap.Int("linesRead", report.LinesRead),
		zap.Int("canonicalRows", report.CanonicalRows),
		zap.Int("partitionsWritten", len(report.PartitionsWritten)),
		zap.Int("partitionsFailed", len(report.PartitionsFailed)),
		zap.Int("partitionsUnverified", len(report.PartitionsUnverified)),
		zap.Int64("rowsWritten", report.RowsWritten),
		zap.Duration("duration", report.Duration))

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("run cancelled: %w", err)
	}

	return report, report.Err()
}

// partitionJobs groups canonical rows by country and freezes a stable row
// order inside each partition
func (r *Runner) partitionJobs(rows []model.Row, schema *model.Schema) []PartitionJob {
	countryColumn := schema.ColumnByRole(model.RoleCountry)

	groups := make(map[string][]model.Row)
	for _, row := range rows {
		country := sink.UnknownCountry
		if countryColumn != nil && !row.IsNull(countryColumn.Name) {
			country = row.Text(countryColumn.Name)
		}
		groups[country] = append(groups[country], row)
	}

	countries := make([]string, 0, len(groups))
	for country := range groups {
		countries = append(countries, country)
	}
	sort.Strings(countries)

	jobs := make([]PartitionJob, 0, len(countries))
	for _, country := range countries {
		group := groups[country]
		sortPartition(group, schema)
		jobs = append(jobs, NewPartitionJob(country, sink.TableName(country), group))
	}

	r.logger.Info("Partitioned rows by country",
		zap.Int("partitions", len(jobs)),
		zap.Int("rows", len(rows)))

	return jobs
}

// sortPartition orders rows by customer id, then source line, to keep rerun
// output stable
func sortPartition(rows []model.Row, schema *model.Schema) {
	idColumn := schema.ColumnByRole(model.RoleCustomerID)

	sort.SliceStable(rows, func(i, j int) bool {
		if idColumn != nil {
			a := rows[i].Text(idColumn.Name)
			b := rows[j].Text(idColumn.Name)
			if a != b {
				return a < b
			}
		}
		return rows[i].Line < rows[j].Line
	})
}

// outputColumns builds the sink column layout: every source column in header
// order, then the derived columns
func outputColumns(schema *model.Schema) []sink.ColumnSpec {
	specs := make([]sink.ColumnSpec, 0, schema.Width()+len(derive.Columns()))

	for _, column := range schema.Columns {
		kind := sink.KindText
		if column.IsDate() {
			kind = sink.KindDate
		}
		specs = append(specs, sink.ColumnSpec{Name: column.Name, Kind: kind})
	}

	specs = append(specs,
		sink.ColumnSpec{Name: derive.ColumnAge, Kind: sink.KindInteger},
		sink.ColumnSpec{Name: derive.ColumnDaysSinceLastConsulted, Kind: sink.KindInteger},
		sink.ColumnSpec{Name: derive.ColumnConsultedRecently, Kind: sink.KindText},
	)

	return specs
}

// writePartitions fans partition jobs out to the write pool and waits for
// every result
func (r *Runner) writePartitions(ctx context.Context, jobs []PartitionJob, columns []sink.ColumnSpec, report *RunReport) {
	workerCount := calculateWorkerCount(r.workerCount, len(jobs))
	r.logger.Info("Starting write pool",
		zap.Int("workers", workerCount),
		zap.Int("partitions", len(jobs)))

	jobQueue := make(chan PartitionJob, len(jobs))
	resultQueue := make(chan PartitionResult, len(jobs))

	// Start result processor
	done := make(chan struct{})
	go r.processResults(resultQueue, report, done)

	// Start workers
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		worker := NewWorker(i, r.sink, columns, r.cfg.VerifyWrites, r.issues, r.logger)
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Start(workerCtx, jobQueue, resultQueue)
		}(worker)
	}

	// The queue is buffered to hold every job, so submission never blocks
	for _, job := range jobs {
		jobQueue <- job
	}
	close(jobQueue)

	// Wait for all jobs to complete or the context to be cancelled
	allJobsComplete := make(chan struct{})
	go func() {
		wg.Wait()
		close(allJobsComplete)
	}()

	select {
	case <-ctx.Done():
		r.logger.Warn("Run cancelled, stopping workers")
		cancelWorkers()
		<-allJobsComplete
	case <-allJobsComplete:
		r.logger.Info("All workers have completed")
	}

	close(resultQueue)
	<-done
}

// processResults folds worker results into the report as they arrive
func (r *Runner) processResults(results <-chan PartitionResult, report *RunReport, done chan struct{}) {
	defer close(done)

	for result := range results {
		report.AddPartitionResult(result)
		r.metrics.RecordPartition(result)
	}
}

// calculateWorkerCount sizes the write pool from the configured override and
// the partition count
func calculateWorkerCount(configured, jobCount int) int {
	count := configured
	if count <= 0 {
		// Use 75% of available CPUs
		count = int(math.Ceil(float64(runtime.NumCPU()) * 0.75))
	}

	// One worker per partition is the useful maximum
	if count > jobCount {
		count = jobCount
	}

	if count < 1 {
		count = 1
	} else if count > maxWriteWorkers {
		count = maxWriteWorkers
	}

	return count
}
