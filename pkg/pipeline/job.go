package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/globalmed/customer-ingress/pkg/model"
)

// PartitionJob represents one country partition waiting to be written
type PartitionJob struct {
	ID        string
	Table     string
	Country   string
	Rows      []model.Row
	CreatedAt time.Time
}

// NewPartitionJob creates a new partition job with a unique ID
func NewPartitionJob(country, table string, rows []model.Row) PartitionJob {
	return PartitionJob{
		ID:        uuid.New().String(),
		Table:     table,
		Country:   country,
		Rows:      rows,
		CreatedAt: time.Now(),
	}
}

// PartitionResult represents the outcome of writing one partition
type PartitionResult struct {
	JobID        string
	Table        string
	Country      string
	Success      bool
	RowsWritten  int64
	RowsExpected int
	Verified     bool
	Message      string
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	WorkerID     int
}

// NewPartitionResult initializes a result for a job
func NewPartitionResult(job PartitionJob, workerID int) PartitionResult {
	return PartitionResult{
		JobID:        job.ID,
		Table:        job.Table,
		Country:      job.Country,
		RowsExpected: len(job.Rows),
		StartTime:    time.Now(),
		WorkerID:     workerID,
	}
}

// Complete marks the result as finished and calculates duration
func (r *PartitionResult) Complete(success bool) {
	r.Success = success
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// RunReport aggregates everything a single ingest run did
type RunReport struct {
	RunID               string
	SourcePath          string
	LinesRead           int
	DataRecords         int
	IgnoredRecords      int
	ExtraHeaders        int
	MalformedRecords    int
	RowsDropped         map[string]int // Keyed by the first missing mandatory column
	FieldsNulled        map[string]int // Overlength cells nulled, keyed by column
	DatesCoerced        map[string]int // Unparseable date cells nulled, keyed by column
	DuplicatesCollapsed  int
	CanonicalRows        int
	PartitionsWritten    []string
	PartitionsUnverified []string          // Written, but the persisted row count disagreed
	PartitionsFailed     map[string]string // Table name -> error message
	PlannedPartitions    map[string]int    // Dry-run row counts, keyed by table
	RowsWritten          int64
	StartTime           time.Time
	EndTime             time.Time
	Duration            time.Duration
}

// NewRunReport creates an empty report for a run
func NewRunReport(runID, sourcePath string) *RunReport {
	return &RunReport{
		RunID:             runID,
		SourcePath:        sourcePath,
		RowsDropped:       make(map[string]int),
		FieldsNulled:      make(map[string]int),
		DatesCoerced:      make(map[string]int),
		PartitionsWritten: make([]string, 0),
		PartitionsFailed:  make(map[string]string),
		PlannedPartitions: make(map[string]int),
		StartTime:         time.Now(),
	}
}

// AddPartitionResult folds a worker result into the report
func (r *RunReport) AddPartitionResult(result PartitionResult) {
	if result.Success {
		r.PartitionsWritten = append(r.PartitionsWritten, result.Table)
		r.RowsWritten += result.RowsWritten
		if !result.Verified {
			r.PartitionsUnverified = append(r.PartitionsUnverified, result.Table)
		}
		return
	}

	message := result.Message
	if message == "" {
		message = "unknown error"
	}
	r.PartitionsFailed[result.Table] = message
}

// Complete marks the report as finished and freezes the partition order
func (r *RunReport) Complete() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
	sort.Strings(r.PartitionsWritten)
	sort.Strings(r.PartitionsUnverified)
}

// Failed returns the failed table names in sorted order
func (r *RunReport) Failed() []string {
	failed := make([]string, 0, len(r.PartitionsFailed))
	for table := range r.PartitionsFailed {
		failed = append(failed, table)
	}
	sort.Strings(failed)
	return failed
}

// Err reports partition write failures as a single error, nil when every
// partition landed
func (r *RunReport) Err() error {
	if len(r.PartitionsFailed) == 0 {
		return nil
	}
	return fmt.Errorf("failed to write %d partition(s): %s",
		len(r.PartitionsFailed), strings.Join(r.Failed(), ", "))
}
