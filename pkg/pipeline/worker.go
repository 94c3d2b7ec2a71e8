package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/globalmed/customer-ingress/pkg/sink"
)

// Worker writes partition jobs to the configured sink
type Worker struct {
	ID      int
	sink    sink.TableSink
	columns []sink.ColumnSpec
	verify  bool
	issues  *IssueLog
	logger  *zap.Logger
}

// NewWorker creates a new worker
func NewWorker(
	id int,
	tableSink sink.TableSink,
	columns []sink.ColumnSpec,
	verify bool,
	issues *IssueLog,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		ID:      id,
		sink:    tableSink,
		columns: columns,
		verify:  verify,
		issues:  issues,
		logger:  logger.With(zap.Int("workerID", id)),
	}
}

// Start begins the worker processing loop
func (w *Worker) Start(ctx context.Context, jobs <-chan PartitionJob, results chan<- PartitionResult) {
	w.logger.Info("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker stopping due to context cancellation")
			return

		case job, ok := <-jobs:
			if !ok {
				// Channel closed, no more jobs
				w.logger.Info("Worker stopping due to closed job channel")
				return
			}

			result := w.ProcessJob(ctx, job)

			// Send the result
			select {
			case results <- result:
				// Result sent successfully
			case <-ctx.Done():
				w.logger.Warn("Context cancelled while sending result",
					zap.String("table", job.Table))
				return
			}
		}
	}
}

// ProcessJob writes a single partition and reports the outcome
func (w *Worker) ProcessJob(ctx context.Context, job PartitionJob) PartitionResult {
	result := NewPartitionResult(job, w.ID)

	w.logger.Info("Starting partition write",
		zap.String("table", job.Table),
		zap.String("country", job.Country),
		zap.Int("rows", len(job.Rows)))

	written, err := w.sink.WriteTable(ctx, job.Table, w.columns, job.Rows)
	if err != nil {
		result.Message = err.Error()
		result.Complete(false)

		w.issues.Record(NewIssue(err.Error(), IssueCategoryWriteFailure).WithTable(job.Table))
		w.logger.Error("Partition write failed",
			zap.String("table", job.Table),
			zap.Error(err))
		return result
	}

	result.RowsWritten = written
	result.Verified = true

	if w.verify && written != int64(len(job.Rows)) {
		result.Verified = false

		message := fmt.Sprintf("row count mismatch: wrote %d rows, expected %d", written, len(job.Rows))
		w.issues.Record(NewIssue(message, IssueCategoryVerification).WithTable(job.Table))
		w.logger.Warn("Partition verification failed",
			zap.String("table", job.Table),
			zap.Int64("rowsWritten", written),
			zap.Int("rowsExpected", len(job.Rows)))
	}

	result.Complete(true)

	w.logger.Info("Partition write completed",
		zap.String("table", job.Table),
		zap.Int64("rowsWritten", written),
		zap.Bool("verified", result.Verified),
		zap.Duration("duration", result.Duration))

	return result
}
