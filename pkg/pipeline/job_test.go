package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalmed/customer-ingress/pkg/model"
)

func TestNewPartitionJob(t *testing.T) {
	rows := []model.Row{model.NewRow(2), model.NewRow(3)}

	job := NewPartitionJob("USA", "Table_USA", rows)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "USA", job.Country)
	assert.Equal(t, "Table_USA", job.Table)
	assert.Len(t, job.Rows, 2)
	assert.False(t, job.CreatedAt.IsZero())
}

func TestPartitionResultComplete(t *testing.T) {
	job := NewPartitionJob("USA", "Table_USA", []model.Row{model.NewRow(2)})
	result := NewPartitionResult(job, 3)

	assert.Equal(t, job.ID, result.JobID)
	assert.Equal(t, 1, result.RowsExpected)
	assert.Equal(t, 3, result.WorkerID)

	result.Complete(true)
	assert.True(t, result.Success)
	assert.False(t, result.EndTime.IsZero())
	assert.GreaterOrEqual(t, result.Duration, time.Duration(0))
}

func TestRunReportAddPartitionResult(t *testing.T) {
	report := NewRunReport("run-1", "feed.txt")

	ok := PartitionResult{Table: "Table_USA", Success: true, Verified: true, RowsWritten: 5}
	report.AddPartitionResult(ok)

	unverified := PartitionResult{Table: "Table_PHIL", Success: true, RowsWritten: 2}
	report.AddPartitionResult(unverified)

	failed := PartitionResult{Table: "Table_IND", Success: false, Message: "disk full"}
	report.AddPartitionResult(failed)

	assert.Equal(t, []string{"Table_USA", "Table_PHIL"}, report.PartitionsWritten)
	assert.Equal(t, []string{"Table_PHIL"}, report.PartitionsUnverified)
	assert.Equal(t, int64(7), report.RowsWritten)
	assert.Equal(t, "disk full", report.PartitionsFailed["Table_IND"])
}

func TestRunReportErr(t *testing.T) {
	report := NewRunReport("run-1", "feed.txt")
	assert.NoError(t, report.Err())

	report.AddPartitionResult(PartitionResult{Table: "Table_IND", Message: "disk full"})
	report.AddPartitionResult(PartitionResult{Table: "Table_AU", Message: "timeout"})

	err := report.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 partition(s)")
	assert.Contains(t, err.Error(), "Table_AU, Table_IND")

	assert.Equal(t, []string{"Table_AU", "Table_IND"}, report.Failed())
}

func TestRunReportCompleteSortsPartitions(t *testing.T) {
	report := NewRunReport("run-1", "feed.txt")

	report.AddPartitionResult(PartitionResult{Table: "Table_USA", Success: true, Verified: true})
	report.AddPartitionResult(PartitionResult{Table: "Table_AU", Success: true, Verified: true})
	report.Complete()

	assert.Equal(t, []string{"Table_AU", "Table_USA"}, report.PartitionsWritten)
	assert.Empty(t, report.PartitionsUnverified)
	assert.False(t, report.EndTime.IsZero())
}

func TestRunReportFailureWithoutMessage(t *testing.T) {
	report := NewRunReport("run-1", "feed.txt")

	report.AddPartitionResult(PartitionResult{Table: "Table_USA", Success: false})
	assert.Equal(t, "unknown error", report.PartitionsFailed["Table_USA"])
}
