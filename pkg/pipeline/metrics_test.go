package pipeline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunMetricsRecordStage(t *testing.T) {
	rm := NewRunMetrics(zap.NewNop())

	rm.RecordStage("read", time.Now().Add(-10*time.Millisecond), 120)
	rm.RecordStage("clean", time.Now(), 100)

	require.Len(t, rm.Stages, 2)
	assert.Equal(t, "read", rm.Stages[0].Name)
	assert.Equal(t, 120, rm.Stages[0].Rows)
	assert.GreaterOrEqual(t, rm.Stages[0].Duration, 10*time.Millisecond)
	assert.Equal(t, "clean", rm.Stages[1].Name)
}

func TestRunMetricsRecordPartition(t *testing.T) {
	rm := NewRunMetrics(zap.NewNop())

	ok := PartitionResult{Success: true, RowsWritten: 3, WorkerID: 0, Duration: time.Second}
	alsoOK := PartitionResult{Success: true, RowsWritten: 2, WorkerID: 1, Duration: time.Second}
	failed := PartitionResult{Success: false, WorkerID: 0, Duration: 2 * time.Second}

	rm.RecordPartition(ok)
	rm.RecordPartition(alsoOK)
	rm.RecordPartition(failed)

	assert.Equal(t, 2, rm.PartitionsWritten)
	assert.Equal(t, 1, rm.PartitionsFailed)
	assert.Equal(t, int64(5), rm.RowsWritten)
	assert.Equal(t, 3*time.Second, rm.WorkerUtilization[0])
	assert.Equal(t, time.Second, rm.WorkerUtilization[1])
}

func TestRunMetricsThroughput(t *testing.T) {
	rm := NewRunMetrics(zap.NewNop())
	rm.EndTime = rm.StartTime.Add(2 * time.Second)
	rm.RowsWritten = 10

	assert.Equal(t, 2*time.Second, rm.Duration())
	assert.InDelta(t, 5.0, rm.Throughput(), 0.001)
}

func TestRunMetricsGenerateReport(t *testing.T) {
	rm := NewRunMetrics(zap.NewNop())
	rm.RecordStage("read", time.Now(), 12)
	rm.RecordPartition(PartitionResult{Success: true, RowsWritten: 5, WorkerID: 0, Duration: time.Second})
	rm.RecordIssues(map[IssueCategory]int{IssueCategoryDateCoercion: 1})
	rm.Complete()

	report := rm.GenerateReport()

	assert.Contains(t, report, "Ingest Metrics Report")
	assert.Contains(t, report, "Partition Summary")
	assert.Contains(t, report, "Written Partitions:      1 (100.0%)")
	assert.Contains(t, report, "Total Rows Written:      5")
	assert.Contains(t, report, "Stage Timings")
	assert.Contains(t, report, "- read: ")
	assert.Contains(t, report, "12 rows")
	assert.Contains(t, report, "Issue Distribution")
	assert.Contains(t, report, "- DateCoercion: 1")
	assert.Contains(t, report, "Worker Utilization")
	assert.Contains(t, report, "- Worker 0: ")
}

func TestRunMetricsGenerateReport_EmptyRun(t *testing.T) {
	rm := NewRunMetrics(zap.NewNop())
	rm.Complete()

	report := rm.GenerateReport()

	// Zero partitions must not divide by zero
	assert.Contains(t, report, "Total Partitions:        0")
	assert.Contains(t, report, "Written Partitions:      0 (0.0%)")
	assert.NotContains(t, report, "Issue Distribution")
	assert.NotContains(t, report, "Worker Utilization")
}

func TestRunMetricsToJSON(t *testing.T) {
	rm := NewRunMetrics(zap.NewNop())
	rm.EndTime = rm.StartTime.Add(2 * time.Second)
	rm.PartitionsWritten = 3
	rm.RowsWritten = 10
	rm.IssueCounts[IssueCategoryDateCoercion] = 2

	data, err := rm.ToJSON()
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &payload))

	assert.Equal(t, "2.00s", payload["duration"])
	assert.Equal(t, float64(3), payload["partitionsWritten"])
	assert.Equal(t, float64(0), payload["partitionsFailed"])
	assert.Equal(t, float64(10), payload["rowsWritten"])
	assert.InDelta(t, 5.0, payload["throughput"].(float64), 0.001)

	issueCounts, ok := payload["issueCounts"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), issueCounts["DateCoercion"])
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{"sub minute", 1500 * time.Millisecond, "1.50s"},
		{"minutes", 150 * time.Second, "2m 30s"},
		{"hours", 90 * time.Minute, "1h 30m 0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.d))
		})
	}
}
