package pipeline

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StageTiming records how long one pipeline stage took
type StageTiming struct {
	Name     string
	Duration time.Duration
	Rows     int // Rows flowing out of the stage
}

// RunMetrics tracks metrics for a single ingest run
type RunMetrics struct {
	mu                sync.Mutex
	logger            *zap.Logger
	StartTime         time.Time
	EndTime           time.Time
	Stages            []StageTiming
	PartitionsWritten int
	PartitionsFailed  int
	RowsWritten       int64
	WorkerUtilization map[int]time.Duration
	IssueCounts       map[IssueCategory]int
}

// NewRunMetrics creates a new RunMetrics instance
func NewRunMetrics(logger *zap.Logger) *RunMetrics {
	return &RunMetrics{
		StartTime:         time.Now(),
		Stages:            make([]StageTiming, 0),
		WorkerUtilization: make(map[int]time.Duration),
		IssueCounts:       make(map[IssueCategory]int),
		logger:            logger,
	}
}

// RecordStage records the elapsed time and resulting row count of a stage
func (rm *RunMetrics) RecordStage(name string, start time.Time, rows int) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	timing := StageTiming{
		Name:     name,
		Duration: time.Since(start),
		Rows:     rows,
	}
	rm.Stages = append(rm.Stages, timing)

	if rm.logger != nil {
		rm.logger.Debug("Stage completed",
			zap.String("stage", name),
			zap.Duration("duration", timing.Duration),
			zap.Int("rows", rows))
	}
}

// RecordPartition records metrics for a completed partition write
func (rm *RunMetrics) RecordPartition(result PartitionResult) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if result.Success {
		rm.PartitionsWritten++
		rm.RowsWritten += result.RowsWritten
	} else {
		rm.PartitionsFailed++
	}

	// Record worker utilization
	rm.WorkerUtilization[result.WorkerID] += result.Duration

	if rm.logger != nil {
		rm.logger.Info("Partition write recorded",
			zap.String("table", result.Table),
			zap.Bool("success", result.Success),
			zap.Int64("rowsWritten", result.RowsWritten),
			zap.Duration("duration", result.Duration),
			zap.Int("worker", result.WorkerID))
	}
}

// RecordIssues merges per-category issue counts into the metrics
func (rm *RunMetrics) RecordIssues(counts map[IssueCategory]int) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for category, count := range counts {
		rm.IssueCounts[category] += count
	}
}

// Complete marks the run as finished
func (rm *RunMetrics) Complete() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.EndTime = time.Now()

	if rm.logger != nil {
		rm.logger.Info("Run metrics finalized",
			zap.Duration("totalDuration", rm.EndTime.Sub(rm.StartTime)),
			zap.Int("partitionsWritten", rm.PartitionsWritten),
			zap.Int("partitionsFailed", rm.PartitionsFailed),
			zap.Int64("rowsWritten", rm.RowsWritten),
			zap.Float64("throughput", rm.Throughput()))
	}
}

// Duration returns the total duration of the run
func (rm *RunMetrics) Duration() time.Duration {
	if rm.EndTime.IsZero() {
		return time.Since(rm.StartTime)
	}
	return rm.EndTime.Sub(rm.StartTime)
}

// Throughput calculates the rows/second write throughput
func (rm *RunMetrics) Throughput() float64 {
	duration := rm.Duration().Seconds()
	if duration <= 0 {
		return 0
	}
	return float64(rm.RowsWritten) / duration
}

// GenerateReport creates a detailed metrics report
func (rm *RunMetrics) GenerateReport() string {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	totalPartitions := rm.PartitionsWritten + rm.PartitionsFailed

	report := fmt.Sprintf(`
Ingest Metrics Report
=====================
Duration:                %s
Start Time:              %s
End Time:                %s

Partition Summary
-----------------
Total Partitions:        %d
Written Partitions:      %d (%.1f%%)
Failed Partitions:       %d (%.1f%%)

Data Summary
------------
Total Rows Written:      %d
Average Throughput:      %.2f rows/sec
`,
		formatDuration(rm.Duration()),
		rm.StartTime.Format(time.RFC3339),
		rm.EndTime.Format(time.RFC3339),

		totalPartitions,
		rm.PartitionsWritten, rm.getPercentage(float64(rm.PartitionsWritten), float64(totalPartitions)),
		rm.PartitionsFailed, rm.getPercentage(float64(rm.PartitionsFailed), float64(totalPartitions)),

		rm.RowsWritten,
		rm.Throughput(),
	)

	// Add stage timings
	report += "\nStage Timings\n-------------\n"
	for _, stage := range rm.Stages {
		report += fmt.Sprintf("- %s: %s, %d rows\n",
			stage.Name, formatDuration(stage.Duration), stage.Rows)
	}

	// Add issue distribution
	if len(rm.IssueCounts) > 0 {
		report += "\nIssue Distribution\n------------------\n"
		for category, count := range rm.IssueCounts {
			report += fmt.Sprintf("- %s: %d\n", category.String(), count)
		}
	}

	// Add worker utilization
	if len(rm.WorkerUtilization) > 0 {
		report += "\nWorker Utilization\n------------------\n"
		for workerID, active := range rm.WorkerUtilization {
			report += fmt.Sprintf("- Worker %d: %s active\n", workerID, formatDuration(active))
		}
	}

	return report
}

// getPercentage safely calculates a percentage, avoiding division by zero
func (rm *RunMetrics) getPercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * 100
}

// ToJSON serializes metrics to JSON
func (rm *RunMetrics) ToJSON() ([]byte, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	issues := make(map[string]int, len(rm.IssueCounts))
	for category, count := range rm.IssueCounts {
		issues[category.String()] = count
	}

	return json.Marshal(struct {
		Duration          string         `json:"duration"`
		PartitionsWritten int            `json:"partitionsWritten"`
		PartitionsFailed  int            `json:"partitionsFailed"`
		RowsWritten       int64          `json:"rowsWritten"`
		Throughput        float64        `json:"throughput"`
		IssueCounts       map[string]int `json:"issueCounts"`
	}{
		Duration:          formatDuration(rm.Duration()),
		PartitionsWritten: rm.PartitionsWritten,
		PartitionsFailed:  rm.PartitionsFailed,
		RowsWritten:       rm.RowsWritten,
		Throughput:        rm.Throughput(),
		IssueCounts:       issues,
	})
}

// formatDuration formats a duration to a human-readable string
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
