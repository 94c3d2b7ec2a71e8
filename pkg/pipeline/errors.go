package pipeline

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/globalmed/customer-ingress/pkg/model"
)

// IssueCategory classifies the data quality findings of a run
type IssueCategory int

const (
	IssueCategoryNone IssueCategory = iota
	IssueCategoryLengthViolation
	IssueCategoryDateCoercion
	IssueCategoryRowDropped
	IssueCategoryVerification
	IssueCategoryWriteFailure
)

// String returns a string representation of the issue category
func (ic IssueCategory) String() string {
	switch ic {
	case IssueCategoryNone:
		return "None"
	case IssueCategoryLengthViolation:
		return "LengthViolation"
	case IssueCategoryDateCoercion:
		return "DateCoercion"
	case IssueCategoryRowDropped:
		return "RowDropped"
	case IssueCategoryVerification:
		return "Verification"
	case IssueCategoryWriteFailure:
		return "WriteFailure"
	default:
		return fmt.Sprintf("Unknown(%d)", ic)
	}
}

// Issue represents a single finding raised while processing a run
type Issue struct {
	Category    IssueCategory
	Table       string
	Line        int
	Column      string
	SourceValue interface{}
	Message     string
	Timestamp   time.Time
}

// NewIssue creates a new issue with the current timestamp
func NewIssue(message string, category IssueCategory) Issue {
	return Issue{
		Category:  category,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithTable adds the affected output table to the issue
func (i Issue) WithTable(table string) Issue {
	i.Table = table
	return i
}

// WithLine adds the source line number to the issue
func (i Issue) WithLine(line int) Issue {
	i.Line = line
	return i
}

// WithColumn adds column information to the issue
func (i Issue) WithColumn(column string, sourceValue interface{}) Issue {
	i.Column = column
	i.SourceValue = sourceValue
	return i
}

// String returns a formatted issue message
func (i Issue) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", i.Category))

	if i.Table != "" {
		sb.WriteString(fmt.Sprintf("Table: %s ", i.Table))
	}

	if i.Line > 0 {
		sb.WriteString(fmt.Sprintf("Line: %d ", i.Line))
	}

	if i.Column != "" {
		sb.WriteString(fmt.Sprintf("Column: %s ", i.Column))
		if i.SourceValue != nil {
			sb.WriteString(fmt.Sprintf("Value: %v ", i.SourceValue))
		}
	}

	sb.WriteString(i.Message)

	return sb.String()
}

// categorizeOperation maps a cleaning action onto an issue category
func categorizeOperation(op model.FieldOperation) IssueCategory {
	switch op.Reason {
	case model.ReasonLengthOverCap:
		return IssueCategoryLengthViolation
	case model.ReasonUnparseableDate:
		return IssueCategoryDateCoercion
	case model.ReasonMissingMandatory:
		return IssueCategoryRowDropped
	default:
		return IssueCategoryNone
	}
}

// issueFromOperation converts a cleaning action into a recordable issue
func issueFromOperation(op model.FieldOperation) Issue {
	message := fmt.Sprintf("%s (%s)", op.Operation, op.Reason)
	return NewIssue(message, categorizeOperation(op)).
		WithLine(op.Line).
		WithColumn(op.Column, op.OriginalValue)
}

// IssueLog collects and counts issues raised anywhere in a run
type IssueLog struct {
	logger      *zap.Logger
	counts      map[IssueCategory]int
	samples     map[IssueCategory][]Issue
	tableIssues map[string]int
	mu          sync.Mutex
	maxSamples  int
}

// NewIssueLog creates a new issue log
func NewIssueLog(logger *zap.Logger) *IssueLog {
	return &IssueLog{
		logger:      logger,
		counts:      make(map[IssueCategory]int),
		samples:     make(map[IssueCategory][]Issue),
		tableIssues: make(map[string]int),
		maxSamples:  5, // Store up to 5 sample issues per category
	}
}

// Record saves an issue occurrence
func (il *IssueLog) Record(issue Issue) {
	il.mu.Lock()
	defer il.mu.Unlock()

	il.counts[issue.Category]++

	samples := il.samples[issue.Category]
	if len(samples) < il.maxSamples {
		il.samples[issue.Category] = append(samples, issue)
	}

	if issue.Table != "" {
		il.tableIssues[issue.Table]++
	}

	if il.logger != nil {
		logLevel := zap.DebugLevel

		// Use appropriate log level based on issue category
		switch issue.Category {
		case IssueCategoryVerification:
			logLevel = zap.WarnLevel
		case IssueCategoryWriteFailure:
			logLevel = zap.ErrorLevel
		}

		il.logger.Log(logLevel, "Data quality issue",
			zap.String("category", issue.Category.String()),
			zap.String("table", issue.Table),
			zap.Int("line", issue.Line),
			zap.String("column", issue.Column),
			zap.String("message", issue.Message))
	}
}

// RecordOperations folds a batch of cleaning actions into the log
func (il *IssueLog) RecordOperations(ops []model.FieldOperation) {
	for _, op := range ops {
		il.Record(issueFromOperation(op))
	}
}

// Counts returns a copy of the per-category issue counts
func (il *IssueLog) Counts() map[IssueCategory]int {
	il.mu.Lock()
	defer il.mu.Unlock()

	counts := make(map[IssueCategory]int)
	for category, count := range il.counts {
		counts[category] = count
	}

	return counts
}

// Samples returns a copy of the stored sample issues per category
func (il *IssueLog) Samples() map[IssueCategory][]Issue {
	il.mu.Lock()
	defer il.mu.Unlock()

	samples := make(map[IssueCategory][]Issue)
	for category, issues := range il.samples {
		copied := make([]Issue, len(issues))
		copy(copied, issues)
		samples[category] = copied
	}

	return samples
}

// TableCounts returns the issue counts keyed by output table
func (il *IssueLog) TableCounts() map[string]int {
	il.mu.Lock()
	defer il.mu.Unlock()

	counts := make(map[string]int)
	for table, count := range il.tableIssues {
		counts[table] = count
	}

	return counts
}

// Total returns the number of recorded issues across all categories
func (il *IssueLog) Total() int {
	il.mu.Lock()
	defer il.mu.Unlock()

	total := 0
	for _, count := range il.counts {
		total += count
	}

	return total
}
