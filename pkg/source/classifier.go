// pkg/source/classifier.go
package source

import (
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Record tags carried in the second delimited token of every line
const (
	TagHeader = "H"
	TagData   = "D"
)

// delimiter separates the tokens of a record
const delimiter = "|"

// ErrSchemaNotFound reports a source file with no header record, which
// leaves the pipeline without a column layout to bind against
var ErrSchemaNotFound = errors.New("no header record found in source")

// Record is one classified line split into tag and payload fields
type Record struct {
	Line   int      // 1-based source line
	Tag    string   // Record tag from the second token
	Fields []string // Payload fields after the tag
}

// RecordSet holds the classified contents of a source file
type RecordSet struct {
	Header       Record   // First header record in the file
	Data         []Record // Data records in file order
	Ignored      int      // Lines carrying an unknown tag
	ExtraHeaders int      // Header records after the first
}

// Classifier splits raw lines into tagged records
type Classifier struct {
	logger *zap.Logger
}

// NewClassifier creates a classifier
func NewClassifier(logger *zap.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Classify splits every line on the field delimiter and groups records by
// tag. The first header record wins; later ones are counted and skipped.
// Lines with any other tag are counted as ignored and the batch continues.
// Returns ErrSchemaNotFound when the file carries no header at all
func (c *Classifier) Classify(lines []Line) (*RecordSet, error) {
	set := &RecordSet{}
	headerFound := false

	for _, line := range lines {
		// Blank lines carry no record
		if strings.TrimSpace(line.Text) == "" {
			continue
		}

		tokens := strings.Split(line.Text, delimiter)
		if len(tokens) < 2 {
			set.Ignored++
			c.logger.Debug("Ignoring undelimited line", zap.Int("line", line.Number))
			continue
		}

		record := Record{
			Line:   line.Number,
			Tag:    tokens[1],
			Fields: tokens[2:],
		}

		switch record.Tag {
		case TagHeader:
			if headerFound {
				set.ExtraHeaders++
				c.logger.Warn("Ignoring extra header record",
					zap.Int("line", line.Number))
				continue
			}
			headerFound = true
			set.Header = record
		case TagData:
			set.Data = append(set.Data, record)
		default:
			set.Ignored++
			c.logger.Debug("Ignoring record with unknown tag",
				zap.Int("line", line.Number),
				zap.String("tag", record.Tag))
		}
	}

	if !headerFound {
		return nil, ErrSchemaNotFound
	}

	return set, nil
}
