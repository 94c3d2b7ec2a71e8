// pkg/sink/csv.go
package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/globalmed/customer-ingress/pkg/model"
)

// CSVSink writes each partition table as a CSV file under one directory
type CSVSink struct {
	dir    string
	logger *zap.Logger
}

// NewCSVSink creates a CSV sink rooted at dir
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{
		dir:    dir,
		logger: zap.L().Named("csv-sink"),
	}
}

// Setup creates the output directory
func (s *CSVSink) Setup(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// WriteTable writes the partition to <dir>/<table>.csv, replacing any file
// from a previous run. Returns the number of data rows written
func (s *CSVSink) WriteTable(ctx context.Context, table string, columns []ColumnSpec, rows []model.Row) (int64, error) {
	path := filepath.Join(s.dir, table+".csv")

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.Name
	}
	if err := writer.Write(header); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = renderValue(row.Data[col.Name])
		}
		if err := writer.Write(record); err != nil {
			return 0, fmt.Errorf("failed to write row from line %d: %w", row.Line, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush %s: %w", path, err)
	}

	s.logger.Debug("Wrote partition file",
		zap.String("path", path),
		zap.Int("rows", len(rows)))

	return int64(len(rows)), nil
}

// Close releases nothing; files are closed as they are written
func (s *CSVSink) Close() error {
	return nil
}
