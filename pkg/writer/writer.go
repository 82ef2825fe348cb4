package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/Jeongsoo1975/AutoCrawlingUsingLLM/pkg/agent"
)

// FileWriter persists collected records as timestamped CSV or XLSX files.
type FileWriter struct {
	dir    string
	format string
	logger *logrus.Logger

	// now is swappable for deterministic filenames in tests.
	now func() time.Time
}

var _ agent.RecordWriter = &FileWriter{}

// New builds a writer for dir. format is "csv" or "xlsx".
func New(dir, format string, logger *logrus.Logger) *FileWriter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FileWriter{dir: dir, format: format, logger: logger, now: time.Now}
}

// Write persists records under a timestamped filename built from prefix and
// returns the file path.
func (w *FileWriter) Write(records []agent.Record, prefix string) (string, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("no records to write")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", w.dir, err)
	}

	stamp := w.now().Format("20060102_150405")
	path := filepath.Join(w.dir, fmt.Sprintf("%s_%s.%s", prefix, stamp, w.format))

	var err error
	switch w.format {
	case "xlsx":
		err = writeXLSX(path, records)
	default:
		err = writeCSV(path, records)
	}
	if err != nil {
		return "", err
	}

	w.logger.WithFields(logrus.Fields{
		"path":    path,
		"records": len(records),
	}).Info("Wrote output file")
	return path, nil
}

func header() []string {
	return append([]string{"source_keyword"}, agent.FieldColumns...)
}

func row(rec agent.Record) []string {
	return append([]string{rec.SourceKeyword}, rec.ColumnValues()...)
}

// writeCSV emits UTF-8 with a BOM so spreadsheet applications detect the
// encoding.
func writeCSV(path string, records []agent.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(row(rec)); err != nil {
			return fmt.Errorf("failed to write record %s: %w", rec.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(path string, records []agent.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	cells := func(values []string) []any {
		out := make([]any, len(values))
		for i, v := range values {
			out[i] = v
		}
		return out
	}

	if err := f.SetSheetRow(sheet, "A1", ptr(cells(header()))); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, rec := range records {
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, ptr(cells(row(rec)))); err != nil {
			return fmt.Errorf("failed to write record %s: %w", rec.ID, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
