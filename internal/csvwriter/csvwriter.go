// Package csvwriter streams generated rows to one CSV file per table:
// header in declared column order, rows appended and flushed as they are
// generated, never accumulated in memory.
package csvwriter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gensynth/gensynth/internal/schemamodel"
)

// Writer streams rows for one table to its own CSV file in schema column
// order. A nil field value is written as the empty string, the document
// convention for null.
type Writer struct {
	file         *os.File
	csv          *csv.Writer
	columns      []string
	bytesWritten int64
	rowsWritten  int
}

// Open creates (or truncates) "<outDir>/<schema>.<table>.csv" and writes
// its header row in table's declared column order.
func Open(outDir, schema string, table *schemamodel.Table) (*Writer, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("csvwriter: creating output directory: %w", err)
	}
	path := filepath.Join(outDir, fmt.Sprintf("%s.%s.csv", schema, table.Name))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csvwriter: creating %s: %w", path, err)
	}

	columns := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		columns[i] = c.Name
	}

	w := &Writer{file: f, csv: csv.NewWriter(f), columns: columns}
	if err := w.csv.Write(columns); err != nil {
		f.Close()
		return nil, fmt.Errorf("csvwriter: writing header for %s: %w", path, err)
	}
	w.csv.Flush()
	w.bytesWritten += headerByteEstimate(columns)
	return w, nil
}

// WriteRow appends one generated row (ISO-8601 timestamps, fixed-scale
// decimals, nil as empty) and flushes immediately so no row is held in
// memory past this call.
func (w *Writer) WriteRow(row map[string]any) error {
	record := make([]string, len(w.columns))
	for i, col := range w.columns {
		record[i] = formatField(row[col])
	}
	if err := w.csv.Write(record); err != nil {
		return fmt.Errorf("csvwriter: writing row: %w", err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("csvwriter: flushing row: %w", err)
	}
	w.rowsWritten++
	for _, f := range record {
		w.bytesWritten += int64(len(f)) + 1
	}
	return nil
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// BytesWritten reports an approximate count of bytes written, for the
// generation report's per-table accounting.
func (w *Writer) BytesWritten() int64 { return w.bytesWritten }

// RowsWritten reports how many data rows have been appended so far.
func (w *Writer) RowsWritten() int { return w.rowsWritten }

func headerByteEstimate(columns []string) int64 {
	var n int64
	for _, c := range columns {
		n += int64(len(c)) + 1
	}
	return n
}

// formatField renders a generated cell value as CSV text: nil becomes
// the empty string, decimal.Decimal and time.Time get fixed-scale /
// ISO-8601 treatment, and everything else falls back to fmt's default
// verb.
func formatField(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case decimal.Decimal:
		if exp := t.Exponent(); exp < 0 {
			return t.StringFixed(-exp)
		}
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", t)
	}
}
