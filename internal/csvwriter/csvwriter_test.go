package csvwriter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gensynth/gensynth/internal/schemamodel"
)

func sampleTable() *schemamodel.Table {
	return &schemamodel.Table{
		Name: "orders",
		Columns: []schemamodel.Column{
			{Ordinal: 1, Name: "id"},
			{Ordinal: 2, Name: "total"},
			{Ordinal: 3, Name: "placed_at"},
			{Ordinal: 4, Name: "notes"},
		},
	}
}

func TestWriter_HeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, "public", sampleTable())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	rows := []map[string]any{
		{"id": int64(1), "total": decimal.RequireFromString("19.99"), "placed_at": time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "notes": nil},
		{"id": int64(2), "total": decimal.RequireFromString("5.00"), "placed_at": time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), "notes": "gift wrap"},
	}
	for _, r := range rows {
		if err := w.WriteRow(r); err != nil {
			t.Fatalf("WriteRow: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if w.RowsWritten() != 2 {
		t.Fatalf("expected 2 rows written, got %d", w.RowsWritten())
	}

	path := filepath.Join(dir, "public.orders.csv")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output file: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d records", len(records))
	}
	wantHeader := []string{"id", "total", "placed_at", "notes"}
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Fatalf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}
	if records[1][3] != "" {
		t.Fatalf("nil field should render as empty string, got %q", records[1][3])
	}
	if records[1][1] != "19.99" {
		t.Fatalf("decimal field should render fixed-scale, got %q", records[1][1])
	}
	if records[1][2] != "2024-01-02T03:04:05Z" {
		t.Fatalf("timestamp field should render ISO-8601, got %q", records[1][2])
	}
}

func TestOpen_NamesFileBySchemaAndTable(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(dir, "billing", sampleTable())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	w.Close()
	if _, err := os.Stat(filepath.Join(dir, "billing.orders.csv")); err != nil {
		t.Fatalf("expected file named by schema.table: %v", err)
	}
}
