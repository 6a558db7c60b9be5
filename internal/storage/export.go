package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"qcmeta/internal/probe"
	"qcmeta/internal/table"
)

// RunIDColumn is prepended to every exported table.
const RunIDColumn = "run_id"

// ErrNoTable is returned by Export when ExportSpec.Table is blank.
var ErrNoTable = errors.New("storage: export table name is empty")

// ExportSpec describes one export.
type ExportSpec struct {
	Table     string
	RunID     string // generated when empty
	BatchSize int    // DefaultBatchSize when <= 0

	// RowHash appends a row_hash column computed over every data column.
	RowHash bool
}

// ExportResult reports what Export loaded.
type ExportResult struct {
	Table string
	RunID string
	Rows  int64
}

// Export loads t into repo. Column types are inferred from the data, column
// names are sanitized to SQL identifiers and a run_id column identifies the
// load. The table is created when missing; rows are appended in batches.
func Export(ctx context.Context, repo TableRepository, t *table.Table, spec ExportSpec) (ExportResult, error) {
	name := strings.TrimSpace(spec.Table)
	if name == "" {
		return ExportResult{}, ErrNoTable
	}
	if t.Width() == 0 {
		return ExportResult{}, fmt.Errorf("export %s: %w", name, table.ErrNoColumns)
	}
	runID := spec.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	batch := spec.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	types := probe.InferColumnTypes(t)
	names := SanitizeColumns(append([]string{RunIDColumn}, t.Columns...))
	ts := TableSpec{Name: name, Columns: make([]ColumnSpec, len(names))}
	ts.Columns[0] = ColumnSpec{Name: names[0], Type: probe.TypeText}
	for i, ct := range types {
		ts.Columns[i+1] = ColumnSpec{Name: names[i+1], Type: ct}
	}

	rows, err := typedRows(t, types, runID)
	if err != nil {
		return ExportResult{}, fmt.Errorf("export %s: %w", name, err)
	}
	if spec.RowHash {
		hashes, err := RowHasher{IncludeNames: true}.Hashes(t)
		if err != nil {
			return ExportResult{}, fmt.Errorf("export %s: %w", name, err)
		}
		names = SanitizeColumns(append(append([]string{RunIDColumn}, t.Columns...), RowHashColumn))
		ts.Columns = append(ts.Columns, ColumnSpec{Name: names[len(names)-1], Type: probe.TypeText})
		for i := range rows {
			rows[i] = append(rows[i], hashes[i])
		}
	}

	if err := repo.EnsureTable(ctx, ts); err != nil {
		return ExportResult{}, fmt.Errorf("export %s: ensure table: %w", name, err)
	}

	res := ExportResult{Table: name, RunID: runID}
	for start := 0; start < len(rows); start += batch {
		end := min(start+batch, len(rows))
		n, err := repo.InsertRows(ctx, name, names, rows[start:end])
		res.Rows += n
		if err != nil {
			return res, fmt.Errorf("export %s: insert rows %d-%d: %w", name, start, end, err)
		}
	}
	return res, nil
}

func typedRows(t *table.Table, types []probe.ColumnType, runID string) ([][]any, error) {
	out := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]any, len(r)+1)
		row[0] = runID
		for j, v := range r {
			cv, ok := probe.Convert(v, types[j])
			if !ok {
				return nil, fmt.Errorf("row %d column %q: %v is not %s", i, t.Columns[j], v, types[j])
			}
			row[j+1] = cv
		}
		out[i] = row
	}
	return out, nil
}
