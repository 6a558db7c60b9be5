// Package table holds the in-memory relation shared by every QC stage: an
// ordered list of named columns and positional rows of scalar cells.
//
// A nil cell is null. Cells read from files are strings; tables built in code
// may carry integers, floats or bools, which is why identifier columns are
// normalized (see Normalize) before any join or membership test.
//
// Every operation returns a new Table. Inputs are never mutated.
package table

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn reports that a named column is not present.
	ErrMissingColumn = errors.New("table: missing column")

	// ErrNoColumns reports a table without any column, which has no key.
	ErrNoColumns = errors.New("table: no columns")

	// ErrShape reports rows whose width differs from the column count.
	ErrShape = errors.New("table: ragged row")
)

// Table is a rows x columns relation. All rows have len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]any
}

// New builds a table from a header and rows, copying both.
// It panics if a row width differs from the header; use FromRows when the
// input is untrusted.
func New(columns []string, rows ...[]any) *Table {
	t, err := FromRows(columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// FromRows builds a table from a header and rows, copying both.
func FromRows(columns []string, rows [][]any) (*Table, error) {
	t := &Table{
		Columns: append([]string(nil), columns...),
		Rows:    make([][]any, 0, len(rows)),
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrShape, i, len(r), len(columns))
		}
		t.Rows = append(t.Rows, append([]any(nil), r...))
	}
	return t, nil
}

// Empty returns a table with the given columns and no rows.
func Empty(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...), Rows: [][]any{}}
}

// Len returns the number of rows. A nil table has zero rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Width returns the number of columns.
func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// IsEmpty reports whether the table is nil or has no rows.
func (t *Table) IsEmpty() bool { return t.Len() == 0 }

// Index returns the position of the first column named name.
func (t *Table) Index(name string) (int, bool) {
	if t == nil {
		return -1, false
	}
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// Has reports whether a column named name exists.
func (t *Table) Has(name string) bool {
	_, ok := t.Index(name)
	return ok
}

// Column returns a copy of the values of the named column.
func (t *Table) Column(name string) ([]any, error) {
	ix, ok := t.Index(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[ix]
	}
	return out, nil
}

// Clone returns a deep copy of the header and row slices.
func (t *Table) Clone() *Table {
	if t == nil {
		return Empty()
	}
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]any, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append([]any(nil), r...)
	}
	return out
}

// Filter returns the rows for which keep returns true, in their original order.
func (t *Table) Filter(keep func(row []any) bool) *Table {
	out := Empty(t.Columns...)
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, append([]any(nil), r...))
		}
	}
	return out
}

// Take returns the rows at the given positions, in the given order.
func (t *Table) Take(idx []int) *Table {
	out := Empty(t.Columns...)
	out.Rows = make([][]any, 0, len(idx))
	for _, i := range idx {
		out.Rows = append(out.Rows, append([]any(nil), t.Rows[i]...))
	}
	return out
}

// WithColumn returns a copy with the named column set to values. An existing
// column of that name is overwritten in place; otherwise the column is appended.
func (t *Table) WithColumn(name string, values []any) (*Table, error) {
	if len(values) != t.Len() {
		return nil, fmt.Errorf("%w: column %q has %d values for %d rows", ErrShape, name, len(values), t.Len())
	}
	out := t.Clone()
	if ix, ok := out.Index(name); ok {
		for i := range out.Rows {
			out.Rows[i][ix] = values[i]
		}
		return out, nil
	}
	out.Columns = append(out.Columns, name)
	for i := range out.Rows {
		out.Rows[i] = append(out.Rows[i], values[i])
	}
	return out, nil
}

// WithConstant is WithColumn with the same value on every row.
func (t *Table) WithConstant(name string, v any) *Table {
	values := make([]any, t.Len())
	for i := range values {
		values[i] = v
	}
	out, _ := t.WithColumn(name, values)
	return out
}

// Drop returns a copy without the named columns. Every name must exist.
func (t *Table) Drop(names ...string) (*Table, error) {
	drop := make(map[int]bool, len(names))
	for _, n := range names {
		ix, ok := t.Index(n)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, n)
		}
		drop[ix] = true
	}
	keep := make([]int, 0, len(t.Columns))
	for i := range t.Columns {
		if !drop[i] {
			keep = append(keep, i)
		}
	}
	return t.project(keep), nil
}

// Select returns a copy holding only the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	keep := make([]int, 0, len(names))
	for _, n := range names {
		ix, ok := t.Index(n)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, n)
		}
		keep = append(keep, ix)
	}
	return t.project(keep), nil
}

// Rename returns a copy with column from renamed to to.
func (t *Table) Rename(from, to string) (*Table, error) {
	ix, ok := t.Index(from)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, from)
	}
	out := t.Clone()
	out.Columns[ix] = to
	return out, nil
}

func (t *Table) project(cols []int) *Table {
	out := &Table{
		Columns: make([]string, len(cols)),
		Rows:    make([][]any, len(t.Rows)),
	}
	for j, c := range cols {
		out.Columns[j] = t.Columns[c]
	}
	for i, r := range t.Rows {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = r[c]
		}
		out.Rows[i] = row
	}
	return out
}

// Concat stacks tables vertically. The result holds the union of columns in
// order of first appearance; cells of columns a table lacks are null.
func Concat(tables ...*Table) *Table {
	var cols []string
	seen := map[string]bool{}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}

	out := Empty(cols...)
	for _, t := range tables {
		if t == nil {
			continue
		}
		pos := make([]int, len(cols))
		for j, c := range cols {
			pos[j], _ = t.Index(c)
		}
		for _, r := range t.Rows {
			row := make([]any, len(cols))
			for j, p := range pos {
				if p >= 0 {
					row[j] = r[p]
				}
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}
