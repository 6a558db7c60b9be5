package storage

import (
	"qcmeta/internal/probe"
)

// ColumnSpec is one column of a table to create. Type is the inferred probe
// type; each backend maps it to its own SQL type.
type ColumnSpec struct {
	Name string
	Type probe.ColumnType
}

// TableSpec describes a table to create. All columns are nullable; QC tables
// carry no keys or constraints.
type TableSpec struct {
	Name    string
	Columns []ColumnSpec
}

// ColumnNames returns the column names in order.
func (t TableSpec) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}
