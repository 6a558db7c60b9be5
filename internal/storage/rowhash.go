package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"qcmeta/internal/table"
)

// RowHashColumn holds the per-row dedupe key when ExportSpec.RowHash is set.
const RowHashColumn = "row_hash"

// RowHasher computes a deterministic SHA-256 over selected columns of a row.
//
// The hash gives repeated loads of the same QC table a stable, never-null
// dedupe key even when sample metrics are null, which plain UNIQUE
// constraints on the data columns cannot provide (NULLs compare distinct).
//
// Canonicalization:
//   - components are joined with ASCII Unit Separator (0x1f)
//   - with IncludeNames each component is "column=value"
//   - null is a single NUL byte, so null differs from the empty string
//   - values use table.FormatValue, trimmed, so "7" and 7 hash alike
//
// The output is a lowercase hex string of length 64.
type RowHasher struct {
	// Columns are hashed in this order. Empty means every column of the table.
	Columns []string

	// IncludeNames adds the column name to each component, which keeps rows
	// with many nulls from colliding across differently shaped tables.
	IncludeNames bool
}

// Hashes returns one hash per row of t. Unknown columns are reported as
// table.ErrMissingColumn.
func (h RowHasher) Hashes(t *table.Table) ([]string, error) {
	cols := h.Columns
	if len(cols) == 0 {
		cols = t.Columns
	}
	idx := make([]int, len(cols))
	for i, c := range cols {
		ix, ok := t.Index(c)
		if !ok {
			return nil, fmt.Errorf("row hash: %w: %q", table.ErrMissingColumn, c)
		}
		idx[i] = ix
	}

	out := make([]string, t.Len())
	var b strings.Builder
	for r, row := range t.Rows {
		b.Reset()
		b.Grow(len(cols) * 20)
		for i, ix := range idx {
			if i > 0 {
				b.WriteByte('\x1f')
			}
			if h.IncludeNames {
				b.WriteString(cols[i])
				b.WriteByte('=')
			}
			v := row[ix]
			if v == nil {
				b.WriteByte('\x00')
				continue
			}
			s := table.FormatValue(v)
			if hasEdgeSpace(s) {
				s = strings.TrimSpace(s)
			}
			b.WriteString(s)
		}
		sum := sha256.Sum256([]byte(b.String()))
		out[r] = hex.EncodeToString(sum[:])
	}
	return out, nil
}

// hasEdgeSpace reports whether s starts or ends with ASCII whitespace.
func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	isSpace := func(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v' }
	return isSpace(s[0]) || isSpace(s[len(s)-1])
}
