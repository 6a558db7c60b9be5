package table

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint returns a lowercase hex SHA-256 over the header and every cell in
// order. Two tables with the same fingerprint serialize to the same bytes.
//
// Canonicalization:
//   - cells are separated by ASCII Unit Separator (0x1f), rows by Record Separator (0x1e)
//   - null is a single NUL byte, so null differs from the empty string
//   - non-string cells use FormatValue
func Fingerprint(t *Table) string {
	h := sha256.New()
	var b strings.Builder

	writeRow := func(cells []string, nulls []bool) {
		b.Reset()
		for i, c := range cells {
			if i > 0 {
				b.WriteByte('\x1f')
			}
			if nulls != nil && nulls[i] {
				b.WriteByte('\x00')
				continue
			}
			b.WriteString(c)
		}
		b.WriteByte('\x1e')
		_, _ = h.Write([]byte(b.String()))
	}

	if t == nil {
		t = Empty()
	}
	writeRow(t.Columns, nil)

	cells := make([]string, t.Width())
	nulls := make([]bool, t.Width())
	for _, r := range t.Rows {
		for i, v := range r {
			nulls[i] = v == nil
			cells[i] = FormatValue(v)
		}
		writeRow(cells, nulls)
	}
	return hex.EncodeToString(h.Sum(nil))
}
