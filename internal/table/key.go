package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// SampleColumn is the column name that identifies samples when present.
const SampleColumn = "sample"

// Key is the result of resolving the sample identifier column of a table.
type Key struct {
	Name  string
	Index int

	// ByName is true when a column named "sample" (any case) was found and
	// false when the first column was used as a fallback.
	ByName bool
}

// Valid reports whether a key column was resolved at all.
func (k Key) Valid() bool { return k.Index >= 0 }

func (k Key) String() string {
	if !k.Valid() {
		return "<none>"
	}
	if k.ByName {
		return fmt.Sprintf("%s (by name)", k.Name)
	}
	return fmt.Sprintf("%s (first column)", k.Name)
}

// ResolveKey returns the sample identifier column: the first column whose
// case-folded name is "sample", else the first column. A table without
// columns yields a Key with Index -1.
//
// The result depends only on column order, never on the data.
func ResolveKey(t *Table) Key {
	if t.Width() == 0 {
		return Key{Index: -1}
	}
	want := foldName(SampleColumn)
	for i, c := range t.Columns {
		if foldName(c) == want {
			return Key{Name: c, Index: i, ByName: true}
		}
	}
	return Key{Name: t.Columns[0], Index: 0}
}

// RequireKey is ResolveKey for callers handling arbitrary input: a table
// without columns is reported as ErrNoColumns.
func RequireKey(t *Table) (Key, error) {
	k := ResolveKey(t)
	if !k.Valid() {
		return k, ErrNoColumns
	}
	return k, nil
}

// FoldEqual reports whether a and b are equal under Unicode case folding.
func FoldEqual(a, b string) bool { return foldName(a) == foldName(b) }

// FoldContains reports whether s contains substr under Unicode case folding.
func FoldContains(s, substr string) bool {
	return strings.Contains(foldName(s), foldName(substr))
}

func foldName(s string) string {
	// A Caser carries state; build one per call instead of sharing it.
	return cases.Fold().String(s)
}

// FindColumn returns the first column whose name contains substr,
// case-insensitively.
func FindColumn(t *Table, substr string) (string, bool) {
	for _, c := range t.Columns {
		if FoldContains(c, substr) {
			return c, true
		}
	}
	return "", false
}

// NormalizeKey converts an identifier value to its canonical string form, so
// that 123, int64(123), 123.0 and "123" all compare equal.
func NormalizeKey(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return formatFloat(float64(t))
	case float64:
		return formatFloat(t)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Normalize returns a copy of t whose column values are replaced by their
// NormalizeKey form. Normalizing an already normalized column is a no-op.
func Normalize(t *Table, column string) (*Table, error) {
	ix, ok := t.Index(column)
	if !ok {
		return nil, fmt.Errorf("normalize: %w: %q", ErrMissingColumn, column)
	}
	out := t.Clone()
	for _, r := range out.Rows {
		r[ix] = NormalizeKey(r[ix])
	}
	return out, nil
}

// NormalizeResolved resolves the key of t and normalizes it.
func NormalizeResolved(t *Table) (*Table, Key, error) {
	k, err := RequireKey(t)
	if err != nil {
		return nil, k, err
	}
	out, err := Normalize(t, k.Name)
	return out, k, err
}

// IDs returns the normalized identifiers of a column, in row order.
func (t *Table) IDs(column string) ([]string, error) {
	ix, ok := t.Index(column)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, column)
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = NormalizeKey(r[ix])
	}
	return out, nil
}

// IDSet returns the set of normalized identifiers of a column.
func (t *Table) IDSet(column string) (map[string]struct{}, error) {
	ids, err := t.IDs(column)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// FormatValue renders a cell for delimited output; null is the empty string.
func FormatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return NormalizeKey(v)
}
