// Package merge joins QC tables on their resolved, normalized sample
// identifier columns.
//
// Merge implements relational join semantics (inner, left, right, outer) with
// optional collapsing of differently named identifier columns. Fold chains
// Merge as a left-biased fold over a base table and a fixed list of auxiliary
// tables, skipping auxiliaries that are missing or empty.
package merge

import (
	"errors"
	"fmt"
	"strings"

	"qcmeta/internal/table"
)

// Logger is the minimal logging interface used by the merger.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// How selects join semantics.
type How string

const (
	Inner How = "inner"
	Left  How = "left"
	Right How = "right"
	Outer How = "outer"
)

// ErrUnknownHow reports an unsupported join kind.
var ErrUnknownHow = errors.New("merge: unknown join kind")

// ParseHow validates a join kind string (case-insensitive).
func ParseHow(s string) (How, error) {
	h := How(strings.ToLower(strings.TrimSpace(s)))
	switch h {
	case Inner, Left, Right, Outer:
		return h, nil
	}
	return "", fmt.Errorf("%w: %q (want inner|left|right|outer)", ErrUnknownHow, s)
}

// DefaultSuffixes disambiguate non-key columns that exist on both sides.
var DefaultSuffixes = [2]string{"_x", "_y"}

// Merger joins tables. The zero value is ready to use.
type Merger struct {
	Logger Logger

	// Suffixes overrides DefaultSuffixes when it has exactly two entries.
	// A "" suffix keeps that side's name unchanged, e.g. {"", "_removed"}.
	Suffixes []string
}

// Stats describes the cardinality of one pairwise merge.
type Stats struct {
	How            How
	LeftKey        table.Key
	RightKey       table.Key
	LeftRows       int
	RightRows      int
	Rows           int
	MatchedLeft    int // left rows with at least one match
	UnmatchedLeft  int
	UnmatchedRight int // right rows never matched
	DuplicateKeys  int // distinct right keys that occur more than once
	Shadowed       string
}

// FanOut reports whether repeated right keys grew the row count.
func (s Stats) FanOut() bool { return s.DuplicateKeys > 0 && s.Rows > s.LeftRows }

func (m *Merger) logf(format string, v ...any) {
	if m == nil || m.Logger == nil {
		return
	}
	m.Logger.Printf(format, v...)
}

func (m *Merger) suffixes() (string, string) {
	if m != nil && len(m.Suffixes) == 2 {
		return m.Suffixes[0], m.Suffixes[1]
	}
	return DefaultSuffixes[0], DefaultSuffixes[1]
}

// Merge joins left and right on their sample identifier columns.
//
// Each side's key is resolved independently (table.ResolveKey) and normalized
// to strings. When the key names are equal, the join is on that name and one
// key column is kept. When they differ and dropDuplicateKey is true, the right
// key is renamed to the left key name first, so again one key column is
// kept; a right data column already carrying that name is shadowed with a
// warning. When dropDuplicateKey is false both key columns are kept, and rows
// without a match on one side carry a null key for that side.
//
// Row order: left and inner follow the left table (matches in right order);
// right follows the right table; outer is the left order followed by the
// unmatched right rows. Empty identifiers never match.
//
// Inputs are not mutated.
func (m *Merger) Merge(left, right *table.Table, how How, dropDuplicateKey bool) (*table.Table, Stats, error) {
	st := Stats{How: how, LeftRows: left.Len(), RightRows: right.Len()}

	if _, err := ParseHow(string(how)); err != nil {
		return nil, st, err
	}

	lk, err := table.RequireKey(left)
	if err != nil {
		return nil, st, fmt.Errorf("merge: left table: %w", err)
	}
	rk, err := table.RequireKey(right)
	if err != nil {
		return nil, st, fmt.Errorf("merge: right table: %w", err)
	}
	st.LeftKey, st.RightKey = lk, rk
	if !lk.ByName {
		m.logf("merge: left key falls back to first column %q", lk.Name)
	}
	if !rk.ByName {
		m.logf("merge: right key falls back to first column %q", rk.Name)
	}

	L, err := table.Normalize(left, lk.Name)
	if err != nil {
		return nil, st, err
	}
	R, err := table.Normalize(right, rk.Name)
	if err != nil {
		return nil, st, err
	}

	if lk.Name != rk.Name && dropDuplicateKey {
		if ix := dataColumnIndex(R, lk.Name, rk.Index); ix >= 0 {
			m.logf("merge: warning: left key column %q also exists as a data column on the right; it is shadowed by the renamed right key %q",
				lk.Name, rk.Name)
			st.Shadowed = lk.Name
			dropAt(R, ix)
		}
		ri, _ := R.Index(rk.Name)
		R.Columns[ri] = lk.Name
	}

	shared := lk.Name == rk.Name || dropDuplicateKey
	lki, _ := L.Index(lk.Name)
	rkName := rk.Name
	if shared {
		rkName = lk.Name
	}
	rki := keyIndex(R, rkName, rk.Index)

	p := newPlan(L, R, lki, rki, shared)
	p.suffix(m.suffixes())

	out := table.Empty(p.columns...)
	switch how {
	case Right:
		m.joinRight(p, L, R, lki, rki, out, &st)
	default:
		m.joinLeft(p, L, R, lki, rki, how, out, &st)
	}
	st.Rows = out.Len()

	if how == Left && st.Rows != st.LeftRows {
		m.logf("merge: warning: left join changed row count %d -> %d (%d duplicate keys in right table)",
			st.LeftRows, st.Rows, st.DuplicateKeys)
	}
	if how == Inner && st.Rows > min(st.LeftRows, st.RightRows) {
		m.logf("merge: warning: inner join produced %d rows from %d x %d (duplicate keys)",
			st.Rows, st.LeftRows, st.RightRows)
	}
	return out, st, nil
}

// dataColumnIndex returns the position of a non-key column named name.
func dataColumnIndex(t *table.Table, name string, keyIx int) int {
	for i, c := range t.Columns {
		if i != keyIx && c == name {
			return i
		}
	}
	return -1
}

// keyIndex finds the key column of t after renames; the resolved position
// wins over an equally named data column.
func keyIndex(t *table.Table, name string, hint int) int {
	if hint >= 0 && hint < len(t.Columns) && t.Columns[hint] == name {
		return hint
	}
	ix, _ := t.Index(name)
	return ix
}

func dropAt(t *table.Table, ix int) {
	t.Columns = append(t.Columns[:ix:ix], t.Columns[ix+1:]...)
	for i, r := range t.Rows {
		t.Rows[i] = append(r[:ix:ix], r[ix+1:]...)
	}
}

// plan maps input cells to output columns.
type plan struct {
	columns []string
	leftAt  []int // output positions of left columns
	rightAt []int // output positions of right columns; -1 for the shared key
	shared  bool
	lki     int
	rki     int
	nLeft   int
}

func newPlan(L, R *table.Table, lki, rki int, shared bool) *plan {
	p := &plan{shared: shared, lki: lki, rki: rki, nLeft: L.Width()}
	p.columns = append(p.columns, L.Columns...)
	p.leftAt = make([]int, L.Width())
	for i := range p.leftAt {
		p.leftAt[i] = i
	}
	p.rightAt = make([]int, R.Width())
	for j, c := range R.Columns {
		if shared && j == rki {
			p.rightAt[j] = -1
			continue
		}
		p.rightAt[j] = len(p.columns)
		p.columns = append(p.columns, c)
	}
	return p
}

// suffix renames columns present on both sides, leaving the shared key alone.
func (p *plan) suffix(ls, rs string) {
	leftNames := make(map[string]int, p.nLeft)
	for i := 0; i < p.nLeft; i++ {
		if p.shared && i == p.lki {
			continue
		}
		leftNames[p.columns[i]] = i
	}
	for _, at := range p.rightAt {
		if at < 0 {
			continue
		}
		name := p.columns[at]
		li, ok := leftNames[name]
		if !ok {
			continue
		}
		p.columns[li] = name + ls
		p.columns[at] = name + rs
	}
}

func (p *plan) row(l, r []any) []any {
	out := make([]any, len(p.columns))
	if l != nil {
		for i, at := range p.leftAt {
			out[at] = l[i]
		}
	} else if p.shared && r != nil {
		out[p.leftAt[p.lki]] = r[p.rki]
	}
	if r != nil {
		for j, at := range p.rightAt {
			if at >= 0 {
				out[at] = r[j]
			}
		}
	}
	return out
}

func indexByKey(t *table.Table, ki int) (map[string][]int, int) {
	idx := make(map[string][]int, t.Len())
	dups := 0
	for i, r := range t.Rows {
		k, _ := r[ki].(string)
		if k == "" {
			continue
		}
		idx[k] = append(idx[k], i)
		if len(idx[k]) == 2 {
			dups++
		}
	}
	return idx, dups
}

func (m *Merger) joinLeft(p *plan, L, R *table.Table, lki, rki int, how How, out *table.Table, st *Stats) {
	idx, dups := indexByKey(R, rki)
	st.DuplicateKeys = dups
	matchedRight := make([]bool, R.Len())

	for _, l := range L.Rows {
		k, _ := l[lki].(string)
		var hits []int
		if k != "" {
			hits = idx[k]
		}
		if len(hits) == 0 {
			st.UnmatchedLeft++
			if how == Left || how == Outer {
				out.Rows = append(out.Rows, p.row(l, nil))
			}
			continue
		}
		st.MatchedLeft++
		for _, j := range hits {
			matchedRight[j] = true
			out.Rows = append(out.Rows, p.row(l, R.Rows[j]))
		}
	}

	for j, ok := range matchedRight {
		if ok {
			continue
		}
		st.UnmatchedRight++
		if how == Outer {
			out.Rows = append(out.Rows, p.row(nil, R.Rows[j]))
		}
	}
}

func (m *Merger) joinRight(p *plan, L, R *table.Table, lki, rki int, out *table.Table, st *Stats) {
	idx, _ := indexByKey(L, lki)
	_, st.DuplicateKeys = indexByKey(R, rki)
	matchedLeft := make([]bool, L.Len())

	for _, r := range R.Rows {
		k, _ := r[rki].(string)
		var hits []int
		if k != "" {
			hits = idx[k]
		}
		if len(hits) == 0 {
			st.UnmatchedRight++
			out.Rows = append(out.Rows, p.row(nil, r))
			continue
		}
		for _, i := range hits {
			matchedLeft[i] = true
			out.Rows = append(out.Rows, p.row(L.Rows[i], r))
		}
	}
	for _, ok := range matchedLeft {
		if ok {
			st.MatchedLeft++
		} else {
			st.UnmatchedLeft++
		}
	}
}
