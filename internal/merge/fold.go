package merge

import (
	"errors"
	"fmt"

	"qcmeta/internal/table"
)

// ErrEmptyBase reports a fold whose base table is missing or has no rows.
var ErrEmptyBase = errors.New("merge: base table is empty")

// Input is one named table taking part in a fold. A nil Table means the
// dataset was not available.
type Input struct {
	Name  string
	Table *table.Table
}

// Skip records an auxiliary table left out of a fold.
type Skip struct {
	Name   string
	Reason string
}

// FoldReport describes a completed fold.
type FoldReport struct {
	Base    string
	Merged  []string
	Skipped []Skip
	Steps   []Stats
}

// Fold left-joins each auxiliary onto base in the given order. Auxiliaries
// that are nil or have no rows are skipped with a warning. Join errors abort
// the fold.
func (m *Merger) Fold(base Input, aux []Input, dropDuplicateKey bool) (*table.Table, FoldReport, error) {
	return m.FoldHow(base, aux, Left, dropDuplicateKey)
}

// FoldHow is Fold with another join kind for every step.
func (m *Merger) FoldHow(base Input, aux []Input, how How, dropDuplicateKey bool) (*table.Table, FoldReport, error) {
	rep := FoldReport{Base: base.Name}
	if _, err := ParseHow(string(how)); err != nil {
		return nil, rep, err
	}
	if base.Table.IsEmpty() {
		return nil, rep, fmt.Errorf("%w: %s", ErrEmptyBase, base.Name)
	}

	acc := base.Table.Clone()
	for _, in := range aux {
		switch {
		case in.Table == nil:
			m.logf("stage=merge dataset=%s skipped reason=missing", in.Name)
			rep.Skipped = append(rep.Skipped, Skip{Name: in.Name, Reason: "missing"})
			continue
		case in.Table.IsEmpty():
			m.logf("stage=merge dataset=%s skipped reason=empty", in.Name)
			rep.Skipped = append(rep.Skipped, Skip{Name: in.Name, Reason: "empty"})
			continue
		}

		next, st, err := m.Merge(acc, in.Table, how, dropDuplicateKey)
		if err != nil {
			return nil, rep, fmt.Errorf("merge %s into %s: %w", in.Name, base.Name, err)
		}
		m.logf("stage=merge dataset=%s rows=%d matched=%d unmatched=%d",
			in.Name, st.Rows, st.MatchedLeft, st.UnmatchedLeft)
		acc = next
		rep.Merged = append(rep.Merged, in.Name)
		rep.Steps = append(rep.Steps, st)
	}
	return acc, rep, nil
}
