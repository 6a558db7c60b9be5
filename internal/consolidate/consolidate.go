package consolidate

import (
	"fmt"

	"qcmeta/internal/config"
	"qcmeta/internal/merge"
	"qcmeta/internal/table"
)

// Flag columns added for membership in the no_hqset table.
const (
	ColumnIsNoHQSet = "is_no_hqset"
	ColumnQC        = "QC"
)

// Options tunes Run. The zero value folds with a left join and drops
// duplicate key columns only when DropDuplicateKey is set; use
// DefaultOptions for the usual behaviour.
type Options struct {
	DropDuplicateKey bool
	How              merge.How
	FlagStyle        string
	Logger           Logger
}

// DefaultOptions returns left joins with duplicate key columns dropped and
// the is_no_hqset flag style.
func DefaultOptions() Options {
	return Options{DropDuplicateKey: true, How: merge.Left, FlagStyle: config.FlagIsNoHQSet}
}

// OptionsFrom maps the merge section of a pipeline config.
func OptionsFrom(m config.Merge, l Logger) Options {
	o := DefaultOptions()
	o.DropDuplicateKey = m.DropKey()
	if h, err := merge.ParseHow(m.How); err == nil {
		o.How = h
	} else if m.How != "" {
		o.How = merge.How(m.How)
	}
	if m.FlagStyle != "" {
		o.FlagStyle = m.FlagStyle
	}
	o.Logger = l
	return o
}

func (o Options) logf(format string, v ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, v...)
	}
}

// Report summarizes a consolidation.
type Report struct {
	Fold    merge.FoldReport
	Flag    string // flag column added, "" when none
	Flagged int    // rows whose sample is in no_hqset
}

// Run folds stats with checkm2, sylph and species, in that order, and adds
// the no_hqset flag column when that dataset was loaded.
func Run(ds Datasets, opts Options) (*table.Table, Report, error) {
	var rep Report
	if opts.How == "" {
		opts.How = merge.Left
	}

	aux := make([]merge.Input, 0, 3)
	for _, d := range ds.Auxiliary() {
		if d.State == NotAttempted {
			continue
		}
		aux = append(aux, merge.Input{Name: d.Name, Table: d.Table})
	}

	m := &merge.Merger{Logger: opts.Logger}
	out, fold, err := m.FoldHow(merge.Input{Name: ds.Stats.Name, Table: ds.Stats.Table}, aux, opts.How, opts.DropDuplicateKey)
	rep.Fold = fold
	if err != nil {
		return nil, rep, fmt.Errorf("consolidate: %w", err)
	}

	switch ds.NoHQSet.State {
	case NotAttempted:
	case Missing, Empty:
		opts.logf("stage=flag dataset=%s no samples to flag", NameNoHQSet)
	case Loaded:
		out, rep.Flagged, err = flagNoHQSet(out, ds.NoHQSet.Table, opts.FlagStyle)
		if err != nil {
			return nil, rep, fmt.Errorf("consolidate: %w", err)
		}
		rep.Flag = flagColumn(opts.FlagStyle)
		opts.logf("stage=flag column=%s flagged=%d rows=%d", rep.Flag, rep.Flagged, out.Len())
	}
	return out, rep, nil
}

func flagColumn(style string) string {
	if style == config.FlagQC {
		return ColumnQC
	}
	return ColumnIsNoHQSet
}

// flagNoHQSet appends the membership column. The is_no_hqset style is "true"
// for members; the qc style is "Fail" for members and "Pass" otherwise.
func flagNoHQSet(t, set *table.Table, style string) (*table.Table, int, error) {
	setKey, err := table.RequireKey(set)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", NameNoHQSet, err)
	}
	members, err := set.IDSet(setKey.Name)
	if err != nil {
		return nil, 0, err
	}
	delete(members, "")

	key, err := table.RequireKey(t)
	if err != nil {
		return nil, 0, err
	}
	ids, err := t.IDs(key.Name)
	if err != nil {
		return nil, 0, err
	}

	in, out := "true", "false"
	if style == config.FlagQC {
		in, out = "Fail", "Pass"
	}

	flagged := 0
	values := make([]any, len(ids))
	for i, id := range ids {
		if _, ok := members[id]; ok && id != "" {
			values[i] = in
			flagged++
		} else {
			values[i] = out
		}
	}
	res, err := t.WithColumn(flagColumn(style), values)
	return res, flagged, err
}
