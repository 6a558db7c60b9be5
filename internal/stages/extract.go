package stages

import (
	"context"

	"qcmeta/internal/merge"
	"qcmeta/internal/table"
)

// ExtractRequest configures ExtractRemoved.
type ExtractRequest struct {
	StatsPath   string
	RemovedPath string
	OutputPath  string
}

// removedSuffixes keep stats names and mark columns repeated from the
// removed table.
var removedSuffixes = []string{"", "_removed"}

// ExtractRemoved selects the stats rows listed in the first column of the
// removed file and left-joins every column of that file onto them.
func (r *Runner) ExtractRemoved(ctx context.Context, req ExtractRequest) (Summary, error) {
	return r.step(ctx, "extract_removed", func() (Summary, error) {
		removed, err := r.load("removed", req.RemovedPath, true)
		if err != nil {
			return Summary{}, err
		}
		stats, err := r.load("stats", req.StatsPath, false)
		if err != nil {
			return Summary{}, err
		}
		key, err := table.RequireKey(stats)
		if err != nil {
			return Summary{}, err
		}
		if !key.ByName {
			r.logf("stage=extract_removed warning: no sample column, using first column %q", key.Name)
		}

		ids, err := removed.IDSet(removed.Columns[0])
		if err != nil {
			return Summary{}, err
		}
		delete(ids, "")
		r.logf("stage=extract_removed ids=%d removed_columns=%d", len(ids), removed.Width())

		selected := stats.Filter(func(row []any) bool {
			_, ok := ids[table.NormalizeKey(row[key.Index])]
			return ok
		})
		if selected.IsEmpty() {
			r.logf("stage=extract_removed warning: none of the removed samples were found in %s", req.StatsPath)
		}

		// Align the removed identifier column with the stats key.
		if removed.Columns[0] != key.Name && !removed.Has(key.Name) {
			if removed, err = removed.Rename(removed.Columns[0], key.Name); err != nil {
				return Summary{}, err
			}
		}

		m := &merge.Merger{Logger: r.Logger, Suffixes: removedSuffixes}
		out, _, err := m.Merge(selected, removed, merge.Left, true)
		if err != nil {
			return Summary{}, err
		}
		return r.write(ctx, req.OutputPath, out)
	})
}
