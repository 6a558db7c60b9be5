package stages

import (
	"context"
	"fmt"

	"qcmeta/internal/merge"
	"qcmeta/internal/sampling"
)

// SpeciesRequest configures AddSpecies.
type SpeciesRequest struct {
	StatsPath   string
	SpeciesPath string
	OutputPath  string
}

// AddSpecies left-joins the species calls onto the assembly stats. The
// species table must have rows and a column whose name contains "species".
func (r *Runner) AddSpecies(ctx context.Context, req SpeciesRequest) (Summary, error) {
	return r.step(ctx, "species", func() (Summary, error) {
		stats, err := r.load("stats", req.StatsPath, true)
		if err != nil {
			return Summary{}, err
		}
		species, err := r.load("species", req.SpeciesPath, true)
		if err != nil {
			return Summary{}, err
		}
		col, err := sampling.SpeciesColumn(species)
		if err != nil {
			return Summary{}, fmt.Errorf("species: %w", err)
		}
		r.logf("stage=species column=%q", col)

		m := &merge.Merger{Logger: r.Logger}
		out, st, err := m.Merge(stats, species, merge.Left, true)
		if err != nil {
			return Summary{}, err
		}
		if st.UnmatchedLeft > 0 {
			r.logf("stage=species warning: %d of %d samples have no species call", st.UnmatchedLeft, st.LeftRows)
		}
		return r.write(ctx, req.OutputPath, out)
	})
}
