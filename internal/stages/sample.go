package stages

import (
	"context"

	"qcmeta/internal/sampling"
	"qcmeta/internal/table"
	"qcmeta/internal/tableio"
)

// SampleRequest configures Sample. A zero N takes sampling.DefaultN. Seeds
// are used as given, so 0 is a valid seed; callers wanting the usual seeds
// pass sampling.DefaultSeedGood and sampling.DefaultSeedRemoved.
type SampleRequest struct {
	StatsPath   string
	RemovedPath string
	OutputPath  string

	Removed tableio.SampleSetOptions

	N           int
	SeedGood    uint64
	SeedRemoved uint64
	Species     string // keep only rows of this species when set
}

func (q SampleRequest) withDefaults() SampleRequest {
	if q.N <= 0 {
		q.N = sampling.DefaultN
	}
	return q
}

// Sample builds the balanced labelled set: up to N good and N removed
// samples, good first, with the hq_set column naming each side.
func (r *Runner) Sample(ctx context.Context, req SampleRequest) (Summary, error) {
	req = req.withDefaults()
	return r.step(ctx, "sample", func() (Summary, error) {
		stats, err := r.load("stats", req.StatsPath, true)
		if err != nil {
			return Summary{}, err
		}
		removed, err := r.ReadSampleSet(req.RemovedPath, req.Removed)
		if err != nil {
			return Summary{}, err
		}
		r.logf("loaded removed samples=%d path=%s", len(removed), req.RemovedPath)

		set := make(map[string]struct{}, len(removed))
		for id := range removed {
			set[table.NormalizeKey(id)] = struct{}{}
		}
		if err := r.checkRemovedOverlap(stats, set, req.RemovedPath); err != nil {
			return Summary{}, err
		}

		opts := []sampling.Option{sampling.WithLogger(r.Logger)}
		if req.Species != "" {
			opts = append(opts, sampling.WithSpeciesFilter(req.Species))
		}
		good, bad, err := sampling.PartitionAndSample(stats, set, "", req.N, req.SeedGood, req.SeedRemoved, opts...)
		if err != nil {
			return Summary{}, err
		}

		out := sampling.Combine(
			sampling.Label(good, sampling.LabelColumn, sampling.GoodLabel),
			sampling.Label(bad, sampling.LabelColumn, sampling.RemovedLabel),
		)
		return r.write(ctx, req.OutputPath, out)
	})
}

// checkRemovedOverlap warns when none of the removed identifiers occur in
// stats, which usually means the removed list was read with the wrong
// delimiter or column and every sample would be labelled good.
func (r *Runner) checkRemovedOverlap(stats *table.Table, removed map[string]struct{}, path string) error {
	if len(removed) == 0 {
		r.logf("stage=sample warning: removed sample list %s is empty", path)
		return nil
	}
	key, err := table.RequireKey(stats)
	if err != nil {
		return err
	}
	ids, err := stats.IDSet(key.Name)
	if err != nil {
		return err
	}
	for id := range removed {
		if _, ok := ids[id]; ok {
			return nil
		}
	}
	r.logf("stage=sample warning: none of the %d removed samples in %s occur in the stats column %q",
		len(removed), path, key.Name)
	return nil
}
