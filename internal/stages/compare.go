package stages

import (
	"context"
	"path/filepath"
	"strings"

	"qcmeta/internal/merge"
	"qcmeta/internal/scoring"
	"qcmeta/internal/table"
)

// CompareRequest configures Compare. An empty OutputPath defaults to
// CompareOutputPath(PredictionPath).
type CompareRequest struct {
	PredictionPath string
	StatsPath      string
	OutputPath     string
}

// CompareOutputPath returns "<prediction basename>_compare_stats.tsv".
func CompareOutputPath(predictionPath string) string {
	base := filepath.Base(predictionPath)
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + "_compare_stats.tsv"
}

// Compare inner-joins the stats with the identifier and prediction columns
// of the prediction table.
func (r *Runner) Compare(ctx context.Context, req CompareRequest) (Summary, error) {
	if req.OutputPath == "" {
		req.OutputPath = CompareOutputPath(req.PredictionPath)
	}
	return r.step(ctx, "compare", func() (Summary, error) {
		pred, err := r.load("predictions", req.PredictionPath, false)
		if err != nil {
			return Summary{}, err
		}
		stats, err := r.load("stats", req.StatsPath, false)
		if err != nil {
			return Summary{}, err
		}

		key, err := table.RequireKey(pred)
		if err != nil {
			return Summary{}, err
		}
		col, err := scoring.DetectPredictionColumn(pred)
		if err != nil {
			return Summary{}, err
		}
		r.logf("stage=compare key=%s prediction_column=%q", key, col)

		cols := []string{key.Name}
		if col != key.Name {
			cols = append(cols, col)
		}
		subset, err := pred.Select(cols...)
		if err != nil {
			return Summary{}, err
		}

		m := &merge.Merger{Logger: r.Logger}
		out, _, err := m.Merge(stats, subset, merge.Inner, true)
		if err != nil {
			return Summary{}, err
		}
		return r.write(ctx, req.OutputPath, out)
	})
}
