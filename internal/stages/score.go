package stages

import (
	"context"

	"qcmeta/internal/metrics"
	"qcmeta/internal/scoring"
)

// ScoreRequest configures Score. Empty columns and positive values take the
// scoring defaults; an empty PredColumn is detected from the prediction
// table. ReportPath is optional.
type ScoreRequest struct {
	TruthPath      string
	PredictionPath string
	ReportPath     string

	TruthColumn   string
	PredColumn    string
	TruthPositive string
	PredPositive  string
}

// Score compares predictions against the truth labels. The Summary is zero
// unless a report was written.
func (r *Runner) Score(ctx context.Context, req ScoreRequest) (scoring.Result, Summary, error) {
	var res scoring.Result
	s, err := r.step(ctx, "score", func() (Summary, error) {
		truth, err := r.load("truth", req.TruthPath, false)
		if err != nil {
			return Summary{}, err
		}
		pred, err := r.load("predictions", req.PredictionPath, false)
		if err != nil {
			return Summary{}, err
		}

		cfg := scoring.Config{
			TruthColumn: req.TruthColumn,
			PredColumn:  req.PredColumn,
			Logger:      r.Logger,
		}
		if cfg.PredColumn == "" {
			if cfg.PredColumn, err = scoring.DetectPredictionColumn(pred); err != nil {
				return Summary{}, err
			}
		}
		if req.TruthPositive != "" {
			cfg.TruthPositive = scoring.EqualFold(req.TruthPositive)
		}
		if req.PredPositive != "" {
			cfg.PredPositive = scoring.EqualFold(req.PredPositive)
		}

		if res, err = scoring.Score(truth, pred, cfg); err != nil {
			return Summary{}, err
		}
		metrics.Confusion("tp", res.TP)
		metrics.Confusion("fp", res.FP)
		metrics.Confusion("tn", res.TN)
		metrics.Confusion("fn", res.FN)
		r.logf("stage=score %s", res)

		if req.ReportPath == "" {
			return Summary{}, nil
		}
		return r.write(ctx, req.ReportPath, res.AsTable())
	})
	return res, s, err
}
