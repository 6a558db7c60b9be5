package stages

import (
	"context"

	"qcmeta/internal/sampling"
)

// StripRequest configures Strip. Columns defaults to the hq_set label.
type StripRequest struct {
	InputPath  string
	OutputPath string
	Columns    []string
}

// Strip removes label columns from a sampled table. Every named column must
// exist.
func (r *Runner) Strip(ctx context.Context, req StripRequest) (Summary, error) {
	if len(req.Columns) == 0 {
		req.Columns = []string{sampling.LabelColumn}
	}
	return r.step(ctx, "strip", func() (Summary, error) {
		t, err := r.load("sampled", req.InputPath, false)
		if err != nil {
			return Summary{}, err
		}
		out, err := t.Drop(req.Columns...)
		if err != nil {
			return Summary{}, err
		}
		return r.write(ctx, req.OutputPath, out)
	})
}
