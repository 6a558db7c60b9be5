// Command qc_score scores QC predictions against the hq_set labels and
// prints the confusion counts with accuracy, precision and recall.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"qcmeta/internal/cli"
	"qcmeta/internal/config"
	"qcmeta/internal/scoring"
	"qcmeta/internal/stages"
)

var command = cli.Command{
	Name:  "qc_score",
	Usage: "-pred path [-data-dir dir] [-truth path] [-report path] [-truth-column c] [-pred-column c] [-truth-positive v] [-pred-positive v]",
	Flags: func(fs *flag.FlagSet, c *cli.Common) cli.Action {
		var (
			truth    = fs.String("truth", "", "labelled table (default <data-dir>/"+config.DefaultSampledOut+")")
			pred     = fs.String("pred", "", "prediction table (required)")
			report   = fs.String("report", "", "optional one-row report table")
			truthCol = fs.String("truth-column", "", "truth label column (default "+scoring.DefaultTruthColumn+")")
			predCol  = fs.String("pred-column", "", "prediction column (default: detected)")
			truthPos = fs.String("truth-positive", "", "truth value meaning positive (default "+scoring.DefaultTruthPositive+")")
			predPos  = fs.String("pred-positive", "", "prediction value meaning positive (default "+scoring.DefaultPredPositive+")")
		)
		return cli.Action{
			Check: func() error { return cli.Required("pred", *pred) },
			Run: func(ctx context.Context, r *stages.Runner, stdout io.Writer) error {
				res, s, err := r.Score(ctx, stages.ScoreRequest{
					TruthPath:      c.Path(*truth, config.DefaultSampledOut),
					PredictionPath: *pred,
					ReportPath:     *report,
					TruthColumn:    *truthCol,
					PredColumn:     *predCol,
					TruthPositive:  *truthPos,
					PredPositive:   *predPos,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(stdout, res)
				fmt.Fprintf(stdout, "accuracy=%.4f precision=%.4f recall=%.4f\n", res.Accuracy(), res.Precision(), res.Recall())
				if s.Path != "" {
					cli.ReportSummary(stdout, s)
				}
				return nil
			},
		}
	},
}

func main() {
	os.Exit(command.Main(context.Background(), os.Args[1:], os.Stdout, os.Stderr, cli.DefaultDeps()))
}
