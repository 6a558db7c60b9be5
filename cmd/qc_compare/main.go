// Command qc_compare joins a prediction file with the merged QC stats for
// side-by-side review. The default output is
// <prediction basename>_compare_stats.tsv in the working directory.
package main

import (
	"context"
	"flag"
	"io"
	"os"

	"qcmeta/internal/cli"
	"qcmeta/internal/config"
	"qcmeta/internal/stages"
)

var command = cli.Command{
	Name:  "qc_compare",
	Usage: "-pred path [-data-dir dir] [-stats path] [-out path]",
	Flags: func(fs *flag.FlagSet, c *cli.Common) cli.Action {
		pred := fs.String("pred", "", "prediction table (required)")
		stats := fs.String("stats", "", "merged QC table (default <data-dir>/"+config.DefaultMergedPath+")")
		out := fs.String("out", "", "output table (default <pred basename>_compare_stats.tsv)")
		return cli.Action{
			Check: func() error { return cli.Required("pred", *pred) },
			Run: func(ctx context.Context, r *stages.Runner, stdout io.Writer) error {
				dst := *out
				if dst == "" {
					dst = stages.CompareOutputPath(*pred)
				}
				s, err := r.Compare(ctx, stages.CompareRequest{
					PredictionPath: *pred,
					StatsPath:      c.Path(*stats, config.DefaultMergedPath),
					OutputPath:     dst,
				})
				if err != nil {
					return err
				}
				cli.ReportSummary(stdout, s)
				return nil
			},
		}
	},
}

func main() {
	os.Exit(command.Main(context.Background(), os.Args[1:], os.Stdout, os.Stderr, cli.DefaultDeps()))
}
