// Command qc_extract_removed pulls the merged stats of the samples removed
// from the hq_set and joins the removal details onto them.
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
	Name:  "qc_extract_removed",
	Usage: "[-data-dir dir] [-stats path] [-removed path] [-out path]",
	Flags: func(fs *flag.FlagSet, c *cli.Common) cli.Action {
		stats := fs.String("stats", "", "merged QC table (default <data-dir>/"+config.DefaultMergedPath+")")
		removed := fs.String("removed", "", "removed samples table (default <data-dir>/"+config.DefaultRemovedPath+")")
		out := fs.String("out", "", "output table (default <data-dir>/"+config.DefaultExtractedOut+")")
		return cli.Action{
			Run: func(ctx context.Context, r *stages.Runner, stdout io.Writer) error {
				s, err := r.ExtractRemoved(ctx, stages.ExtractRequest{
					StatsPath:   c.Path(*stats, config.DefaultMergedPath),
					RemovedPath: c.Path(*removed, config.DefaultRemovedPath),
					OutputPath:  c.Path(*out, config.DefaultExtractedOut),
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
