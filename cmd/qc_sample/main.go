// Command qc_sample draws the balanced hq_set training table: up to -n good
// samples and -n removed samples, each side sampled with its own seed.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"qcmeta/internal/cli"
	"qcmeta/internal/config"
	"qcmeta/internal/sampling"
	"qcmeta/internal/stages"
	"qcmeta/internal/tableio"
)

var command = cli.Command{
	Name:  "qc_sample",
	Usage: "[-data-dir dir] [-stats path] [-removed path] [-out path] [-n N] [-seed-good S] [-seed-removed S] [-species name]",
	Flags: func(fs *flag.FlagSet, c *cli.Common) cli.Action {
		var (
			stats       = fs.String("stats", "", "species-annotated stats table (default <data-dir>/"+config.DefaultSpeciesOut+")")
			removed     = fs.String("removed", "", "removed sample list (default <data-dir>/"+config.DefaultRemovedPath+")")
			out         = fs.String("out", "", "output table (default <data-dir>/"+config.DefaultSampledOut+")")
			n           = fs.Int("n", sampling.DefaultN, "samples to draw from each side")
			seedGood    = fs.Uint64("seed-good", sampling.DefaultSeedGood, "seed for the good side")
			seedRemoved = fs.Uint64("seed-removed", sampling.DefaultSeedRemoved, "seed for the removed side")
			species     = fs.String("species", "", "keep only samples of this species")
			column      = fs.Int("removed-column", 0, "0-based identifier column of the removed list")
			noHeader    = fs.Bool("removed-no-header", false, "the removed list has no header line")
		)
		return cli.Action{
			Check: func() error {
				if *n <= 0 {
					return fmt.Errorf("-n must be positive, got %d", *n)
				}
				if *column < 0 {
					return fmt.Errorf("-removed-column must be >= 0, got %d", *column)
				}
				return nil
			},
			Run: func(ctx context.Context, r *stages.Runner, stdout io.Writer) error {
				set := tableio.DefaultSampleSetOptions()
				set.Column = *column
				set.SkipHeader = !*noHeader
				s, err := r.Sample(ctx, stages.SampleRequest{
					StatsPath:   c.Path(*stats, config.DefaultSpeciesOut),
					RemovedPath: c.Path(*removed, config.DefaultRemovedPath),
					OutputPath:  c.Path(*out, config.DefaultSampledOut),
					Removed:     set,
					N:           *n,
					SeedGood:    *seedGood,
					SeedRemoved: *seedRemoved,
					Species:     *species,
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
