// Command qc_species left-joins species calls onto the assembly stats.
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
	Name:  "qc_species",
	Usage: "[-data-dir dir] [-stats path] [-species path] [-out path]",
	Flags: func(fs *flag.FlagSet, c *cli.Common) cli.Action {
		stats := fs.String("stats", "", "assembly stats table (default <data-dir>/"+config.DefaultStatsPath+")")
		species := fs.String("species", "", "species calls table (default <data-dir>/"+config.DefaultSpeciesPath+")")
		out := fs.String("out", "", "output table (default <data-dir>/"+config.DefaultSpeciesOut+")")
		return cli.Action{
			Run: func(ctx context.Context, r *stages.Runner, stdout io.Writer) error {
				s, err := r.AddSpecies(ctx, stages.SpeciesRequest{
					StatsPath:   c.Path(*stats, config.DefaultStatsPath),
					SpeciesPath: c.Path(*species, config.DefaultSpeciesPath),
					OutputPath:  c.Path(*out, config.DefaultSpeciesOut),
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
