// Command qc_strip removes the label columns from the sampled table.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"strings"

	"qcmeta/internal/cli"
	"qcmeta/internal/config"
	"qcmeta/internal/stages"
)

var command = cli.Command{
	Name:  "qc_strip",
	Usage: "[-data-dir dir] [-in path] [-out path] [-columns a,b]",
	Flags: func(fs *flag.FlagSet, c *cli.Common) cli.Action {
		in := fs.String("in", "", "sampled table (default <data-dir>/"+config.DefaultSampledOut+")")
		out := fs.String("out", "", "output table (default <data-dir>/"+config.DefaultStrippedOut+")")
		columns := fs.String("columns", "", "comma-separated columns to drop (default hq_set)")
		return cli.Action{
			Run: func(ctx context.Context, r *stages.Runner, stdout io.Writer) error {
				s, err := r.Strip(ctx, stages.StripRequest{
					InputPath:  c.Path(*in, config.DefaultSampledOut),
					OutputPath: c.Path(*out, config.DefaultStrippedOut),
					Columns:    splitList(*columns),
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

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	os.Exit(command.Main(context.Background(), os.Args[1:], os.Stdout, os.Stderr, cli.DefaultDeps()))
}
