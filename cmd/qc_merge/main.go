// Command qc_merge consolidates assembly stats with the checkm2, sylph and
// species tables into one per-sample QC table, and optionally exports it to
// a SQL backend.
//
// Without -config the conventional layout under -data-dir is used. With a
// config, -data-dir overrides its data_dir. When storage is enabled the DSN
// may be overridden with -dsn, env DSN, or the DSN_* component variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"qcmeta/internal/cli"
	"qcmeta/internal/config"
	"qcmeta/internal/consolidate"

	// link every storage backend; the config picks one.
	_ "qcmeta/internal/storage/all"
)

type runner interface {
	Run(ctx context.Context, cfg config.Pipeline) (consolidate.Result, error)
}

type appDeps struct {
	readFile    func(path string) ([]byte, error)
	unmarshal   func(data []byte, p *config.Pipeline) error
	initMetrics func(ctx context.Context, jobName string, m cli.MetricsOptions) (func(), error)
	newRunner   func(l consolidate.Logger) runner
}

func defaultDeps() appDeps {
	return appDeps{
		readFile: os.ReadFile,
		unmarshal: func(data []byte, p *config.Pipeline) error {
			v, err := config.Decode(data)
			if err != nil {
				return err
			}
			*p = v
			return nil
		},
		initMetrics: cli.InitMetrics,
		newRunner:   func(l consolidate.Logger) runner { return consolidate.NewDefaultRunner(l) },
	}
}

func main() {
	os.Exit(runMain(context.Background(), os.Args[1:], os.Stdout, os.Stderr, defaultDeps()))
}

const usage = "usage: qc_merge [-config pipeline.json] [-data-dir dir] [-validate] [-dsn dsn]"

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, deps appDeps) int {
	fs := flag.NewFlagSet("qc_merge", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		cfgPath  = fs.String("config", "", "pipeline config JSON path (default: conventional layout under -data-dir)")
		dataDir  = fs.String("data-dir", "", "data directory relative paths resolve against")
		validate = fs.Bool("validate", false, "validate the configuration and exit")
		dsnFlag  = fs.String("dsn", "", "storage DSN override (else env DSN or DSN_* parts)")
		mo       cli.MetricsOptions
	)
	mo.Register(fs)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	var p config.Pipeline
	if *cfgPath != "" {
		if strings.TrimSpace(*cfgPath) == "" {
			fmt.Fprintln(stderr, usage)
			return 2
		}
		raw, err := deps.readFile(*cfgPath)
		if err != nil {
			fmt.Fprintf(stderr, "read config: %v\n", err)
			return 1
		}
		if err := deps.unmarshal(raw, &p); err != nil {
			fmt.Fprintf(stderr, "parse config: %v\n", err)
			return 1
		}
		if *dataDir != "" {
			p.DataDir = *dataDir
		}
	} else {
		p = config.DefaultPipeline(*dataDir)
	}

	if p.Storage.Enabled() {
		p.Storage.Kind = cli.NormalizeKind(p.Storage.Kind)
		dsn, ok, err := cli.ResolveDSN(p.Storage.Kind, *dsnFlag)
		if err != nil {
			fmt.Fprintf(stderr, "dsn override: %v\n", err)
			return 1
		}
		if ok {
			p.Storage.DB.DSN = dsn
		}
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fmt.Fprintf(stderr, "configuration is invalid: %s\n", describe(*cfgPath))
		return 1
	}
	if *validate {
		fmt.Fprintf(stdout, "configuration is valid: %s\n", describe(*cfgPath))
		return 0
	}

	job := p.Job
	if job == "" {
		job = "qc_merge"
	}
	cleanup, err := deps.initMetrics(ctx, job, mo)
	if err != nil {
		fmt.Fprintf(stderr, "init metrics: %v\n", err)
		return 1
	}
	defer cleanup()

	logger := cli.Logger(stderr, "qc_merge")
	res, err := deps.newRunner(logger).Run(ctx, p)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, res.Written)
	if res.Export != nil {
		fmt.Fprintf(stdout, "exported %d rows to %s (run_id=%s)\n", res.Export.Rows, res.Export.Table, res.Export.RunID)
	}
	fmt.Fprintln(stdout, "ok")
	return 0
}

func describe(cfgPath string) string {
	if cfgPath == "" {
		return "<defaults>"
	}
	return cfgPath
}
