package consolidate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"qcmeta/internal/config"
	"qcmeta/internal/metrics"
	"qcmeta/internal/storage"
	"qcmeta/internal/table"
	"qcmeta/internal/tableio"
)

// ErrInvalidConfig reports a pipeline config with validation errors.
var ErrInvalidConfig = errors.New("consolidate: invalid pipeline config")

// Runner executes a consolidation job end to end: validate, load, fold,
// write and optionally export to SQL.
type Runner struct {
	Logger Logger

	// Seams; NewDefaultRunner fills them with the real implementations.
	Load          func(cfg config.Pipeline, opts LoadOptions) (Datasets, error)
	Write         func(path string, t *table.Table, opt tableio.WriteOptions) (tableio.Written, error)
	NewRepository func(ctx context.Context, cfg storage.Config) (storage.TableRepository, error)
}

func NewDefaultRunner(l Logger) *Runner {
	return &Runner{
		Logger:        l,
		Load:          Load,
		Write:         tableio.Write,
		NewRepository: storage.New,
	}
}

// Result describes a finished run. Export is nil when storage is disabled.
type Result struct {
	Report  Report
	Written tableio.Written
	Export  *storage.ExportResult
}

func (r *Runner) logf(format string, v ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, v...)
	}
}

// timed runs fn and records its duration and status under stage.
func timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.Step(stage, metrics.Status(err), time.Since(start))
	return err
}

// Run executes cfg. Nothing is written when loading or folding fails.
func (r *Runner) Run(ctx context.Context, cfg config.Pipeline) (Result, error) {
	var res Result

	issues := config.ValidatePipeline(cfg)
	for _, iss := range issues {
		if iss.Severity == config.SeverityWarning {
			r.logf("config %s", iss)
		}
	}
	if config.HasErrors(issues) {
		var msgs []string
		for _, iss := range issues {
			if iss.Severity == config.SeverityError {
				msgs = append(msgs, iss.Path+": "+iss.Message)
			}
		}
		return res, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
	}

	var ds Datasets
	err := timed("load", func() (err error) {
		ds, err = r.Load(cfg, LoadOptions{Logger: r.Logger})
		return err
	})
	if err != nil {
		return res, err
	}
	metrics.Rows("read", ds.Stats.Table.Len())
	if err := ctx.Err(); err != nil {
		return res, err
	}

	var out *table.Table
	err = timed("merge", func() (err error) {
		out, res.Report, err = Run(ds, OptionsFrom(cfg.Merge, r.Logger))
		return err
	})
	if err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	path := cfg.Resolve(cfg.Output.Path)
	err = timed("write", func() (err error) {
		res.Written, err = r.Write(path, out, tableio.WriteOptionsFrom(cfg.Output.Options))
		return err
	})
	if err != nil {
		return res, fmt.Errorf("write output: %w", err)
	}
	metrics.Rows("written", res.Written.Rows)
	r.logf("%s", res.Written)

	if !cfg.Storage.Enabled() {
		return res, nil
	}
	err = timed("export", func() error {
		exp, err := r.export(ctx, cfg.Storage, out)
		if err == nil {
			res.Export = &exp
		}
		return err
	})
	if err != nil {
		return res, err
	}
	metrics.Rows("exported", int(res.Export.Rows))
	r.logf("exported rows=%d table=%s run_id=%s", res.Export.Rows, res.Export.Table, res.Export.RunID)
	return res, nil
}

func (r *Runner) export(ctx context.Context, st config.Storage, t *table.Table) (storage.ExportResult, error) {
	repo, err := r.NewRepository(ctx, storage.Config{
		Kind:      strings.ToLower(st.Kind),
		DSN:       st.DB.ExpandedDSN(),
		BatchSize: st.DB.BatchSize,
	})
	if err != nil {
		return storage.ExportResult{}, fmt.Errorf("open storage: %w", err)
	}
	defer repo.Close()

	exp, err := storage.Export(ctx, repo, t, storage.ExportSpec{
		Table:     st.DB.Table,
		BatchSize: st.DB.BatchSize,
		RowHash:   st.DB.RowHash,
	})
	if err != nil {
		return exp, fmt.Errorf("export: %w", err)
	}
	return exp, nil
}
