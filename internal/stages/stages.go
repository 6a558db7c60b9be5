// Package stages implements the standalone QC batch jobs that run around the
// consolidation: species annotation, balanced sampling, comparison file
// creation, prediction scoring, label stripping and removed-sample
// extraction.
//
// Every stage reads whole tables, writes at most one output file and returns
// a Summary. A stage that fails before its write step leaves no output.
package stages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qcmeta/internal/metrics"
	"qcmeta/internal/table"
	"qcmeta/internal/tableio"
)

// ErrEmptyInput reports an input table with no data rows where rows are
// required.
var ErrEmptyInput = errors.New("stages: input table is empty")

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, v ...any)
}

// Summary describes the table a stage wrote.
type Summary struct {
	Stage   string
	Rows    int
	Columns int
	Path    string
}

// Runner carries the I/O seams shared by every stage.
type Runner struct {
	Logger Logger

	Read          func(path string, opt tableio.ReadOptions) (*table.Table, error)
	Write         func(path string, t *table.Table, opt tableio.WriteOptions) (tableio.Written, error)
	ReadSampleSet func(path string, opt tableio.SampleSetOptions) (tableio.SampleSet, error)
}

// NewRunner returns a Runner over the real file system.
func NewRunner(l Logger) *Runner {
	return &Runner{
		Logger:        l,
		Read:          tableio.Read,
		Write:         tableio.Write,
		ReadSampleSet: tableio.ReadSampleSet,
	}
}

func (r *Runner) logf(format string, v ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, v...)
	}
}

// step runs fn under ctx and records its status and duration.
func (r *Runner) step(ctx context.Context, stage string, fn func() (Summary, error)) (Summary, error) {
	start := time.Now()
	var (
		s   Summary
		err error
	)
	if err = ctx.Err(); err == nil {
		s, err = fn()
	}
	metrics.Step(stage, metrics.Status(err), time.Since(start))
	if err != nil {
		return Summary{Stage: stage}, fmt.Errorf("%s: %w", stage, err)
	}
	s.Stage = stage
	return s, nil
}

// load reads path. When required is set a table without rows is ErrEmptyInput.
func (r *Runner) load(name, path string, required bool) (*table.Table, error) {
	t, err := r.Read(path, tableio.ReadOptions{})
	if err != nil {
		if required && errors.Is(err, tableio.ErrEmpty) {
			return nil, fmt.Errorf("%s: %w: %w", name, ErrEmptyInput, err)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if required && t.IsEmpty() {
		return nil, fmt.Errorf("%s: %w: %s", name, ErrEmptyInput, path)
	}
	r.logf("loaded %s rows=%d columns=%d path=%s", name, t.Len(), t.Width(), path)
	metrics.Rows("read", t.Len())
	return t, nil
}

func (r *Runner) write(ctx context.Context, path string, t *table.Table) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}
	w, err := r.Write(path, t, tableio.WriteOptions{})
	if err != nil {
		return Summary{}, err
	}
	r.logf("%s", w)
	metrics.Rows("written", w.Rows)
	return Summary{Rows: w.Rows, Columns: w.Columns, Path: w.Path}, nil
}
