package consolidate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcmeta/internal/config"
	"qcmeta/internal/merge"
	"qcmeta/internal/storage"
	"qcmeta/internal/table"
	"qcmeta/internal/tableio"
)

type captureLogger struct{ lines []string }

func (c *captureLogger) Printf(format string, v ...any) {
	c.lines = append(c.lines, fmt.Sprintf(format, v...))
}

func (c *captureLogger) contains(substr string) bool {
	for _, l := range c.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func writeFile(t *testing.T, dir, rel, body string) {
	t.Helper()
	p := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func pipeline(dir string) config.Pipeline {
	p := config.DefaultPipeline(dir)
	p.Inputs.Species = nil
	p.Inputs.NoHQSet = &config.Input{Path: config.DefaultNoHQSetPath}
	return p
}

func TestLoad_States(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, config.DefaultStatsPath, "sample\ttotal_length\nS1\t100\nS2\t200\n")
	writeFile(t, dir, config.DefaultCheckM2Path, "Name\tCompleteness\n")
	writeFile(t, dir, config.DefaultNoHQSetPath, "sample\nS2\n")

	cfg := pipeline(dir)
	cfg.Inputs.Sylph.Optional = true

	log := &captureLogger{}
	ds, err := Load(cfg, LoadOptions{Logger: log})
	require.NoError(t, err)

	assert.Equal(t, Loaded, ds.Stats.State)
	assert.Equal(t, 2, ds.Stats.Table.Len())
	assert.Equal(t, Empty, ds.CheckM2.State)
	assert.Equal(t, Missing, ds.Sylph.State)
	assert.Equal(t, NotAttempted, ds.Species.State)
	assert.Equal(t, Loaded, ds.NoHQSet.State)
	assert.True(t, log.contains("warning: sylph data not found"))
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing_required_auxiliary", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, config.DefaultStatsPath, "sample\nS1\n")
		_, err := Load(pipeline(dir), LoadOptions{})
		require.Error(t, err)
		assert.ErrorIs(t, err, tableio.ErrNotFound)
		assert.Contains(t, err.Error(), "load checkm2")
	})

	t.Run("empty_stats", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, config.DefaultStatsPath, "sample\n")
		_, err := Load(pipeline(dir), LoadOptions{})
		assert.ErrorIs(t, err, tableio.ErrEmpty)
	})

	t.Run("stats_not_configured", func(t *testing.T) {
		cfg := pipeline(t.TempDir())
		cfg.Inputs.Stats = nil
		_, err := Load(cfg, LoadOptions{})
		assert.Error(t, err)
	})

	t.Run("read_seam_error_propagates", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Load(pipeline("d"), LoadOptions{Read: func(string, tableio.ReadOptions) (*table.Table, error) {
			return nil, boom
		}})
		assert.ErrorIs(t, err, boom)
	})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "not_attempted", NotAttempted.String())
	assert.Equal(t, "loaded", Loaded.String())
	assert.Equal(t, "empty", Empty.String())
	assert.Equal(t, "missing", Missing.String())
}

func datasets() Datasets {
	return Datasets{
		Stats: Dataset{Name: NameStats, State: Loaded, Table: table.New([]string{"sample", "total_length"},
			[]any{"S1", "100"}, []any{"S2", "200"}, []any{"S3", "300"})},
		CheckM2: Dataset{Name: NameCheckM2, State: Loaded, Table: table.New([]string{"Name", "Completeness"},
			[]any{"S1", "99.1"}, []any{"S3", "87.0"})},
		Sylph:   Dataset{Name: NameSylph, State: Empty, Table: table.Empty("sample", "Taxonomic_abundance")},
		Species: Dataset{Name: NameSpecies, State: NotAttempted},
		NoHQSet: Dataset{Name: NameNoHQSet, State: Loaded, Table: table.New([]string{"sample"}, []any{"S2"})},
	}
}

func TestRun_FoldAndFlag(t *testing.T) {
	log := &captureLogger{}
	opts := DefaultOptions()
	opts.Logger = log

	got, rep, err := Run(datasets(), opts)
	require.NoError(t, err)

	want := table.New([]string{"sample", "total_length", "Completeness", ColumnIsNoHQSet},
		[]any{"S1", "100", "99.1", "false"},
		[]any{"S2", "200", nil, "true"},
		[]any{"S3", "300", "87.0", "false"},
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Run mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, ColumnIsNoHQSet, rep.Flag)
	assert.Equal(t, 1, rep.Flagged)
	assert.Equal(t, []string{NameCheckM2}, rep.Fold.Merged)
	assert.Equal(t, []merge.Skip{{Name: NameSylph, Reason: "empty"}}, rep.Fold.Skipped)
	assert.True(t, log.contains("dataset=sylph skipped reason=empty"))
	assert.False(t, log.contains("species"), "unconfigured datasets stay silent")
}

func TestRun_QCFlagStyle(t *testing.T) {
	opts := DefaultOptions()
	opts.FlagStyle = config.FlagQC

	got, _, err := Run(datasets(), opts)
	require.NoError(t, err)
	qc, err := got.Column(ColumnQC)
	require.NoError(t, err)
	assert.Equal(t, []any{"Pass", "Fail", "Pass"}, qc)
}

func TestRun_NoHQSetStates(t *testing.T) {
	t.Run("empty_logs_nothing_to_flag", func(t *testing.T) {
		ds := datasets()
		ds.NoHQSet = Dataset{Name: NameNoHQSet, State: Empty, Table: table.Empty("sample")}
		log := &captureLogger{}
		opts := DefaultOptions()
		opts.Logger = log

		got, rep, err := Run(ds, opts)
		require.NoError(t, err)
		assert.False(t, got.Has(ColumnIsNoHQSet))
		assert.Empty(t, rep.Flag)
		assert.True(t, log.contains("no samples to flag"))
	})

	t.Run("not_attempted_is_silent", func(t *testing.T) {
		ds := datasets()
		ds.NoHQSet = Dataset{Name: NameNoHQSet}
		log := &captureLogger{}
		opts := DefaultOptions()
		opts.Logger = log

		got, _, err := Run(ds, opts)
		require.NoError(t, err)
		assert.False(t, got.Has(ColumnIsNoHQSet))
		assert.False(t, log.contains("no samples to flag"))
	})
}

func TestRun_Errors(t *testing.T) {
	ds := datasets()
	ds.Stats.Table = table.Empty("sample")
	_, _, err := Run(ds, DefaultOptions())
	assert.ErrorIs(t, err, merge.ErrEmptyBase)

	opts := DefaultOptions()
	opts.How = "sideways"
	_, _, err = Run(datasets(), opts)
	assert.ErrorIs(t, err, merge.ErrUnknownHow)
}

func TestOptionsFrom(t *testing.T) {
	keep := false
	o := OptionsFrom(config.Merge{DropDuplicateKey: &keep, How: "INNER", FlagStyle: config.FlagQC}, nil)
	assert.False(t, o.DropDuplicateKey)
	assert.Equal(t, merge.Inner, o.How)
	assert.Equal(t, config.FlagQC, o.FlagStyle)

	d := OptionsFrom(config.Merge{}, nil)
	assert.Equal(t, DefaultOptions(), d)
}

type fakeRepo struct {
	ensured []storage.TableSpec
	rows    int
	closed  int
}

func (f *fakeRepo) EnsureTable(_ context.Context, spec storage.TableSpec) error {
	f.ensured = append(f.ensured, spec)
	return nil
}

func (f *fakeRepo) InsertRows(_ context.Context, _ string, _ []string, rows [][]any) (int64, error) {
	f.rows += len(rows)
	return int64(len(rows)), nil
}

func (f *fakeRepo) Close() { f.closed++ }

func TestRunner_WritesAndExports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, config.DefaultStatsPath, "sample\ttotal_length\nS1\t100\nS2\t200\n")
	writeFile(t, dir, config.DefaultCheckM2Path, "Name\tCompleteness\nS1\t99\n")
	writeFile(t, dir, config.DefaultSylphPath, "")
	writeFile(t, dir, config.DefaultNoHQSetPath, "sample\nS2\n")

	cfg := pipeline(dir)
	cfg.Storage = config.Storage{Kind: "sqlite", DB: config.DBConfig{DSN: "ignored", Table: "merged_qc"}}

	repo := &fakeRepo{}
	var gotCfg storage.Config
	r := NewDefaultRunner(&captureLogger{})
	r.NewRepository = func(_ context.Context, c storage.Config) (storage.TableRepository, error) {
		gotCfg = c
		return repo, nil
	}

	res, err := r.Run(context.Background(), cfg)
	require.NoError(t, err)

	out := filepath.Join(dir, config.DefaultMergedPath)
	assert.Equal(t, tableio.Written{Path: out, Rows: 2, Columns: 4}, res.Written)
	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "sample\ttotal_length\tCompleteness\tis_no_hqset\nS1\t100\t99\tfalse\nS2\t200\t\ttrue\n", string(raw))

	require.NotNil(t, res.Export)
	assert.Equal(t, int64(2), res.Export.Rows)
	assert.Equal(t, "sqlite", gotCfg.Kind)
	assert.Equal(t, 2, repo.rows)
	assert.Equal(t, 1, repo.closed)
}

func TestRunner_NothingWrittenOnFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, config.DefaultStatsPath, "sample\nS1\n")

	writes := 0
	r := NewDefaultRunner(nil)
	r.Write = func(string, *table.Table, tableio.WriteOptions) (tableio.Written, error) {
		writes++
		return tableio.Written{}, nil
	}

	_, err := r.Run(context.Background(), pipeline(dir))
	require.ErrorIs(t, err, tableio.ErrNotFound)
	assert.Zero(t, writes)
}

func TestRunner_InvalidConfig(t *testing.T) {
	cfg := pipeline(t.TempDir())
	cfg.Output.Path = ""
	_, err := NewDefaultRunner(nil).Run(context.Background(), cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "output.path")
}

func TestRunner_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, config.DefaultStatsPath, "sample\nS1\n")
	cfg := config.DefaultPipeline(dir)
	cfg.Inputs.CheckM2, cfg.Inputs.Sylph, cfg.Inputs.Species = nil, nil, nil

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDefaultRunner(nil).Run(ctx, cfg)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, tableio.Exists(filepath.Join(dir, config.DefaultMergedPath)))
}
