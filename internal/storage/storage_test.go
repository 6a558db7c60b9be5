package storage

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qcmeta/internal/probe"
	"qcmeta/internal/table"
)

type fakeRepo struct {
	spec       TableSpec
	batches    [][][]any
	columns    []string
	insertErr  error
	closeCalls atomic.Int64
}

func (f *fakeRepo) EnsureTable(ctx context.Context, spec TableSpec) error {
	f.spec = spec
	return nil
}

func (f *fakeRepo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.columns = columns
	f.batches = append(f.batches, rows)
	return int64(len(rows)), nil
}

func (f *fakeRepo) Close() { f.closeCalls.Add(1) }

func TestRegisterAndNew(t *testing.T) {
	repo := &fakeRepo{}
	Register("fake-registry-test", func(ctx context.Context, cfg Config) (TableRepository, error) {
		return repo, nil
	})

	got, err := New(context.Background(), Config{Kind: "fake-registry-test"})
	require.NoError(t, err)
	assert.Same(t, repo, got)
	assert.Contains(t, Kinds(), "fake-registry-test")

	_, err = New(context.Background(), Config{})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Kind: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported kind=nope")
}

func TestRegister_Panics(t *testing.T) {
	f := func(ctx context.Context, cfg Config) (TableRepository, error) { return nil, nil }
	Register("fake-dup-test", f)

	tests := []struct {
		name string
		kind string
		f    Factory
	}{
		{"empty kind", "", f},
		{"nil factory", "fake-nil-test", nil},
		{"duplicate", "fake-dup-test", f},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { Register(tt.kind, tt.f) })
		})
	}
}

func TestSanitizeIdent(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"sample", "sample"},
		{"Completeness (%)", "completeness"},
		{"  Total Length  ", "total_length"},
		{"checkm2.Contamination", "checkm2_contamination"},
		{"50kb_contigs", "c_50kb_contigs"},
		{"%%", "c_"},
		{strings.Repeat("a", 80), strings.Repeat("a", 63)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeIdent(tt.in), "SanitizeIdent(%q)", tt.in)
	}
}

func TestSanitizeColumns_Dedupes(t *testing.T) {
	t.Parallel()

	got := SanitizeColumns([]string{"run_id", "N50", "n50", "run_id", "n50_2"})
	assert.Equal(t, []string{"run_id", "n50", "n50_2", "run_id_2", "n50_2_2"}, got)

	long := strings.Repeat("x", 70)
	got = SanitizeColumns([]string{long, long})
	assert.Len(t, got[1], 63)
	assert.NotEqual(t, got[0], got[1])
}

func TestExport_BatchesAndTypes(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	in := table.New([]string{"sample", "N50", "HQ"},
		[]any{"S1", "10", "T"},
		[]any{"S2", "20", "F"},
		[]any{"S3", nil, nil},
	)

	res, err := Export(context.Background(), repo, in, ExportSpec{Table: "qc", RunID: "r1", BatchSize: 2})
	require.NoError(t, err)
	assert.Equal(t, ExportResult{Table: "qc", RunID: "r1", Rows: 3}, res)

	assert.Equal(t, TableSpec{Name: "qc", Columns: []ColumnSpec{
		{Name: "run_id", Type: probe.TypeText},
		{Name: "sample", Type: probe.TypeText},
		{Name: "n50", Type: probe.TypeInteger},
		{Name: "hq", Type: probe.TypeBoolean},
	}}, repo.spec)
	require.Len(t, repo.batches, 2)
	assert.Equal(t, []any{"r1", "S1", int64(10), true}, repo.batches[0][0])
	assert.Equal(t, []any{"r1", "S3", nil, nil}, repo.batches[1][0])

	// The input table is not modified.
	assert.Equal(t, "10", in.Rows[0][1])
}

func TestExport_GeneratesRunID(t *testing.T) {
	t.Parallel()

	res, err := Export(context.Background(), &fakeRepo{}, table.New([]string{"sample"}, []any{"S1"}), ExportSpec{Table: "qc"})
	require.NoError(t, err)
	assert.Len(t, res.RunID, 36)
}

func TestExport_Errors(t *testing.T) {
	t.Parallel()

	_, err := Export(context.Background(), &fakeRepo{}, table.New([]string{"a"}), ExportSpec{Table: " "})
	assert.ErrorIs(t, err, ErrNoTable)

	_, err = Export(context.Background(), &fakeRepo{}, table.Empty(), ExportSpec{Table: "qc"})
	assert.ErrorIs(t, err, table.ErrNoColumns)

	boom := errors.New("boom")
	_, err = Export(context.Background(), &fakeRepo{insertErr: boom}, table.New([]string{"a"}, []any{"1"}), ExportSpec{Table: "qc"})
	assert.ErrorIs(t, err, boom)
}
