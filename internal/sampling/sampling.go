// Package sampling builds balanced, labelled sample sets from a merged QC
// table: rows are split into a good partition and a removed partition by
// membership of their sample identifier in a removed-sample set, and a seeded
// bounded draw is taken from each side.
package sampling

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/sampleuv"

	"qcmeta/internal/table"
)

const (
	DefaultN           = 500
	DefaultSeedGood    = 43
	DefaultSeedRemoved = 42

	LabelColumn  = "hq_set"
	GoodLabel    = "good_samples"
	RemovedLabel = "removed_samples"
)

// ErrPartitionInvariant reports partitions that overlap or lose identifiers.
var ErrPartitionInvariant = errors.New("sampling: partition invariant violated")

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, v ...any)
}

type filter struct {
	column string // "" means: detect the species column
	value  string
}

type options struct {
	filters []filter
	logger  Logger
}

func (o *options) logf(format string, v ...any) {
	if o.logger != nil {
		o.logger.Printf(format, v...)
	}
}

// Option configures PartitionAndSample.
type Option func(*options)

// WithFilter keeps only rows whose column equals value exactly.
func WithFilter(column, value string) Option {
	return func(o *options) { o.filters = append(o.filters, filter{column: column, value: value}) }
}

// WithSpeciesFilter is WithFilter on the first column whose name contains
// "species".
func WithSpeciesFilter(value string) Option {
	return func(o *options) { o.filters = append(o.filters, filter{value: value}) }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l Logger) Option {
	return func(o *options) { o.logger = l }
}

// FilterEqual returns the rows of t whose column renders exactly as value.
// Null cells never match.
func FilterEqual(t *table.Table, column, value string) (*table.Table, error) {
	ix, ok := t.Index(column)
	if !ok {
		return nil, fmt.Errorf("filter: %w: %q", table.ErrMissingColumn, column)
	}
	return t.Filter(func(r []any) bool {
		return r[ix] != nil && table.FormatValue(r[ix]) == value
	}), nil
}

// SpeciesColumn returns the first column whose name contains "species".
func SpeciesColumn(t *table.Table) (string, error) {
	c, ok := table.FindColumn(t, "species")
	if !ok {
		return "", fmt.Errorf("%w: no column name contains %q (columns: %v)", table.ErrMissingColumn, "species", t.Columns)
	}
	return c, nil
}

// Partition splits t into rows whose sampleCol value is not in removed (good)
// and rows whose value is (bad). Identifiers are compared in normalized form.
// The result is checked: the two identifier sets are disjoint and their union
// is the identifier set of t.
func Partition(t *table.Table, removed map[string]struct{}, sampleCol string) (good, bad *table.Table, err error) {
	ix, ok := t.Index(sampleCol)
	if !ok {
		return nil, nil, fmt.Errorf("partition: %w: %q", table.ErrMissingColumn, sampleCol)
	}
	isRemoved := func(r []any) bool {
		_, hit := removed[table.NormalizeKey(r[ix])]
		return hit
	}
	good = t.Filter(func(r []any) bool { return !isRemoved(r) })
	bad = t.Filter(isRemoved)

	if err := checkPartition(t, good, bad, sampleCol); err != nil {
		return nil, nil, err
	}
	return good, bad, nil
}

func checkPartition(all, good, bad *table.Table, col string) error {
	if good.Len()+bad.Len() != all.Len() {
		return fmt.Errorf("%w: %d good + %d removed rows != %d rows", ErrPartitionInvariant, good.Len(), bad.Len(), all.Len())
	}
	gs, err := good.IDSet(col)
	if err != nil {
		return err
	}
	bs, err := bad.IDSet(col)
	if err != nil {
		return err
	}
	for id := range bs {
		if _, ok := gs[id]; ok {
			return fmt.Errorf("%w: identifier %q is in both partitions", ErrPartitionInvariant, id)
		}
	}
	as, err := all.IDSet(col)
	if err != nil {
		return err
	}
	if len(gs)+len(bs) != len(as) {
		return fmt.Errorf("%w: %d + %d identifiers != %d", ErrPartitionInvariant, len(gs), len(bs), len(as))
	}
	return nil
}

// Sample draws min(n, t.Len()) distinct rows of t using seed. The seed
// decides which rows are selected; the selected rows are returned in table
// order, not in the order they were drawn. The same table, n and seed always
// return the same rows in the same order.
func Sample(t *table.Table, n int, seed uint64) *table.Table {
	size := t.Len()
	k := min(n, size)
	if k <= 0 {
		return table.Empty(t.Columns...)
	}
	idx := make([]int, k)
	sampleuv.WithoutReplacement(idx, size, rand.NewPCG(seed, seed))
	sort.Ints(idx)
	return t.Take(idx)
}

// Label returns a copy of t with column set to value on every row.
func Label(t *table.Table, column, value string) *table.Table {
	return t.WithConstant(column, value)
}

// Combine stacks the good sample above the removed sample. Rows keep their
// order within each side.
func Combine(good, bad *table.Table) *table.Table {
	return table.Concat(good, bad)
}

// PartitionAndSample filters t, partitions it against removed on sampleCol
// and draws up to n rows from each side with seedGood and seedBad. An empty
// sampleCol means the resolved key of t. Partitions are always computed on the
// filtered table. Each returned side is in table order (see Sample).
func PartitionAndSample(t *table.Table, removed map[string]struct{}, sampleCol string, n int, seedGood, seedBad uint64, opts ...Option) (good, bad *table.Table, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if sampleCol == "" {
		k, err := table.RequireKey(t)
		if err != nil {
			return nil, nil, err
		}
		if !k.ByName {
			o.logf("stage=sample key=%q fallback=first_column", k.Name)
		}
		sampleCol = k.Name
	}
	cur, err := table.Normalize(t, sampleCol)
	if err != nil {
		return nil, nil, err
	}

	for _, f := range o.filters {
		col := f.column
		if col == "" {
			if col, err = SpeciesColumn(cur); err != nil {
				return nil, nil, fmt.Errorf("species filter: %w", err)
			}
		}
		before := cur.Len()
		if cur, err = FilterEqual(cur, col, f.value); err != nil {
			return nil, nil, err
		}
		o.logf("stage=sample filter=%q value=%q rows=%d->%d", col, f.value, before, cur.Len())
		if cur.IsEmpty() {
			o.logf("stage=sample warning: filter %s=%q left no rows", col, f.value)
		}
	}

	g, b, err := Partition(cur, removed, sampleCol)
	if err != nil {
		return nil, nil, err
	}
	o.logf("stage=sample good=%d removed=%d n=%d", g.Len(), b.Len(), n)

	good = Sample(g, n, seedGood)
	bad = Sample(b, n, seedBad)
	if good.Len() < n || bad.Len() < n {
		o.logf("stage=sample sampled good=%d removed=%d (fewer rows than requested)", good.Len(), bad.Len())
	}
	return good, bad, nil
}
