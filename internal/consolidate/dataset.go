// Package consolidate assembles the per-sample QC table from assembly stats
// and the auxiliary tool outputs.
package consolidate

import (
	"errors"
	"fmt"

	"qcmeta/internal/config"
	"qcmeta/internal/table"
	"qcmeta/internal/tableio"
)

// Logger is the minimal logging interface used by this package.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// State records what happened when a dataset was loaded.
type State int

const (
	NotAttempted State = iota // not configured
	Loaded                    // read with at least one row
	Empty                     // file present, no data rows
	Missing                   // optional input whose file does not exist
)

func (s State) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Empty:
		return "empty"
	case Missing:
		return "missing"
	default:
		return "not_attempted"
	}
}

// Dataset names.
const (
	NameStats   = "stats"
	NameCheckM2 = "checkm2"
	NameSylph   = "sylph"
	NameSpecies = "species"
	NameNoHQSet = "no_hqset"
)

// Dataset is one loaded input. Table is nil unless State is Loaded or Empty.
type Dataset struct {
	Name  string
	Path  string
	State State
	Table *table.Table
}

// Datasets is the typed bundle consumed by Run.
type Datasets struct {
	Stats   Dataset
	CheckM2 Dataset
	Sylph   Dataset
	Species Dataset
	NoHQSet Dataset
}

// Auxiliary returns the tables folded onto stats, in merge order.
func (d Datasets) Auxiliary() []Dataset {
	return []Dataset{d.CheckM2, d.Sylph, d.Species}
}

// ReadFunc reads one delimited table.
type ReadFunc func(path string, opt tableio.ReadOptions) (*table.Table, error)

// LoadOptions configures Load. The zero value reads with tableio.Read and
// discards log output.
type LoadOptions struct {
	Logger Logger
	Read   ReadFunc
}

func (o LoadOptions) logf(format string, v ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, v...)
	}
}

// Load reads every configured input of cfg. Stats must exist and have rows.
// A configured auxiliary whose file is missing is fatal unless the input is
// optional.
func Load(cfg config.Pipeline, opts LoadOptions) (Datasets, error) {
	if opts.Read == nil {
		opts.Read = tableio.Read
	}

	var ds Datasets
	var err error

	if cfg.Inputs.Stats == nil {
		return ds, fmt.Errorf("load %s: not configured", NameStats)
	}
	if ds.Stats, err = loadOne(cfg, NameStats, cfg.Inputs.Stats, opts); err != nil {
		return ds, err
	}
	if ds.Stats.State != Loaded {
		return ds, fmt.Errorf("load %s: %w", NameStats, tableio.ErrEmpty)
	}

	aux := []struct {
		name string
		in   *config.Input
		dst  *Dataset
	}{
		{NameCheckM2, cfg.Inputs.CheckM2, &ds.CheckM2},
		{NameSylph, cfg.Inputs.Sylph, &ds.Sylph},
		{NameSpecies, cfg.Inputs.Species, &ds.Species},
		{NameNoHQSet, cfg.Inputs.NoHQSet, &ds.NoHQSet},
	}
	for _, a := range aux {
		if a.in == nil {
			*a.dst = Dataset{Name: a.name, State: NotAttempted}
			continue
		}
		if *a.dst, err = loadOne(cfg, a.name, a.in, opts); err != nil {
			return ds, err
		}
	}
	return ds, nil
}

func loadOne(cfg config.Pipeline, name string, in *config.Input, opts LoadOptions) (Dataset, error) {
	path := cfg.Resolve(in.Path)
	d := Dataset{Name: name, Path: path}

	t, err := opts.Read(path, tableio.ReadOptionsFrom(in.Options))
	switch {
	case err == nil && t.IsEmpty():
		d.State, d.Table = Empty, t
		opts.logf("stage=load dataset=%s path=%s rows=0", name, path)
	case err == nil:
		d.State, d.Table = Loaded, t
		opts.logf("stage=load dataset=%s path=%s rows=%d columns=%d", name, path, t.Len(), t.Width())
	case errors.Is(err, tableio.ErrEmpty):
		d.State = Empty
		opts.logf("stage=load dataset=%s path=%s rows=0", name, path)
	case errors.Is(err, tableio.ErrNotFound) && in.Optional:
		d.State = Missing
		opts.logf("warning: %s data not found at %s", name, path)
	default:
		return d, fmt.Errorf("load %s: %w", name, err)
	}
	return d, nil
}
