// Package config defines the JSON configuration of the QC consolidation job
// and helpers shared by every stage binary.
//
// Relative input and output paths resolve against Pipeline.DataDir, whose
// layout mirrors the tool outputs:
//
//	<data_dir>/raw/assembly_stats/assembly-stats.tsv
//	<data_dir>/raw/qc_data/checkm2.tsv
//	<data_dir>/raw/qc_data/sylph.tsv
//	<data_dir>/raw/species_data/species_calls.tsv
//	<data_dir>/processed/merged_qc_data.tsv
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Default locations relative to the data directory.
const (
	DefaultDataDir      = "data"
	DefaultStatsPath    = "raw/assembly_stats/assembly-stats.tsv"
	DefaultCheckM2Path  = "raw/qc_data/checkm2.tsv"
	DefaultSylphPath    = "raw/qc_data/sylph.tsv"
	DefaultSpeciesPath  = "raw/species_data/species_calls.tsv"
	DefaultNoHQSetPath  = "raw/assembly_stats/assembly-stats.sampled.no_hqset.tsv"
	DefaultRemovedPath  = "raw/assembly_stats/hq_set.removed_samples.tsv"
	DefaultMergedPath   = "processed/merged_qc_data.tsv"
	DefaultSpeciesOut   = "processed/assembly-stats.with_species.tsv"
	DefaultSampledOut   = "processed/assembly-stats.sampled.tsv"
	DefaultStrippedOut  = "processed/assembly-stats.sampled.no_hqset.tsv"
	DefaultExtractedOut = "processed/hq_set.removed_samples.with_stats.tsv"
)

// Flag column styles for membership in the no_hqset table.
const (
	FlagIsNoHQSet = "is_no_hqset" // "true"/"false"
	FlagQC        = "qc"          // legacy "QC" column, "Pass"/"Fail"
)

// Pipeline is the top-level consolidation config.
type Pipeline struct {
	Job     string  `json:"job"`
	DataDir string  `json:"data_dir,omitempty"`
	Inputs  Inputs  `json:"inputs"`
	Output  Output  `json:"output"`
	Merge   Merge   `json:"merge"`
	Storage Storage `json:"storage"`
}

// Inputs lists the per-tool tables. A nil input was not configured.
type Inputs struct {
	Stats   *Input `json:"stats"`
	CheckM2 *Input `json:"checkm2,omitempty"`
	Sylph   *Input `json:"sylph,omitempty"`
	Species *Input `json:"species,omitempty"`
	NoHQSet *Input `json:"no_hqset,omitempty"`
}

// Input is one delimited file. Options are read by the table reader
// (comma, lazy_quotes, gzip).
type Input struct {
	Path     string  `json:"path"`
	Optional bool    `json:"optional,omitempty"`
	Options  Options `json:"options,omitempty"`
}

// Output is the consolidated table destination.
type Output struct {
	Path    string  `json:"path"`
	Options Options `json:"options,omitempty"`
}

// Merge tunes the fold.
type Merge struct {
	// DropDuplicateKey collapses differently named identifier columns.
	// Defaults to true when unset.
	DropDuplicateKey *bool  `json:"drop_duplicate_key,omitempty"`
	How              string `json:"how,omitempty"`
	FlagStyle        string `json:"no_hqset_flag,omitempty"`
}

// DropKey reports DropDuplicateKey with its default applied.
func (m Merge) DropKey() bool {
	if m.DropDuplicateKey == nil {
		return true
	}
	return *m.DropDuplicateKey
}

// Storage optionally exports the output table to a SQL backend.
type Storage struct {
	Kind string   `json:"kind,omitempty"`
	DB   DBConfig `json:"db"`
}

// DBConfig holds connection and target settings. DSN may reference
// environment variables as $VAR or ${VAR}.
type DBConfig struct {
	DSN       string `json:"dsn"`
	Table     string `json:"table"`
	BatchSize int    `json:"batch_size,omitempty"`

	// RowHash adds a row_hash dedupe column to the exported table.
	RowHash bool `json:"row_hash,omitempty"`
}

// Enabled reports whether an export was requested.
func (s Storage) Enabled() bool { return s.Kind != "" && s.Kind != "none" }

// ExpandedDSN returns the DSN with environment references expanded.
func (d DBConfig) ExpandedDSN() string { return os.ExpandEnv(d.DSN) }

// DefaultPipeline returns the conventional layout under dataDir: stats plus
// the three auxiliary tables, none of them optional.
func DefaultPipeline(dataDir string) Pipeline {
	if dataDir == "" {
		dataDir = DefaultDataDir
	}
	return Pipeline{
		Job:     "qc_merge",
		DataDir: dataDir,
		Inputs: Inputs{
			Stats:   &Input{Path: DefaultStatsPath},
			CheckM2: &Input{Path: DefaultCheckM2Path},
			Sylph:   &Input{Path: DefaultSylphPath},
			Species: &Input{Path: DefaultSpeciesPath},
		},
		Output: Output{Path: DefaultMergedPath},
	}
}

// Resolve joins a relative path onto DataDir. Absolute paths and an empty
// DataDir leave path unchanged.
func (p Pipeline) Resolve(path string) string {
	return ResolvePath(p.DataDir, path)
}

// ResolvePath joins path onto dir unless path is absolute or dir is empty.
func ResolvePath(dir, path string) string {
	if path == "" || dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// Decode parses a pipeline config, rejecting unknown fields.
func Decode(raw []byte) (Pipeline, error) {
	var p Pipeline
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode pipeline: %w", err)
	}
	return p, nil
}
