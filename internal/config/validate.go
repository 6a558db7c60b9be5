package config

import (
	"fmt"
	"sort"
	"strings"
)

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding of ValidatePipeline. Path is a JSON-style location
// such as "inputs.checkm2.path".
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string { return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message) }

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var (
	knownHows    = map[string]bool{"": true, "inner": true, "left": true, "right": true, "outer": true}
	knownKinds   = map[string]bool{"": true, "none": true, "sqlite": true, "postgres": true, "mssql": true}
	knownFlags   = map[string]bool{"": true, FlagIsNoHQSet: true, FlagQC: true}
	knownOptions = map[string]bool{"comma": true, "lazy_quotes": true, "gzip": true, "skip_header": true, "column": true}
)

// ValidatePipeline checks structural requirements only; file existence is
// checked when inputs are loaded.
func ValidatePipeline(p Pipeline) []Issue {
	var out []Issue
	add := func(sev Severity, path, format string, a ...any) {
		out = append(out, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, a...)})
	}

	if strings.TrimSpace(p.Job) == "" {
		add(SeverityWarning, "job", "empty job name; metrics use the binary name")
	}

	if p.Inputs.Stats == nil || strings.TrimSpace(p.Inputs.Stats.Path) == "" {
		add(SeverityError, "inputs.stats.path", "assembly stats input is required")
	} else if p.Inputs.Stats.Optional {
		add(SeverityError, "inputs.stats.optional", "the base table cannot be optional")
	}

	for name, in := range map[string]*Input{
		"checkm2":  p.Inputs.CheckM2,
		"sylph":    p.Inputs.Sylph,
		"species":  p.Inputs.Species,
		"no_hqset": p.Inputs.NoHQSet,
		"stats":    p.Inputs.Stats,
	} {
		if in == nil {
			continue
		}
		if name != "stats" && strings.TrimSpace(in.Path) == "" {
			add(SeverityError, "inputs."+name+".path", "path is empty; remove the input to skip it")
		}
		for k := range in.Options {
			if !knownOptions[k] {
				add(SeverityWarning, "inputs."+name+".options."+k, "unknown option")
			}
		}
		if s := in.Options.String("comma", ""); s != "" && in.Options.Rune("comma", 0) == 0 {
			add(SeverityError, "inputs."+name+".options.comma", "delimiter must be a single character, got %q", s)
		}
	}

	if strings.TrimSpace(p.Output.Path) == "" {
		add(SeverityError, "output.path", "output path is required")
	}

	if !knownHows[strings.ToLower(p.Merge.How)] {
		add(SeverityError, "merge.how", "unknown join kind %q (want inner|left|right|outer)", p.Merge.How)
	} else if h := strings.ToLower(p.Merge.How); h != "" && h != "left" {
		add(SeverityWarning, "merge.how", "join kind %q does not preserve every base row", h)
	}
	if !knownFlags[p.Merge.FlagStyle] {
		add(SeverityError, "merge.no_hqset_flag", "unknown flag style %q (want %s|%s)", p.Merge.FlagStyle, FlagIsNoHQSet, FlagQC)
	}

	kind := strings.ToLower(p.Storage.Kind)
	switch {
	case !knownKinds[kind]:
		add(SeverityError, "storage.kind", "unknown storage kind %q (want sqlite|postgres|mssql)", p.Storage.Kind)
	case p.Storage.Enabled():
		if strings.TrimSpace(p.Storage.DB.DSN) == "" {
			add(SeverityError, "storage.db.dsn", "dsn is required for storage kind %q", kind)
		}
		if strings.TrimSpace(p.Storage.DB.Table) == "" {
			add(SeverityError, "storage.db.table", "table is required for storage kind %q", kind)
		}
		if p.Storage.DB.BatchSize < 0 {
			add(SeverityError, "storage.db.batch_size", "batch size must be >= 0")
		}
	}

	// Inputs are visited in map order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
