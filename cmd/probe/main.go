// Command probe inspects a QC table before it is merged: which column is
// used as the sample identifier (and whether it was found by name or by the
// first-column fallback), repeated or blank identifiers, and the inferred
// type, null count and cardinality of every column.
//
// Output modes
//
//   - Default mode: prints a human-readable report to stdout.
//   - JSON mode (-json): prints the report as one JSON object.
//
// With -strict the command exits 1 when identifiers repeat or are blank, so
// it can gate a pipeline before qc_merge runs.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"qcmeta/internal/probe"
	"qcmeta/internal/table"
	"qcmeta/internal/tableio"
)

type appDeps struct {
	read      func(path string, opt tableio.ReadOptions) (*table.Table, error)
	delimiter func(path string) (rune, error)
}

func defaultDeps() appDeps {
	return appDeps{read: tableio.Read, delimiter: tableio.Delimiter}
}

func main() {
	os.Exit(runMain(os.Args[1:], os.Stdout, os.Stderr, defaultDeps()))
}

// jsonReport is the -json rendering of probe.Report.
type jsonReport struct {
	Source     string               `json:"source"`
	Delimiter  string               `json:"delimiter"`
	Rows       int                  `json:"rows"`
	Key        string               `json:"key"`
	KeyByName  bool                 `json:"key_by_name"`
	EmptyIDs   int                  `json:"empty_ids"`
	Duplicates map[string]int       `json:"duplicates"`
	Columns    []probe.ColumnReport `json:"columns"`
}

func runMain(args []string, stdout, stderr io.Writer, deps appDeps) int {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		flagIn     = fs.String("in", "", "delimited table to inspect (.csv, .tsv, optionally .gz)")
		flagComma  = fs.String("comma", "", `field separator; empty picks by extension or content ("\t" or "tab" for TAB)`)
		flagJSON   = fs.Bool("json", false, "print the report as JSON")
		flagPretty = fs.Bool("pretty", true, "indent JSON output")
		flagStrict = fs.Bool("strict", false, "exit 1 when identifiers repeat or are blank")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*flagIn) == "" {
		fmt.Fprintln(stderr, "missing -in")
		fs.Usage()
		return 2
	}

	comma, err := parseComma(*flagComma)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	t, err := deps.read(*flagIn, tableio.ReadOptions{Comma: comma})
	if err != nil {
		fmt.Fprintf(stderr, "probe: %v\n", err)
		return 1
	}
	if comma == 0 {
		if comma, err = deps.delimiter(*flagIn); err != nil {
			fmt.Fprintf(stderr, "probe: %v\n", err)
			return 1
		}
	}

	rep := probe.Inspect(t)
	if *flagJSON {
		out := jsonReport{
			Source:     *flagIn,
			Delimiter:  probe.DelimiterName(comma),
			Rows:       rep.Rows,
			Key:        rep.Key.Name,
			KeyByName:  rep.Key.ByName,
			EmptyIDs:   rep.EmptyIDs,
			Duplicates: rep.DuplicateCounts,
			Columns:    rep.Columns,
		}
		enc := json.NewEncoder(stdout)
		if *flagPretty {
			enc.SetIndent("", "  ")
		}
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(stderr, "encode report: %v\n", err)
			return 1
		}
	} else if err := rep.Render(stdout, *flagIn, probe.DelimiterName(comma)); err != nil {
		fmt.Fprintf(stderr, "render report: %v\n", err)
		return 1
	}

	if *flagStrict && (!rep.Unique() || rep.EmptyIDs > 0) {
		fmt.Fprintf(stderr, "probe: %d duplicate and %d blank identifiers in %s\n", len(rep.Duplicates), rep.EmptyIDs, *flagIn)
		return 1
	}
	return 0
}

func parseComma(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("-comma must be a single character, got %q", s)
	}
	return r[0], nil
}
