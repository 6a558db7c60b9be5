// Package probe inspects a QC table before it is merged or exported: which
// column holds the sample identifier, whether identifiers repeat or are
// missing, and what storage type each column would get.
//
// Inspection never fails; a table without columns produces a report with an
// invalid key.
package probe

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"qcmeta/internal/table"
)

// maxListed bounds the duplicate identifiers named in a rendered report.
const maxListed = 10

// ColumnReport describes one column.
type ColumnReport struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	Nulls    int        `json:"nulls"`
	Distinct int        `json:"distinct"`
}

// Report summarizes a table.
type Report struct {
	Rows    int
	Columns []ColumnReport

	Key table.Key

	// Duplicates lists identifiers seen more than once, sorted, with their
	// occurrence counts in DuplicateCounts.
	Duplicates      []string
	DuplicateCounts map[string]int

	// EmptyIDs counts rows whose identifier is null or blank.
	EmptyIDs int
}

// Unique reports whether every non-empty identifier occurs once.
func (r Report) Unique() bool { return len(r.Duplicates) == 0 }

// Inspect builds a Report for t.
func Inspect(t *table.Table) Report {
	rep := Report{
		Rows:            t.Len(),
		Key:             table.ResolveKey(t),
		DuplicateCounts: map[string]int{},
	}

	types := InferColumnTypes(t)
	rep.Columns = make([]ColumnReport, t.Width())
	for i, name := range t.Columns {
		distinct := map[string]struct{}{}
		nulls := 0
		for _, r := range t.Rows {
			if r[i] == nil {
				nulls++
				continue
			}
			distinct[table.FormatValue(r[i])] = struct{}{}
		}
		rep.Columns[i] = ColumnReport{Name: name, Type: types[i], Nulls: nulls, Distinct: len(distinct)}
	}

	if !rep.Key.Valid() {
		return rep
	}
	counts := map[string]int{}
	for _, r := range t.Rows {
		id := table.NormalizeKey(r[rep.Key.Index])
		if id == "" {
			rep.EmptyIDs++
			continue
		}
		counts[id]++
	}
	for id, n := range counts {
		if n > 1 {
			rep.Duplicates = append(rep.Duplicates, id)
			rep.DuplicateCounts[id] = n
		}
	}
	sort.Strings(rep.Duplicates)
	return rep
}

// Render writes a human-readable report. delimiter names the separator the
// table was read with; it is informational only and may be empty.
func (r Report) Render(w io.Writer, source, delimiter string) error {
	var b strings.Builder
	if source != "" {
		fmt.Fprintf(&b, "source: %s\n", source)
	}
	if delimiter != "" {
		fmt.Fprintf(&b, "delimiter: %s\n", delimiter)
	}
	fmt.Fprintf(&b, "rows: %d\ncolumns: %d\n", r.Rows, len(r.Columns))
	fmt.Fprintf(&b, "sample key: %s\n", r.Key)
	fmt.Fprintf(&b, "empty identifiers: %d\n", r.EmptyIDs)
	if r.Unique() {
		b.WriteString("duplicate identifiers: 0\n")
	} else {
		fmt.Fprintf(&b, "duplicate identifiers: %d\n", len(r.Duplicates))
		for i, id := range r.Duplicates {
			if i == maxListed {
				fmt.Fprintf(&b, "  ... %d more\n", len(r.Duplicates)-maxListed)
				break
			}
			fmt.Fprintf(&b, "  %s x%d\n", id, r.DuplicateCounts[id])
		}
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\ncolumn\ttype\tnulls\tdistinct")
	for _, c := range r.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", c.Name, c.Type, c.Nulls, c.Distinct)
	}
	return tw.Flush()
}

// DelimiterName renders a delimiter rune for reports.
func DelimiterName(r rune) string {
	switch r {
	case '\t':
		return "tab"
	case 0:
		return ""
	default:
		return string(r)
	}
}
