package probe

import (
	"bytes"
	"strings"
	"testing"

	"qcmeta/internal/table"
)

func TestInspect(t *testing.T) {
	t.Parallel()

	tb := table.New([]string{"id", "Sample", "value"},
		[]any{"a", "S1", "1"},
		[]any{"b", 2, nil},
		[]any{"c", "S1", "3"},
		[]any{"d", nil, "4"},
		[]any{"e", "2", "5"},
	)

	rep := Inspect(tb)
	if rep.Key.Name != "Sample" || !rep.Key.ByName {
		t.Fatalf("key=%v, want Sample by name", rep.Key)
	}
	if rep.Rows != 5 {
		t.Fatalf("rows=%d, want 5", rep.Rows)
	}
	if rep.EmptyIDs != 1 {
		t.Fatalf("empty ids=%d, want 1", rep.EmptyIDs)
	}
	if len(rep.Duplicates) != 2 || rep.Duplicates[0] != "2" || rep.Duplicates[1] != "S1" {
		t.Fatalf("duplicates=%v, want [2 S1]", rep.Duplicates)
	}
	if rep.DuplicateCounts["S1"] != 2 {
		t.Fatalf("S1 count=%d, want 2", rep.DuplicateCounts["S1"])
	}
	if rep.Unique() {
		t.Fatalf("Unique()=true, want false")
	}

	value := rep.Columns[2]
	if value.Type != TypeInteger || value.Nulls != 1 || value.Distinct != 4 {
		t.Fatalf("value column=%+v", value)
	}
}

func TestInspect_FallbackAndNoColumns(t *testing.T) {
	t.Parallel()

	rep := Inspect(table.New([]string{"id", "other"}, []any{"x", "1"}))
	if rep.Key.Name != "id" || rep.Key.ByName {
		t.Fatalf("key=%v, want id as fallback", rep.Key)
	}
	if !rep.Unique() {
		t.Fatalf("Unique()=false, want true")
	}

	rep = Inspect(table.Empty())
	if rep.Key.Valid() {
		t.Fatalf("key=%v, want invalid", rep.Key)
	}
}

func TestReport_Render(t *testing.T) {
	t.Parallel()

	tb := table.New([]string{"sample", "N50"},
		[]any{"S1", "10"},
		[]any{"S1", "20"},
	)
	var buf bytes.Buffer
	if err := Inspect(tb).Render(&buf, "stats.tsv", DelimiterName('\t')); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"source: stats.tsv",
		"delimiter: tab",
		"rows: 2",
		"sample key: sample (by name)",
		"duplicate identifiers: 1",
		"  S1 x2",
		"N50",
		"integer",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}
