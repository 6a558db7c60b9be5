package tableio

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strings"
)

// SampleSet is a set of normalized sample identifiers.
type SampleSet map[string]struct{}

// Has reports membership.
func (s SampleSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in lexical order.
func (s SampleSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SampleSetOptions selects the identifier column of a reference file.
type SampleSetOptions struct {
	Column     int  // 0-based field index
	SkipHeader bool // drop the first record
	Comma      rune // field separator; 0 picks by extension or content like Read
}

// DefaultSampleSetOptions reads the first column and skips one header line.
// The delimiter is detected.
func DefaultSampleSetOptions() SampleSetOptions {
	return SampleSetOptions{Column: 0, SkipHeader: true}
}

// ReadSampleSet loads identifiers from one column of a delimited file.
// Blank lines, records without the configured column and empty identifiers
// are skipped. Other columns are ignored. An empty file yields an empty set.
func ReadSampleSet(path string, opt SampleSetOptions) (SampleSet, error) {
	data, err := load(path)
	if err != nil {
		return nil, err
	}
	set := SampleSet{}
	if len(bytes.TrimSpace(data)) == 0 {
		return set, nil
	}

	comma := opt.Comma
	if comma == 0 {
		comma = delimiterFor(path, data)
	}
	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = comma
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	recs, err := cr.ReadAll()
	if err != nil {
		return nil, fileErr("read", path, KindParse, err)
	}
	if opt.SkipHeader && len(recs) > 0 {
		recs = recs[1:]
	}
	for _, rec := range recs {
		if opt.Column < 0 || opt.Column >= len(rec) {
			continue
		}
		if id := strings.TrimSpace(rec[opt.Column]); id != "" {
			set[id] = struct{}{}
		}
	}
	return set, nil
}
