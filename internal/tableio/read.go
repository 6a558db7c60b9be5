// Package tableio reads and writes delimited QC tables as whole files.
//
// Reading accepts plain or gzip-compressed input, strips byte order marks and
// picks the delimiter from an explicit option, the file extension, or by
// sniffing the content. The first row is the header. Cells are trimmed and
// empty cells become null.
//
// Every failure is a *FileError carrying one of ErrNotFound, ErrEmpty,
// ErrParse or ErrIO.
package tableio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/csimplestring/go-csv/detector"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"qcmeta/internal/config"
	"qcmeta/internal/table"
)

var gzipMagic = []byte{0x1f, 0x8b}

// ReadOptions controls parsing. The zero value picks the delimiter from the
// extension and falls back to content sniffing.
type ReadOptions struct {
	Comma      rune
	LazyQuotes bool
}

// ReadOptionsFrom maps per-input config options ("comma", "lazy_quotes").
func ReadOptionsFrom(o config.Options) ReadOptions {
	return ReadOptions{
		Comma:      o.Rune("comma", 0),
		LazyQuotes: o.Bool("lazy_quotes", false),
	}
}

// Read loads the whole delimited file at path.
//
// A file with no bytes, or only whitespace, fails with ErrEmpty. A header
// without data rows is a valid table with zero rows.
func Read(path string, opt ReadOptions) (*table.Table, error) {
	data, err := load(path)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fileErr("read", path, KindEmpty, nil)
	}

	comma := opt.Comma
	if comma == 0 {
		comma = delimiterFor(path, data)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = comma
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1

	recs, err := cr.ReadAll()
	if err != nil {
		return nil, fileErr("read", path, KindParse, err)
	}
	if len(recs) == 0 {
		return nil, fileErr("read", path, KindEmpty, nil)
	}

	header := headerNames(recs[0])
	out := table.Empty(header...)
	out.Rows = make([][]any, 0, len(recs)-1)
	for i, rec := range recs[1:] {
		if len(rec) > len(header) {
			return nil, fileErr("read", path, KindParse,
				fmt.Errorf("line %d: expected %d fields, saw %d", i+2, len(header), len(rec)))
		}
		row := make([]any, len(header))
		for j, v := range rec {
			if v = strings.TrimSpace(v); v != "" {
				row[j] = v
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// load reads path fully, decompressing gzip and decoding a UTF-8 or UTF-16
// byte order mark into plain UTF-8.
func load(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fileErr("read", path, KindNotFound, err)
		}
		return nil, fileErr("read", path, KindIO, err)
	}

	var r io.Reader = bytes.NewReader(raw)
	if bytes.HasPrefix(raw, gzipMagic) {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fileErr("read", path, KindParse, fmt.Errorf("gzip: %w", err))
		}
		defer zr.Close()
		r = zr
	} else if strings.EqualFold(filepath.Ext(path), ".gz") && len(raw) > 0 {
		return nil, fileErr("read", path, KindParse, errors.New("gzip: missing header"))
	}

	data, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	if err != nil {
		return nil, fileErr("read", path, KindParse, err)
	}
	return data, nil
}

// delimiterFor picks the delimiter from the extension, ignoring a trailing
// .gz, else sniffs the content.
func delimiterFor(path string, data []byte) rune {
	name := strings.ToLower(path)
	name = strings.TrimSuffix(name, ".gz")
	switch filepath.Ext(name) {
	case ".csv":
		return ','
	case ".tsv", ".tab", ".txt":
		return '\t'
	}
	return sniff(data)
}

// sniff returns the most likely delimiter of data, defaulting to TAB.
func sniff(data []byte) rune {
	d := detector.New()
	found := d.DetectDelimiter(bytes.NewReader(data), '"')
	for _, s := range found {
		if len(s) == 0 {
			continue
		}
		switch r := rune(s[0]); r {
		case ',', '\t', ';', '|':
			return r
		}
	}
	return '\t'
}

// headerNames trims names, strips a leftover BOM, names blank columns
// "Unnamed: i" and suffixes repeated names with ".n".
func headerNames(rec []string) []string {
	out := make([]string, len(rec))
	seen := make(map[string]int, len(rec))
	for i, h := range rec {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[h]; dup {
			seen[h] = n + 1
			h = fmt.Sprintf("%s.%d", h, n+1)
		} else {
			seen[h] = 0
		}
		out[i] = h
	}
	return out
}

// Delimiter returns the delimiter Read would use for path when no explicit
// Comma is set.
func Delimiter(path string) (rune, error) {
	data, err := load(path)
	if err != nil {
		return 0, err
	}
	return delimiterFor(path, data), nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
