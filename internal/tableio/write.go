package tableio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"qcmeta/internal/config"
	"qcmeta/internal/table"
)

// WriteOptions controls serialization. A zero Comma picks by extension,
// defaulting to TAB.
type WriteOptions struct {
	Comma rune
}

// WriteOptionsFrom maps output config options ("comma").
func WriteOptionsFrom(o config.Options) WriteOptions {
	return WriteOptions{Comma: o.Rune("comma", 0)}
}

// Written confirms a completed write.
type Written struct {
	Path    string
	Rows    int
	Columns int
}

func (w Written) String() string {
	return fmt.Sprintf("wrote %d rows and %d columns to %s", w.Rows, w.Columns, w.Path)
}

// Write serializes t to path with a header row and no index column. Parent
// directories are created as needed. A ".gz" suffix gzip-compresses the
// output. The file is replaced atomically, so a failed write leaves any
// previous file in place.
func Write(path string, t *table.Table, opt WriteOptions) (Written, error) {
	if t == nil {
		t = table.Empty()
	}
	comma := opt.Comma
	if comma == 0 {
		comma = '\t'
		if strings.HasSuffix(strings.TrimSuffix(strings.ToLower(path), ".gz"), ".csv") {
			comma = ','
		}
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Comma = comma
	if err := cw.Write(t.Columns); err != nil {
		return Written{}, fileErr("write", path, KindIO, err)
	}
	rec := make([]string, t.Width())
	for _, r := range t.Rows {
		for i, v := range r {
			rec[i] = table.FormatValue(v)
		}
		if err := cw.Write(rec); err != nil {
			return Written{}, fileErr("write", path, KindIO, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return Written{}, fileErr("write", path, KindIO, err)
	}

	data := buf.Bytes()
	if strings.EqualFold(filepath.Ext(path), ".gz") {
		var zbuf bytes.Buffer
		zw := gzip.NewWriter(&zbuf)
		if _, err := zw.Write(data); err != nil {
			return Written{}, fileErr("write", path, KindIO, err)
		}
		if err := zw.Close(); err != nil {
			return Written{}, fileErr("write", path, KindIO, err)
		}
		data = zbuf.Bytes()
	}

	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return Written{}, fileErr("write", path, KindIO, err)
	}
	if err := writeAtomic(path, data); err != nil {
		return Written{}, fileErr("write", path, KindIO, err)
	}
	return Written{Path: path, Rows: t.Len(), Columns: t.Width()}, nil
}

// EnsureDir creates dir and its parents. An existing directory is not an error.
func EnsureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func writeAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
