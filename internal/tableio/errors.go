package tableio

import (
	"errors"
	"fmt"
)

// Kind classifies file failures.
type Kind int

const (
	KindIO Kind = iota
	KindNotFound
	KindEmpty
	KindParse
)

var (
	ErrNotFound = errors.New("file not found")
	ErrEmpty    = errors.New("empty file")
	ErrParse    = errors.New("failed to parse file")
	ErrIO       = errors.New("file i/o error")
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindEmpty:
		return "empty"
	case KindParse:
		return "parse"
	default:
		return "io"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindEmpty:
		return ErrEmpty
	case KindParse:
		return ErrParse
	default:
		return ErrIO
	}
}

// FileError reports a failed read or write of Path.
//
// errors.Is matches both the Kind sentinel and the wrapped cause.
type FileError struct {
	Op   string // "read", "write"
	Path string
	Kind Kind
	Err  error
}

func (e *FileError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind.sentinel())
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind.sentinel(), e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

func (e *FileError) Is(target error) bool { return target == e.Kind.sentinel() }

func fileErr(op, path string, kind Kind, err error) error {
	return &FileError{Op: op, Path: path, Kind: kind, Err: err}
}
