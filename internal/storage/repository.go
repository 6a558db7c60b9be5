// Package storage loads finished QC tables into a SQL database.
//
// Backends register a factory under a kind ("sqlite", "postgres", "mssql")
// from their init functions; import qcmeta/internal/storage/all to link every
// backend. New picks the factory by Config.Kind.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// DefaultBatchSize is the number of rows per insert batch when
// Config.BatchSize is not set.
const DefaultBatchSize = 500

// Config selects and configures a backend.
type Config struct {
	Kind      string
	DSN       string
	BatchSize int
}

// TableRepository is the contract every backend implements.
//
// EnsureTable creates the table when it does not exist and leaves an
// existing table untouched. InsertRows appends rows whose values are aligned
// with columns and returns the number of rows written.
type TableRepository interface {
	EnsureTable(ctx context.Context, spec TableSpec) error
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	Close()
}

// Factory opens a repository for cfg.
type Factory func(ctx context.Context, cfg Config) (TableRepository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. It panics on an empty kind,
// a nil factory or a second registration of the same kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// Kinds lists the registered backend kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens a repository of cfg.Kind.
func New(ctx context.Context, cfg Config) (TableRepository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("storage: unsupported kind=%s (registered: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}
