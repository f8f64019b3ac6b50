package storage

import (
	"context"
	"fmt"
	"sync"
)

// Value is a single column value: int64, float64, string, bool or nil.
type Value = interface{}

// Row maps column names to values.
type Row = map[string]Value

// DefaultBatchSize is the number of rows a scan yields per callback when
// the caller passes a non-positive batch size.
const DefaultBatchSize = 1024

// Table is a scannable base relation.
type Table interface {
	Name() string
	Columns() []string
	RowCount() int64

	// Scan streams the table in row batches of at most batchSize rows,
	// stopping early when fn or the context reports an error.
	Scan(ctx context.Context, batchSize int, fn func(rows []Row) error) error
}

// Registry is a thread-safe name-to-table catalog.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]Table
}

// NewRegistry creates an empty table registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]Table)}
}

// Register adds a table, failing on duplicate names.
func (r *Registry) Register(t Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tables[t.Name()]; exists {
		return fmt.Errorf("table %s already registered", t.Name())
	}
	r.tables[t.Name()] = t
	return nil
}

// Table looks up a table by name.
func (r *Registry) Table(name string) (Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tables[name]
	return t, ok
}
