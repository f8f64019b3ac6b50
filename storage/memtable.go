package storage

import (
	"context"
	"sync"

	"github.com/google/btree"
)

type memItem struct {
	id  int64
	row Row
}

func (i memItem) Less(than btree.Item) bool {
	return i.id < than.(memItem).id
}

// MemTable is an in-memory table ordered by insertion ID.
type MemTable struct {
	name    string
	columns []string

	mu     sync.RWMutex
	tree   *btree.BTree
	nextID int64
}

// NewMemTable creates an empty in-memory table with the given columns.
func NewMemTable(name string, columns []string) *MemTable {
	return &MemTable{
		name:    name,
		columns: append([]string(nil), columns...),
		tree:    btree.New(32),
	}
}

// Name returns the table name.
func (t *MemTable) Name() string {
	return t.name
}

// Columns returns the table's column names.
func (t *MemTable) Columns() []string {
	return append([]string(nil), t.columns...)
}

// RowCount returns the number of stored rows.
func (t *MemTable) RowCount() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return int64(t.tree.Len())
}

// Insert appends a row. Missing columns read back as nil.
func (t *MemTable) Insert(row Row) {
	t.mu.Lock()
	defer t.mu.Unlock()

	stored := make(Row, len(row))
	for k, v := range row {
		stored[k] = v
	}
	t.tree.ReplaceOrInsert(memItem{id: t.nextID, row: stored})
	t.nextID++
}

// InsertAll appends every row in order.
func (t *MemTable) InsertAll(rows []Row) {
	for _, row := range rows {
		t.Insert(row)
	}
}

// Scan streams rows in insertion order.
func (t *MemTable) Scan(ctx context.Context, batchSize int, fn func(rows []Row) error) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	// Snapshot under the read lock so fn runs without holding it.
	t.mu.RLock()
	rows := make([]Row, 0, t.tree.Len())
	t.tree.Ascend(func(item btree.Item) bool {
		rows = append(rows, item.(memItem).row)
		return true
	})
	t.mu.RUnlock()

	for start := 0; start < len(rows); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := fn(rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}
