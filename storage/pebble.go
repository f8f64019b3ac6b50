package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
)

// PebbleStore keeps tables in a single pebble database, one key per row.
// Keys are "r/" + table name + "/" + big-endian row ID so a table's rows
// are contiguous and iterate in insertion order; values are JSON-encoded
// rows. Note JSON round-trips integers back as float64.
type PebbleStore struct {
	db   *pebble.DB
	path string

	mu     sync.Mutex
	closed bool
}

// OpenPebbleStore opens (creating if needed) a pebble-backed store.
func OpenPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble store at %s: %w", path, err)
	}
	return &PebbleStore{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *PebbleStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// CreateTable returns a table handle backed by this store.
func (s *PebbleStore) CreateTable(name string, columns []string) *PebbleTable {
	return &PebbleTable{
		store:   s,
		name:    name,
		columns: append([]string(nil), columns...),
	}
}

// PebbleTable is one table inside a PebbleStore.
type PebbleTable struct {
	store   *PebbleStore
	name    string
	columns []string

	mu     sync.Mutex
	nextID uint64
	count  int64
}

// Name returns the table name.
func (t *PebbleTable) Name() string {
	return t.name
}

// Columns returns the table's column names.
func (t *PebbleTable) Columns() []string {
	return append([]string(nil), t.columns...)
}

// RowCount returns the number of rows inserted through this handle.
func (t *PebbleTable) RowCount() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

func (t *PebbleTable) keyPrefix() []byte {
	return []byte("r/" + t.name + "/")
}

func (t *PebbleTable) rowKey(id uint64) []byte {
	prefix := t.keyPrefix()
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], id)
	return key
}

// Insert appends a row.
func (t *PebbleTable) Insert(row Row) error {
	value, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode row for table %s: %w", t.name, err)
	}

	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.mu.Unlock()

	if err := t.store.db.Set(t.rowKey(id), value, pebble.Sync); err != nil {
		return fmt.Errorf("write row to table %s: %w", t.name, err)
	}

	t.mu.Lock()
	t.count++
	t.mu.Unlock()
	return nil
}

// InsertAll appends every row in order.
func (t *PebbleTable) InsertAll(rows []Row) error {
	for _, row := range rows {
		if err := t.Insert(row); err != nil {
			return err
		}
	}
	return nil
}

// Scan streams rows in insertion order.
func (t *PebbleTable) Scan(ctx context.Context, batchSize int, fn func(rows []Row) error) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	prefix := t.keyPrefix()
	upper := append(append([]byte(nil), prefix...), 0xff)
	iter, err := t.store.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upper,
	})
	if err != nil {
		return fmt.Errorf("scan table %s: %w", t.name, err)
	}
	defer iter.Close()

	batch := make([]Row, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		batch = make([]Row, 0, batchSize)
		return nil
	}

	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var row Row
		if err := json.Unmarshal(iter.Value(), &row); err != nil {
			return fmt.Errorf("decode row in table %s: %w", t.name, err)
		}
		batch = append(batch, row)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("scan table %s: %w", t.name, err)
	}
	return flush()
}
