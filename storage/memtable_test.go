package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemTableInsertAndScan(t *testing.T) {
	table := NewMemTable("users", []string{"id", "name"})
	table.InsertAll([]Row{
		{"id": int64(1), "name": "ada"},
		{"id": int64(2), "name": "bob"},
		{"id": int64(3), "name": "eve"},
	})

	assert.Equal(t, "users", table.Name())
	assert.Equal(t, []string{"id", "name"}, table.Columns())
	assert.Equal(t, int64(3), table.RowCount())

	var got []Row
	err := table.Scan(context.Background(), 2, func(rows []Row) error {
		got = append(got, rows...)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "ada", got[0]["name"])
	assert.Equal(t, "eve", got[2]["name"])
}

func TestMemTableScanBatches(t *testing.T) {
	table := NewMemTable("nums", []string{"n"})
	for i := 0; i < 10; i++ {
		table.Insert(Row{"n": int64(i)})
	}

	var batches []int
	err := table.Scan(context.Background(), 4, func(rows []Row) error {
		batches = append(batches, len(rows))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4, 2}, batches)
}

func TestMemTableInsertCopiesRow(t *testing.T) {
	table := NewMemTable("users", []string{"name"})
	row := Row{"name": "ada"}
	table.Insert(row)
	row["name"] = "mutated"

	err := table.Scan(context.Background(), 0, func(rows []Row) error {
		assert.Equal(t, "ada", rows[0]["name"])
		return nil
	})
	require.NoError(t, err)
}

func TestMemTableScanStopsOnCallbackError(t *testing.T) {
	table := NewMemTable("nums", []string{"n"})
	for i := 0; i < 5; i++ {
		table.Insert(Row{"n": int64(i)})
	}

	calls := 0
	err := table.Scan(context.Background(), 1, func(rows []Row) error {
		calls++
		return fmt.Errorf("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestMemTableScanHonorsContext(t *testing.T) {
	table := NewMemTable("nums", []string{"n"})
	table.Insert(Row{"n": int64(1)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := table.Scan(ctx, 1, func(rows []Row) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemTableConcurrentInsertAndScan(t *testing.T) {
	table := NewMemTable("nums", []string{"n"})

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				table.Insert(Row{"n": int64(i)})
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = table.Scan(context.Background(), 16, func(rows []Row) error { return nil })
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(200), table.RowCount())
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	users := NewMemTable("users", []string{"id"})

	require.NoError(t, reg.Register(users))
	assert.Error(t, reg.Register(NewMemTable("users", []string{"id"})))

	got, ok := reg.Table("users")
	require.True(t, ok)
	assert.Equal(t, "users", got.Name())

	_, ok = reg.Table("missing")
	assert.False(t, ok)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b Value
		want int
		ok   bool
	}{
		{int64(1), int64(2), -1, true},
		{int64(2), float64(2), 0, true},
		{float64(3.5), int64(3), 1, true},
		{"a", "b", -1, true},
		{"b", "b", 0, true},
		{false, true, -1, true},
		{true, true, 0, true},
		{"a", int64(1), 0, false},
		{int64(1), "a", 0, false},
	}
	for _, tt := range tests {
		got, ok := Compare(tt.a, tt.b)
		assert.Equal(t, tt.ok, ok, "%v vs %v", tt.a, tt.b)
		if ok {
			assert.Equal(t, tt.want, got, "%v vs %v", tt.a, tt.b)
		}
	}
}

func TestAsFloat(t *testing.T) {
	f, ok := AsFloat(int64(3))
	require.True(t, ok)
	assert.Equal(t, 3.0, f)

	f, ok = AsFloat(2.5)
	require.True(t, ok)
	assert.Equal(t, 2.5, f)

	_, ok = AsFloat("nope")
	assert.False(t, ok)

	_, ok = AsFloat(nil)
	assert.False(t, ok)
}
