package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPebbleStore(t *testing.T) *PebbleStore {
	t.Helper()
	store, err := OpenPebbleStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPebbleTableInsertAndScan(t *testing.T) {
	store := setupPebbleStore(t)
	table := store.CreateTable("users", []string{"id", "name"})

	require.NoError(t, table.InsertAll([]Row{
		{"id": int64(1), "name": "ada"},
		{"id": int64(2), "name": "bob"},
	}))
	assert.Equal(t, int64(2), table.RowCount())

	var got []Row
	err := table.Scan(context.Background(), 0, func(rows []Row) error {
		got = append(got, rows...)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	// JSON round-trips numbers as float64.
	assert.Equal(t, float64(1), got[0]["id"])
	assert.Equal(t, "ada", got[0]["name"])
	assert.Equal(t, "bob", got[1]["name"])
}

func TestPebbleTablesAreIsolated(t *testing.T) {
	store := setupPebbleStore(t)
	users := store.CreateTable("users", []string{"name"})
	orders := store.CreateTable("orders", []string{"amount"})

	require.NoError(t, users.Insert(Row{"name": "ada"}))
	require.NoError(t, orders.Insert(Row{"amount": float64(10)}))
	require.NoError(t, orders.Insert(Row{"amount": float64(20)}))

	count := 0
	err := users.Scan(context.Background(), 0, func(rows []Row) error {
		count += len(rows)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count, "users scan must not see orders rows")
}

func TestPebbleScanPreservesInsertionOrder(t *testing.T) {
	store := setupPebbleStore(t)
	table := store.CreateTable("nums", []string{"n"})

	for i := 0; i < 300; i++ {
		require.NoError(t, table.Insert(Row{"n": float64(i)}))
	}

	var got []float64
	err := table.Scan(context.Background(), 64, func(rows []Row) error {
		for _, row := range rows {
			got = append(got, row["n"].(float64))
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 300)
	for i, n := range got {
		require.Equal(t, float64(i), n)
	}
}

func TestPebbleScanHonorsContext(t *testing.T) {
	store := setupPebbleStore(t)
	table := store.CreateTable("nums", []string{"n"})
	require.NoError(t, table.Insert(Row{"n": float64(1)}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := table.Scan(ctx, 1, func(rows []Row) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPebbleStoreCloseIsIdempotent(t *testing.T) {
	store, err := OpenPebbleStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
