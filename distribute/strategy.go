package distribute

import (
	"fmt"
	"hash/fnv"

	"github.com/guileen/planlite/storage"
)

// PartitioningStrategy decides which partition each base-table row belongs
// to. The set of strategies is closed: hash, range and round-robin.
type PartitioningStrategy interface {
	// PartitionCount returns the number of partitions the strategy
	// produces. Always at least one.
	PartitionCount() int

	// Partition assigns a row to a partition index in
	// [0, PartitionCount()). seq is the row's position in scan order,
	// which only round-robin consults.
	Partition(row storage.Row, seq int64) int

	partitioningStrategy()
}

// HashPartitioning routes rows by a hash of the named key columns, so
// equal keys always land on the same worker.
type HashPartitioning struct {
	Columns    []string
	Partitions int
}

func (h *HashPartitioning) PartitionCount() int {
	if h.Partitions < 1 {
		return 1
	}
	return h.Partitions
}

func (h *HashPartitioning) Partition(row storage.Row, _ int64) int {
	hash := fnv.New64a()
	for _, col := range h.Columns {
		v := row[col]
		if f, ok := storage.AsFloat(v); ok {
			fmt.Fprintf(hash, "f:%v\x00", f)
		} else {
			fmt.Fprintf(hash, "%T:%v\x00", v, v)
		}
	}
	return int(hash.Sum64() % uint64(h.PartitionCount()))
}

func (*HashPartitioning) partitioningStrategy() {}

// RangePartitioning routes numeric values of one column into partitions
// delimited by ascending upper bounds: partition i holds values below
// Bounds[i], and everything at or above the last bound (or non-numeric)
// goes to the final partition. len(Bounds)+1 partitions total.
type RangePartitioning struct {
	Column string
	Bounds []float64
}

func (r *RangePartitioning) PartitionCount() int {
	return len(r.Bounds) + 1
}

func (r *RangePartitioning) Partition(row storage.Row, _ int64) int {
	f, ok := storage.AsFloat(row[r.Column])
	if !ok {
		return len(r.Bounds)
	}
	for i, bound := range r.Bounds {
		if f < bound {
			return i
		}
	}
	return len(r.Bounds)
}

func (*RangePartitioning) partitioningStrategy() {}

// RoundRobinPartitioning deals rows out in scan order, ignoring their
// content.
type RoundRobinPartitioning struct {
	Partitions int
}

func (r *RoundRobinPartitioning) PartitionCount() int {
	if r.Partitions < 1 {
		return 1
	}
	return r.Partitions
}

func (r *RoundRobinPartitioning) Partition(_ storage.Row, seq int64) int {
	return int(seq % int64(r.PartitionCount()))
}

func (*RoundRobinPartitioning) partitioningStrategy() {}
