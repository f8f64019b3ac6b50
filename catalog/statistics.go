package catalog

import (
	"github.com/guileen/planlite/plan"
)

// Bucket is one bucket of an equi-depth histogram over a numeric column.
// Fraction is the share of non-null rows falling at or below UpperBound and
// above the previous bucket's bound.
type Bucket struct {
	UpperBound float64 `json:"upper_bound"`
	Fraction   float64 `json:"fraction"`
}

// ColumnStatistics holds per-column statistics used by the cost model.
type ColumnStatistics struct {
	DistinctCount int64         `json:"distinct_count"`
	NullCount     int64         `json:"null_count"`
	Min           *plan.Literal `json:"min,omitempty"`
	Max           *plan.Literal `json:"max,omitempty"`
	Histogram     []Bucket      `json:"histogram,omitempty"`
}

// TableStatistics holds per-table statistics used by the cost model.
type TableStatistics struct {
	RowCount    int64                        `json:"row_count"`
	ColumnStats map[string]*ColumnStatistics `json:"column_stats,omitempty"`
}

// Column returns statistics for a column, or nil when none were collected.
func (ts *TableStatistics) Column(name string) *ColumnStatistics {
	if ts == nil {
		return nil
	}
	return ts.ColumnStats[name]
}

// Provider supplies table statistics to the optimizer. Implementations must
// be safe for concurrent reads; the optimizer never writes through it.
type Provider interface {
	TableStatistics(table string) (*TableStatistics, bool)
}
