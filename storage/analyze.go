package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/guileen/planlite/catalog"
	"github.com/guileen/planlite/plan"
)

// histogramBuckets is the target bucket count for numeric histograms.
const histogramBuckets = 10

// Analyze scans a table once and derives the statistics the optimizer's
// cost model consumes: row count, per-column distinct/null counts, min/max
// and an equi-depth histogram for numeric columns.
func Analyze(ctx context.Context, t Table) (*catalog.TableStatistics, error) {
	type columnAccum struct {
		distinct map[Value]struct{}
		nulls    int64
		min      Value
		max      Value
		numeric  []float64
	}

	accums := make(map[string]*columnAccum)
	for _, col := range t.Columns() {
		accums[col] = &columnAccum{distinct: make(map[Value]struct{})}
	}

	var rowCount int64
	err := t.Scan(ctx, DefaultBatchSize, func(rows []Row) error {
		rowCount += int64(len(rows))
		for _, row := range rows {
			for col, acc := range accums {
				v, ok := row[col]
				if !ok || v == nil {
					acc.nulls++
					continue
				}
				acc.distinct[v] = struct{}{}
				if acc.min == nil {
					acc.min, acc.max = v, v
				} else {
					if cmp, ok := Compare(v, acc.min); ok && cmp < 0 {
						acc.min = v
					}
					if cmp, ok := Compare(v, acc.max); ok && cmp > 0 {
						acc.max = v
					}
				}
				if f, ok := AsFloat(v); ok {
					acc.numeric = append(acc.numeric, f)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("analyze table %s: %w", t.Name(), err)
	}

	stats := &catalog.TableStatistics{
		RowCount:    rowCount,
		ColumnStats: make(map[string]*catalog.ColumnStatistics, len(accums)),
	}
	for col, acc := range accums {
		colStats := &catalog.ColumnStatistics{
			DistinctCount: int64(len(acc.distinct)),
			NullCount:     acc.nulls,
			Min:           valueLiteral(acc.min),
			Max:           valueLiteral(acc.max),
		}
		if len(acc.numeric) > 0 {
			colStats.Histogram = buildHistogram(acc.numeric)
		}
		stats.ColumnStats[col] = colStats
	}
	return stats, nil
}

// buildHistogram derives an equi-depth histogram from the observed numeric
// values of one column.
func buildHistogram(values []float64) []catalog.Bucket {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	n := len(sorted)
	buckets := histogramBuckets
	if buckets > n {
		buckets = n
	}
	depth := (n + buckets - 1) / buckets

	out := make([]catalog.Bucket, 0, buckets)
	for start := 0; start < n; start += depth {
		end := start + depth
		if end > n {
			end = n
		}
		out = append(out, catalog.Bucket{
			UpperBound: sorted[end-1],
			Fraction:   float64(end-start) / float64(n),
		})
	}
	return out
}

// valueLiteral converts a stored value into a plan literal, or nil for
// values literals cannot represent.
func valueLiteral(v Value) *plan.Literal {
	var lit plan.Literal
	switch x := v.(type) {
	case nil:
		return nil
	case int64:
		lit = plan.IntLit(x)
	case int:
		lit = plan.IntLit(int64(x))
	case float64:
		lit = plan.FloatLit(x)
	case string:
		lit = plan.StringLit(x)
	case bool:
		lit = plan.BoolLit(x)
	default:
		return nil
	}
	return &lit
}
