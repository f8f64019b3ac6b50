package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guileen/planlite/plan"
)

func TestAnalyzeBasicStatistics(t *testing.T) {
	table := NewMemTable("users", []string{"id", "city", "age"})
	table.InsertAll([]Row{
		{"id": int64(1), "city": "oslo", "age": int64(30)},
		{"id": int64(2), "city": "oslo", "age": int64(40)},
		{"id": int64(3), "city": "bergen", "age": nil},
	})

	stats, err := Analyze(context.Background(), table)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.RowCount)

	id := stats.Column("id")
	require.NotNil(t, id)
	assert.Equal(t, int64(3), id.DistinctCount)
	assert.Equal(t, int64(0), id.NullCount)
	assert.Equal(t, plan.IntLit(1), *id.Min)
	assert.Equal(t, plan.IntLit(3), *id.Max)

	city := stats.Column("city")
	require.NotNil(t, city)
	assert.Equal(t, int64(2), city.DistinctCount)
	assert.Equal(t, plan.StringLit("bergen"), *city.Min)
	assert.Equal(t, plan.StringLit("oslo"), *city.Max)
	assert.Empty(t, city.Histogram, "non-numeric columns get no histogram")

	age := stats.Column("age")
	require.NotNil(t, age)
	assert.Equal(t, int64(1), age.NullCount)
	assert.Equal(t, int64(2), age.DistinctCount)
}

func TestAnalyzeHistogramIsEquiDepth(t *testing.T) {
	table := NewMemTable("nums", []string{"n"})
	for i := 1; i <= 100; i++ {
		table.Insert(Row{"n": int64(i)})
	}

	stats, err := Analyze(context.Background(), table)
	require.NoError(t, err)

	hist := stats.Column("n").Histogram
	require.Len(t, hist, 10)

	total := 0.0
	prev := 0.0
	for _, b := range hist {
		assert.InDelta(t, 0.1, b.Fraction, 1e-9, "equi-depth buckets")
		assert.Greater(t, b.UpperBound, prev, "bounds ascend")
		prev = b.UpperBound
		total += b.Fraction
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.Equal(t, 100.0, hist[9].UpperBound)
}

func TestAnalyzeFewerValuesThanBuckets(t *testing.T) {
	table := NewMemTable("nums", []string{"n"})
	table.InsertAll([]Row{{"n": int64(5)}, {"n": int64(7)}, {"n": int64(9)}})

	stats, err := Analyze(context.Background(), table)
	require.NoError(t, err)

	hist := stats.Column("n").Histogram
	require.Len(t, hist, 3)
	assert.Equal(t, 5.0, hist[0].UpperBound)
	assert.Equal(t, 9.0, hist[2].UpperBound)
}

func TestAnalyzeEmptyTable(t *testing.T) {
	table := NewMemTable("empty", []string{"a"})

	stats, err := Analyze(context.Background(), table)
	require.NoError(t, err)

	assert.Equal(t, int64(0), stats.RowCount)
	col := stats.Column("a")
	require.NotNil(t, col)
	assert.Equal(t, int64(0), col.DistinctCount)
	assert.Nil(t, col.Min)
	assert.Nil(t, col.Max)
	assert.Empty(t, col.Histogram)
}

func TestAnalyzeFeedsOptimizerFormats(t *testing.T) {
	table := NewMemTable("mixed", []string{"f", "b"})
	table.InsertAll([]Row{
		{"f": 1.5, "b": true},
		{"f": 2.5, "b": false},
	})

	stats, err := Analyze(context.Background(), table)
	require.NoError(t, err)

	f := stats.Column("f")
	assert.Equal(t, plan.FloatLit(1.5), *f.Min)
	assert.Equal(t, plan.FloatLit(2.5), *f.Max)

	b := stats.Column("b")
	assert.Equal(t, plan.BoolLit(false), *b.Min)
	assert.Equal(t, plan.BoolLit(true), *b.Max)
	assert.Empty(t, b.Histogram)
}
