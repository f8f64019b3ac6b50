package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guileen/planlite/catalog"
	"github.com/guileen/planlite/plan"
)

func TestEstimateCostScanWithoutStatistics(t *testing.T) {
	o := New(nil, LevelFull)
	assert.Equal(t, float64(defaultTableRows), o.EstimateCost(&plan.TableScan{Table: "unknown"}))
}

func TestEstimateCostScanWithStatistics(t *testing.T) {
	o := New(statsStore(t, map[string]int64{"users": 2500}), LevelFull)
	assert.Equal(t, 2500.0, o.EstimateCost(&plan.TableScan{Table: "users"}))
}

func TestEstimateCostFilterAppliesSelectivity(t *testing.T) {
	o := New(statsStore(t, map[string]int64{"users": 10_000}), LevelFull)
	f := &plan.Filter{
		Input:     &plan.TableScan{Table: "users"},
		Predicate: plan.Binary(plan.OpGt, plan.Col("age"), plan.Lit(plan.IntLit(18))),
	}

	assert.InDelta(t, 10_000*selectivityComparison, o.EstimateCost(f), 1e-9)
}

func TestEstimateCostJoin(t *testing.T) {
	o := New(statsStore(t, map[string]int64{"users": 1000, "orders": 200}), LevelFull)
	j := &plan.Join{
		Left:  &plan.TableScan{Table: "users"},
		Right: &plan.TableScan{Table: "orders"},
		Cond:  plan.JoinCondition{On: plan.Binary(plan.OpEq, plan.Col("id"), plan.Col("user_id"))},
		Type:  plan.InnerJoin,
	}

	assert.InDelta(t, 1000*200*joinSelectivity, o.EstimateCost(j), 1e-9)
}

func TestEstimateCostUnmodeledNodeUsesDefault(t *testing.T) {
	o := New(nil, LevelFull)
	s := &plan.Sort{
		Input:   &plan.TableScan{Table: "users"},
		OrderBy: []plan.SortKey{{Expr: plan.Col("name"), Asc: true}},
	}

	assert.Equal(t, defaultNodeCost, o.EstimateCost(s))
}

func TestEstimateSelectivityShapes(t *testing.T) {
	col := plan.Col("x")
	lit := plan.Lit(plan.IntLit(1))

	tests := []struct {
		name string
		expr plan.Expr
		want float64
	}{
		{"equality", plan.Binary(plan.OpEq, col, lit), selectivityEquality},
		{"less than", plan.Binary(plan.OpLt, col, lit), selectivityComparison},
		{"greater equal", plan.Binary(plan.OpGe, col, lit), selectivityComparison},
		{"and", plan.And(plan.Binary(plan.OpEq, col, lit), plan.Binary(plan.OpEq, col, lit)), selectivityAnd},
		{"or", plan.Binary(plan.OpOr, col, lit), selectivityOr},
		{"not equal", plan.Binary(plan.OpNe, col, lit), selectivityDefault},
		{"non-binary", &plan.UnaryExpr{Op: plan.OpIsNull, Input: col}, selectivityDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateSelectivity(tt.expr))
		})
	}
}

func TestSelectivityRefinedByDistinctCount(t *testing.T) {
	store := catalog.NewStore()
	require.NoError(t, store.Put("users", &catalog.TableStatistics{
		RowCount: 10_000,
		ColumnStats: map[string]*catalog.ColumnStatistics{
			"city": {DistinctCount: 50},
		},
	}))

	o := New(store, LevelFull)
	f := &plan.Filter{
		Input:     &plan.TableScan{Table: "users"},
		Predicate: plan.Binary(plan.OpEq, plan.Col("city"), plan.Lit(plan.StringLit("oslo"))),
	}

	// 1/50 of 10k rows.
	assert.InDelta(t, 200.0, o.EstimateCost(f), 1e-9)
}

func TestSelectivityRefinedByHistogram(t *testing.T) {
	store := catalog.NewStore()
	require.NoError(t, store.Put("orders", &catalog.TableStatistics{
		RowCount: 1000,
		ColumnStats: map[string]*catalog.ColumnStatistics{
			"amount": {
				DistinctCount: 100,
				Histogram: []catalog.Bucket{
					{UpperBound: 10, Fraction: 0.25},
					{UpperBound: 20, Fraction: 0.25},
					{UpperBound: 30, Fraction: 0.25},
					{UpperBound: 40, Fraction: 0.25},
				},
			},
		},
	}))

	o := New(store, LevelFull)
	filter := func(op plan.BinaryOp, v int64) *plan.Filter {
		return &plan.Filter{
			Input:     &plan.TableScan{Table: "orders"},
			Predicate: plan.Binary(op, plan.Col("amount"), plan.Lit(plan.IntLit(v))),
		}
	}

	// Half the buckets sit at or below 20.
	assert.InDelta(t, 500.0, o.EstimateCost(filter(plan.OpLe, 20)), 1e-9)
	assert.InDelta(t, 500.0, o.EstimateCost(filter(plan.OpGt, 20)), 1e-9)
	assert.InDelta(t, 250.0, o.EstimateCost(filter(plan.OpLt, 15)), 1e-9)
}

func TestSelectivityMirroredComparison(t *testing.T) {
	store := catalog.NewStore()
	require.NoError(t, store.Put("orders", &catalog.TableStatistics{
		RowCount: 1000,
		ColumnStats: map[string]*catalog.ColumnStatistics{
			"amount": {
				Histogram: []catalog.Bucket{
					{UpperBound: 10, Fraction: 0.5},
					{UpperBound: 20, Fraction: 0.5},
				},
			},
		},
	}))

	o := New(store, LevelFull)
	// 15 < amount reads as amount > 15.
	f := &plan.Filter{
		Input:     &plan.TableScan{Table: "orders"},
		Predicate: plan.Binary(plan.OpLt, plan.Lit(plan.IntLit(15)), plan.Col("amount")),
	}

	assert.InDelta(t, 500.0, o.EstimateCost(f), 1e-9)
}

func TestEstimateCostNonNegative(t *testing.T) {
	o := New(nil, LevelFull)
	plans := []plan.Plan{
		&plan.TableScan{Table: "t"},
		&plan.Filter{Input: &plan.TableScan{Table: "t"}, Predicate: plan.Binary(plan.OpEq, plan.Col("a"), plan.Lit(plan.IntLit(1)))},
		&plan.Distinct{Input: &plan.TableScan{Table: "t"}},
		&plan.Union{Inputs: []plan.Plan{&plan.TableScan{Table: "t"}}},
	}
	for _, p := range plans {
		assert.GreaterOrEqual(t, o.EstimateCost(p), 0.0)
	}
}

func TestEstimateCostGrowsWithDeeperInputs(t *testing.T) {
	o := New(statsStore(t, map[string]int64{"users": 1000, "orders": 200}), LevelFull)

	users := &plan.TableScan{Table: "users"}
	orders := &plan.TableScan{Table: "orders"}
	joined := &plan.Join{
		Left:  users,
		Right: orders,
		Cond:  plan.JoinCondition{On: plan.Binary(plan.OpEq, plan.Col("id"), plan.Col("user_id"))},
		Type:  plan.InnerJoin,
	}

	// The same filter costs more over a join than over one of its inputs.
	pred := plan.Binary(plan.OpEq, plan.Col("id"), plan.Lit(plan.IntLit(1)))
	assert.Greater(t,
		o.EstimateCost(&plan.Filter{Input: joined, Predicate: pred}),
		o.EstimateCost(&plan.Filter{Input: users, Predicate: pred}))

	// Nesting a join beneath a join's input grows the estimate.
	nested := &plan.Join{
		Left:  users,
		Right: joined,
		Cond:  plan.JoinCondition{On: plan.Binary(plan.OpEq, plan.Col("id"), plan.Col("user_id"))},
		Type:  plan.InnerJoin,
	}
	assert.Greater(t, o.EstimateCost(nested), o.EstimateCost(joined))
}
