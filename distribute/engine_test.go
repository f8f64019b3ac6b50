package distribute

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guileen/planlite/executor"
	"github.com/guileen/planlite/plan"
	"github.com/guileen/planlite/storage"
)

func ordersCatalog(t *testing.T) *storage.Registry {
	t.Helper()
	reg := storage.NewRegistry()

	orders := storage.NewMemTable("orders", []string{"order_id", "user_id", "amount"})
	for i := 0; i < 20; i++ {
		orders.Insert(storage.Row{
			"order_id": int64(i),
			"user_id":  int64(i % 5),
			"amount":   int64(10 * (i + 1)),
		})
	}
	require.NoError(t, reg.Register(orders))
	return reg
}

func fingerprints(r *executor.Result) []string {
	out := make([]string, len(r.Rows))
	for i, row := range r.Rows {
		s := ""
		for j, col := range r.Columns {
			s += fmt.Sprintf("%s=%v;", col, row[j])
		}
		out[i] = s
	}
	sort.Strings(out)
	return out
}

// Every strategy must produce the same multiset of rows as a single-node
// run of the same plan.
func TestExecuteDistributedMatchesLocalExecution(t *testing.T) {
	cat := ordersCatalog(t)
	p := &plan.Filter{
		Input:     &plan.TableScan{Table: "orders"},
		Predicate: plan.Binary(plan.OpGt, plan.Col("amount"), plan.Lit(plan.IntLit(50))),
	}

	local, err := executor.New(cat).Execute(context.Background(), p)
	require.NoError(t, err)

	strategies := map[string]PartitioningStrategy{
		"hash":        &HashPartitioning{Columns: []string{"user_id"}, Partitions: 3},
		"range":       &RangePartitioning{Column: "amount", Bounds: []float64{70, 140}},
		"round robin": &RoundRobinPartitioning{Partitions: 4},
	}
	for name, strategy := range strategies {
		t.Run(name, func(t *testing.T) {
			got, err := NewEngine(cat).ExecuteDistributed(context.Background(), p, strategy)
			require.NoError(t, err)
			assert.Equal(t, fingerprints(local), fingerprints(got))
		})
	}
}

func TestExecuteDistributedAggregatePartialsByKey(t *testing.T) {
	cat := ordersCatalog(t)
	p := &plan.Aggregate{
		Input:      &plan.TableScan{Table: "orders"},
		GroupBy:    []plan.Expr{plan.Col("user_id")},
		Aggregates: []plan.AggExpr{{Func: plan.AggSum, Expr: plan.Col("amount"), Alias: "total"}},
	}

	local, err := executor.New(cat).Execute(context.Background(), p)
	require.NoError(t, err)

	// Hash partitioning on the grouping key keeps each group on one
	// worker, so per-partition aggregates merge into the global answer.
	got, err := NewEngine(cat).ExecuteDistributed(context.Background(), p,
		&HashPartitioning{Columns: []string{"user_id"}, Partitions: 3})
	require.NoError(t, err)

	assert.Equal(t, fingerprints(local), fingerprints(got))
}

func TestExecuteDistributedAppliesSortAndLimitAfterMerge(t *testing.T) {
	cat := ordersCatalog(t)
	p := &plan.Limit{
		Input: &plan.Sort{
			Input:   &plan.TableScan{Table: "orders", Columns: []string{"order_id", "amount"}},
			OrderBy: []plan.SortKey{{Expr: plan.Col("amount"), Asc: false}},
		},
		Count: 3,
	}

	got, err := NewEngine(cat).ExecuteDistributed(context.Background(), p,
		&RoundRobinPartitioning{Partitions: 4})
	require.NoError(t, err)

	// Top three amounts across all partitions, globally ordered.
	require.Len(t, got.Rows, 3)
	amountIdx := -1
	for i, col := range got.Columns {
		if col == "amount" {
			amountIdx = i
		}
	}
	require.GreaterOrEqual(t, amountIdx, 0)
	assert.Equal(t, int64(200), got.Rows[0][amountIdx])
	assert.Equal(t, int64(190), got.Rows[1][amountIdx])
	assert.Equal(t, int64(180), got.Rows[2][amountIdx])
}

func TestExecuteDistributedUnknownTable(t *testing.T) {
	engine := NewEngine(ordersCatalog(t))
	_, err := engine.ExecuteDistributed(context.Background(),
		&plan.TableScan{Table: "ghosts"},
		&RoundRobinPartitioning{Partitions: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghosts")
}

func TestExecuteDistributedNilArguments(t *testing.T) {
	engine := NewEngine(ordersCatalog(t))

	_, err := engine.ExecuteDistributed(context.Background(), nil, &RoundRobinPartitioning{Partitions: 1})
	assert.Error(t, err)

	_, err = engine.ExecuteDistributed(context.Background(), &plan.TableScan{Table: "orders"}, nil)
	assert.Error(t, err)
}

func TestPeelOrdering(t *testing.T) {
	scan := &plan.TableScan{Table: "orders"}
	p := &plan.Limit{
		Input: &plan.Sort{
			Input:   scan,
			OrderBy: []plan.SortKey{{Expr: plan.Col("amount"), Asc: true}},
		},
		Count: 5,
	}

	inner, wrappers := peelOrdering(p)
	assert.Same(t, plan.Plan(scan), inner)
	require.Len(t, wrappers, 2)
	_, isLimit := wrappers[0].(*plan.Limit)
	_, isSort := wrappers[1].(*plan.Sort)
	assert.True(t, isLimit)
	assert.True(t, isSort)
}
