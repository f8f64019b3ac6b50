package executor

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guileen/planlite/catalog"
	"github.com/guileen/planlite/optimizer"
	"github.com/guileen/planlite/plan"
)

// rowFingerprints renders a result as a sorted multiset of row strings so
// two results compare independent of row order.
func rowFingerprints(r *Result) []string {
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

// Optimization must change plan shape, never plan meaning: the original
// and the optimized plan produce the same rows over the same tables.
func TestOptimizedPlansAreEquivalent(t *testing.T) {
	cat := testCatalog(t)
	stats := catalog.NewStore()
	require.NoError(t, stats.Put("users", &catalog.TableStatistics{RowCount: 4}))
	require.NoError(t, stats.Put("orders", &catalog.TableStatistics{RowCount: 4}))

	plans := map[string]plan.Plan{
		"filter over projection": &plan.Filter{
			Input: &plan.Project{
				Input: &plan.TableScan{Table: "users"},
				Exprs: []plan.Expr{plan.Col("name"), plan.Col("age")},
			},
			Predicate: plan.Binary(plan.OpGt, plan.Col("age"), plan.Lit(plan.IntLit(18))),
		},
		"filter over join": &plan.Filter{
			Input: &plan.Join{
				Left:  &plan.TableScan{Table: "users", Columns: []string{"id", "name", "age"}},
				Right: &plan.TableScan{Table: "orders", Columns: []string{"user_id", "amount"}},
				Cond:  plan.JoinCondition{On: plan.Binary(plan.OpEq, plan.Col("id"), plan.Col("user_id"))},
				Type:  plan.InnerJoin,
			},
			Predicate: plan.And(
				plan.Binary(plan.OpGt, plan.Col("age"), plan.Lit(plan.IntLit(18))),
				plan.Binary(plan.OpGt, plan.Col("amount"), plan.Lit(plan.IntLit(30))),
			),
		},
		"stacked filters with constants": &plan.Filter{
			Input: &plan.Filter{
				Input: &plan.TableScan{Table: "orders"},
				Predicate: plan.Binary(plan.OpGt, plan.Col("amount"),
					plan.Binary(plan.OpMul, plan.Lit(plan.IntLit(10)), plan.Lit(plan.IntLit(4)))),
			},
			Predicate: plan.Binary(plan.OpLt, plan.Col("amount"), plan.Lit(plan.IntLit(120))),
		},
		"filter over left join": &plan.Filter{
			Input: &plan.Join{
				Left:  &plan.TableScan{Table: "users", Columns: []string{"id", "name"}},
				Right: &plan.TableScan{Table: "orders", Columns: []string{"user_id", "amount"}},
				Cond:  plan.JoinCondition{On: plan.Binary(plan.OpEq, plan.Col("id"), plan.Col("user_id"))},
				Type:  plan.LeftJoin,
			},
			// The predicate reads the null-supplying side: filtering orders
			// before the join would resurrect null-padded rows.
			Predicate: plan.Binary(plan.OpGt, plan.Col("amount"), plan.Lit(plan.IntLit(30))),
		},
		"filter over full join": &plan.Filter{
			Input: &plan.Join{
				Left:  &plan.TableScan{Table: "users", Columns: []string{"id", "age"}},
				Right: &plan.TableScan{Table: "orders", Columns: []string{"user_id", "amount"}},
				Cond:  plan.JoinCondition{On: plan.Binary(plan.OpEq, plan.Col("id"), plan.Col("user_id"))},
				Type:  plan.FullJoin,
			},
			Predicate: plan.Binary(plan.OpGt, plan.Col("age"), plan.Lit(plan.IntLit(18))),
		},
		"identity projection": &plan.Project{
			Input: &plan.TableScan{Table: "orders", Columns: []string{"order_id", "user_id", "amount"}},
			Exprs: []plan.Expr{plan.Col("order_id"), plan.Col("user_id"), plan.Col("amount")},
		},
		"aggregate over pushed filter": &plan.Aggregate{
			Input: &plan.Filter{
				Input: &plan.Join{
					Left:  &plan.TableScan{Table: "users", Columns: []string{"id", "city"}},
					Right: &plan.TableScan{Table: "orders", Columns: []string{"user_id", "amount"}},
					Cond:  plan.JoinCondition{On: plan.Binary(plan.OpEq, plan.Col("id"), plan.Col("user_id"))},
					Type:  plan.InnerJoin,
				},
				Predicate: plan.Binary(plan.OpGt, plan.Col("amount"), plan.Lit(plan.IntLit(10))),
			},
			GroupBy:    []plan.Expr{plan.Col("city")},
			Aggregates: []plan.AggExpr{{Func: plan.AggSum, Expr: plan.Col("amount"), Alias: "total"}},
		},
	}

	exec := New(cat)
	for name, original := range plans {
		t.Run(name, func(t *testing.T) {
			for _, level := range []optimizer.Level{optimizer.LevelBasic, optimizer.LevelFull} {
				optimized, err := optimizer.New(stats, level).Optimize(original)
				require.NoError(t, err)

				wantResult, err := exec.Execute(context.Background(), original)
				require.NoError(t, err)
				gotResult, err := exec.Execute(context.Background(), optimized)
				require.NoError(t, err)

				assert.Equal(t, rowFingerprints(wantResult), rowFingerprints(gotResult),
					"level %s rewrote semantics:\n%s", level, plan.Explain(optimized))
			}
		})
	}
}
