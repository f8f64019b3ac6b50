package optimizer

import (
	"fmt"

	"github.com/guileen/planlite/plan"
)

// rewriteFunc is a total plan-to-plan transformation. Implementations must
// handle every plan variant, either rewriting it or rebuilding it around
// transformed children, and must never mutate the input tree.
type rewriteFunc func(plan.Plan) (plan.Plan, error)

// mapChildren rebuilds a node with fn applied to each direct child. Leaves
// are returned as-is.
func mapChildren(p plan.Plan, fn rewriteFunc) (plan.Plan, error) {
	switch n := p.(type) {
	case *plan.TableScan:
		return n, nil
	case *plan.Filter:
		input, err := fn(n.Input)
		if err != nil {
			return nil, err
		}
		return &plan.Filter{Input: input, Predicate: n.Predicate}, nil
	case *plan.Project:
		input, err := fn(n.Input)
		if err != nil {
			return nil, err
		}
		return &plan.Project{Input: input, Exprs: n.Exprs}, nil
	case *plan.Aggregate:
		input, err := fn(n.Input)
		if err != nil {
			return nil, err
		}
		return &plan.Aggregate{Input: input, GroupBy: n.GroupBy, Aggregates: n.Aggregates}, nil
	case *plan.Join:
		left, err := fn(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := fn(n.Right)
		if err != nil {
			return nil, err
		}
		return &plan.Join{Left: left, Right: right, Cond: n.Cond, Type: n.Type}, nil
	case *plan.Sort:
		input, err := fn(n.Input)
		if err != nil {
			return nil, err
		}
		return &plan.Sort{Input: input, OrderBy: n.OrderBy}, nil
	case *plan.Limit:
		input, err := fn(n.Input)
		if err != nil {
			return nil, err
		}
		return &plan.Limit{Input: input, Count: n.Count, Offset: n.Offset}, nil
	case *plan.Union:
		inputs := make([]plan.Plan, len(n.Inputs))
		for i, in := range n.Inputs {
			out, err := fn(in)
			if err != nil {
				return nil, err
			}
			inputs[i] = out
		}
		return &plan.Union{Inputs: inputs}, nil
	case *plan.Distinct:
		input, err := fn(n.Input)
		if err != nil {
			return nil, err
		}
		return &plan.Distinct{Input: input}, nil
	default:
		return nil, fmt.Errorf("unhandled plan node %T", p)
	}
}

// rewriteExprs rebuilds the whole tree with fn applied to every expression
// position: scan and filter predicates, projections, aggregates, join
// conditions and sort keys.
func rewriteExprs(p plan.Plan, fn func(plan.Expr) (plan.Expr, error)) (plan.Plan, error) {
	applyOpt := func(e plan.Expr) (plan.Expr, error) {
		if e == nil {
			return nil, nil
		}
		return fn(e)
	}
	recurse := func(child plan.Plan) (plan.Plan, error) {
		return rewriteExprs(child, fn)
	}
	switch n := p.(type) {
	case *plan.TableScan:
		pred, err := applyOpt(n.Predicate)
		if err != nil {
			return nil, err
		}
		return &plan.TableScan{Table: n.Table, Columns: n.Columns, Predicate: pred}, nil
	case *plan.Filter:
		pred, err := fn(n.Predicate)
		if err != nil {
			return nil, err
		}
		input, err := recurse(n.Input)
		if err != nil {
			return nil, err
		}
		return &plan.Filter{Input: input, Predicate: pred}, nil
	case *plan.Project:
		exprs := make([]plan.Expr, len(n.Exprs))
		for i, e := range n.Exprs {
			out, err := fn(e)
			if err != nil {
				return nil, err
			}
			exprs[i] = out
		}
		input, err := recurse(n.Input)
		if err != nil {
			return nil, err
		}
		return &plan.Project{Input: input, Exprs: exprs}, nil
	case *plan.Aggregate:
		groupBy := make([]plan.Expr, len(n.GroupBy))
		for i, e := range n.GroupBy {
			out, err := fn(e)
			if err != nil {
				return nil, err
			}
			groupBy[i] = out
		}
		aggs := make([]plan.AggExpr, len(n.Aggregates))
		for i, agg := range n.Aggregates {
			out, err := fn(agg.Expr)
			if err != nil {
				return nil, err
			}
			aggs[i] = plan.AggExpr{Func: agg.Func, Expr: out, Alias: agg.Alias}
		}
		input, err := recurse(n.Input)
		if err != nil {
			return nil, err
		}
		return &plan.Aggregate{Input: input, GroupBy: groupBy, Aggregates: aggs}, nil
	case *plan.Join:
		on, err := applyOpt(n.Cond.On)
		if err != nil {
			return nil, err
		}
		left, err := recurse(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := recurse(n.Right)
		if err != nil {
			return nil, err
		}
		return &plan.Join{Left: left, Right: right, Cond: plan.JoinCondition{On: on, Using: n.Cond.Using}, Type: n.Type}, nil
	case *plan.Sort:
		keys := make([]plan.SortKey, len(n.OrderBy))
		for i, key := range n.OrderBy {
			out, err := fn(key.Expr)
			if err != nil {
				return nil, err
			}
			keys[i] = plan.SortKey{Expr: out, Asc: key.Asc}
		}
		input, err := recurse(n.Input)
		if err != nil {
			return nil, err
		}
		return &plan.Sort{Input: input, OrderBy: keys}, nil
	case *plan.Limit:
		input, err := recurse(n.Input)
		if err != nil {
			return nil, err
		}
		return &plan.Limit{Input: input, Count: n.Count, Offset: n.Offset}, nil
	case *plan.Union:
		inputs := make([]plan.Plan, len(n.Inputs))
		for i, in := range n.Inputs {
			out, err := recurse(in)
			if err != nil {
				return nil, err
			}
			inputs[i] = out
		}
		return &plan.Union{Inputs: inputs}, nil
	case *plan.Distinct:
		input, err := recurse(n.Input)
		if err != nil {
			return nil, err
		}
		return &plan.Distinct{Input: input}, nil
	default:
		return nil, fmt.Errorf("unhandled plan node %T", p)
	}
}

// splitConjuncts flattens a predicate into its AND-ed parts, preserving
// left-to-right order so that recombining reproduces the original shape.
func splitConjuncts(e plan.Expr) []plan.Expr {
	if bin, ok := e.(*plan.BinaryExpr); ok && bin.Op == plan.OpAnd {
		return append(splitConjuncts(bin.Left), splitConjuncts(bin.Right)...)
	}
	return []plan.Expr{e}
}

// combineConjuncts left-folds predicates back into a single AND tree.
func combineConjuncts(parts []plan.Expr) plan.Expr {
	if len(parts) == 0 {
		return nil
	}
	combined := parts[0]
	for _, part := range parts[1:] {
		combined = plan.And(combined, part)
	}
	return combined
}
