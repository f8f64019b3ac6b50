package optimizer

import (
	"sort"

	"github.com/guileen/planlite/plan"
)

// pushDownProjections narrows table scans to the columns the plan actually
// uses. The required set is carried top-down: projections and aggregates
// reset it to exactly what they read, the other operators add what their own
// expressions reference. A scan resolves to the required set, intersected
// with its caller-supplied column list when one exists so the scan contract
// is never widened. With no projection boundary above it a scan is left
// untouched.
func (o *Optimizer) pushDownProjections(p plan.Plan) (plan.Plan, error) {
	return o.pruneColumns(p, nil)
}

// pruneColumns rewrites p given the set of columns required above it.
// required == nil means unconstrained: everything the subtree produces may
// be consumed.
func (o *Optimizer) pruneColumns(p plan.Plan, required map[string]struct{}) (plan.Plan, error) {
	switch n := p.(type) {
	case *plan.TableScan:
		return o.pruneScan(n, required), nil
	case *plan.Filter:
		childReq := addColumns(required, plan.ExtractColumns(n.Predicate))
		input, err := o.pruneColumns(n.Input, childReq)
		if err != nil {
			return nil, err
		}
		return &plan.Filter{Input: input, Predicate: n.Predicate}, nil
	case *plan.Project:
		childReq := make(map[string]struct{})
		for _, e := range n.Exprs {
			for _, col := range plan.ExtractColumns(e) {
				childReq[col] = struct{}{}
			}
		}
		input, err := o.pruneColumns(n.Input, childReq)
		if err != nil {
			return nil, err
		}
		return &plan.Project{Input: input, Exprs: n.Exprs}, nil
	case *plan.Aggregate:
		childReq := make(map[string]struct{})
		for _, e := range n.GroupBy {
			for _, col := range plan.ExtractColumns(e) {
				childReq[col] = struct{}{}
			}
		}
		for _, agg := range n.Aggregates {
			for _, col := range plan.ExtractColumns(agg.Expr) {
				childReq[col] = struct{}{}
			}
		}
		input, err := o.pruneColumns(n.Input, childReq)
		if err != nil {
			return nil, err
		}
		return &plan.Aggregate{Input: input, GroupBy: n.GroupBy, Aggregates: n.Aggregates}, nil
	case *plan.Join:
		childReq := required
		if n.Cond.On != nil {
			childReq = addColumns(childReq, plan.ExtractColumns(n.Cond.On))
		}
		if len(n.Cond.Using) > 0 {
			childReq = addColumns(childReq, n.Cond.Using)
		}
		left, err := o.pruneColumns(n.Left, sideColumns(childReq, n.Left))
		if err != nil {
			return nil, err
		}
		right, err := o.pruneColumns(n.Right, sideColumns(childReq, n.Right))
		if err != nil {
			return nil, err
		}
		return &plan.Join{Left: left, Right: right, Cond: n.Cond, Type: n.Type}, nil
	case *plan.Sort:
		childReq := required
		for _, key := range n.OrderBy {
			childReq = addColumns(childReq, plan.ExtractColumns(key.Expr))
		}
		input, err := o.pruneColumns(n.Input, childReq)
		if err != nil {
			return nil, err
		}
		return &plan.Sort{Input: input, OrderBy: n.OrderBy}, nil
	case *plan.Limit:
		input, err := o.pruneColumns(n.Input, required)
		if err != nil {
			return nil, err
		}
		return &plan.Limit{Input: input, Count: n.Count, Offset: n.Offset}, nil
	case *plan.Union:
		inputs := make([]plan.Plan, len(n.Inputs))
		for i, in := range n.Inputs {
			out, err := o.pruneColumns(in, required)
			if err != nil {
				return nil, err
			}
			inputs[i] = out
		}
		return &plan.Union{Inputs: inputs}, nil
	case *plan.Distinct:
		input, err := o.pruneColumns(n.Input, required)
		if err != nil {
			return nil, err
		}
		return &plan.Distinct{Input: input}, nil
	default:
		return mapChildren(p, o.pushDownProjections)
	}
}

// pruneScan resolves a scan's column list from the required set. The scan's
// own predicate columns are always kept so the predicate stays evaluable.
func (o *Optimizer) pruneScan(scan *plan.TableScan, required map[string]struct{}) *plan.TableScan {
	if required == nil {
		return scan
	}

	needed := addColumns(required, plan.ExtractColumns(scan.Predicate))
	var resolved []string
	if scan.Columns != nil {
		// Keep the caller's order, dropping unused columns.
		resolved = make([]string, 0, len(scan.Columns))
		for _, col := range scan.Columns {
			if _, ok := needed[col]; ok {
				resolved = append(resolved, col)
			}
		}
	} else {
		resolved = make([]string, 0, len(needed))
		for col := range needed {
			resolved = append(resolved, col)
		}
		sort.Strings(resolved)
	}
	return &plan.TableScan{Table: scan.Table, Columns: resolved, Predicate: scan.Predicate}
}

// sideColumns restricts a required set to the columns a join side can
// produce, when that side's output columns are provable. Otherwise the full
// set is passed through.
func sideColumns(required map[string]struct{}, side plan.Plan) map[string]struct{} {
	if required == nil {
		return nil
	}
	sideSet, known := columnSet(side)
	if !known {
		return required
	}
	out := make(map[string]struct{})
	for col := range required {
		if _, ok := sideSet[col]; ok {
			out[col] = struct{}{}
		}
	}
	return out
}

// addColumns returns a copy of set with cols added. A nil set stays nil:
// it means unconstrained, and adding to everything is still everything.
func addColumns(set map[string]struct{}, cols []string) map[string]struct{} {
	if set == nil {
		return nil
	}
	out := make(map[string]struct{}, len(set)+len(cols))
	for col := range set {
		out[col] = struct{}{}
	}
	for _, col := range cols {
		out[col] = struct{}{}
	}
	return out
}
