package optimizer

import (
	"fmt"

	"github.com/guileen/planlite/plan"
)

// pushDownPredicates moves filters toward table scans so fewer rows flow
// through expensive operators. Filters over projections swap with them when
// the predicate only needs projected columns; filters over joins are split
// by column provenance and pushed into the join sides.
func (o *Optimizer) pushDownPredicates(p plan.Plan) (plan.Plan, error) {
	filter, ok := p.(*plan.Filter)
	if !ok {
		return mapChildren(p, o.pushDownPredicates)
	}

	input, err := o.pushDownPredicates(filter.Input)
	if err != nil {
		return nil, err
	}

	switch child := input.(type) {
	case *plan.Project:
		return o.pushFilterThroughProject(filter.Predicate, child)
	case *plan.Join:
		return o.pushFilterThroughJoin(filter.Predicate, child)
	default:
		return &plan.Filter{Input: input, Predicate: filter.Predicate}, nil
	}
}

// pushFilterThroughProject swaps a filter below a projection when every
// column the predicate reads survives the projection as a bare column.
func (o *Optimizer) pushFilterThroughProject(pred plan.Expr, proj *plan.Project) (plan.Plan, error) {
	available := make(map[string]struct{})
	for _, e := range proj.Exprs {
		if ref, ok := e.(*plan.ColumnRef); ok {
			available[ref.Name] = struct{}{}
		}
	}
	for _, col := range plan.ExtractColumns(pred) {
		if _, ok := available[col]; !ok {
			return &plan.Filter{Input: proj, Predicate: pred}, nil
		}
	}

	pushed, err := o.pushDownPredicates(&plan.Filter{Input: proj.Input, Predicate: pred})
	if err != nil {
		return nil, err
	}
	return &plan.Project{Input: pushed, Exprs: proj.Exprs}, nil
}

// pushFilterThroughJoin splits the predicate into left-only, right-only and
// residual conjuncts by column provenance. Conjuncts that cannot be proven
// to belong to one side stay at the join level; a conjunct referencing a
// column that provably exists on neither side is a malformed plan.
//
// A conjunct is only pushed into a side the join cannot null-pad. Filtering
// a null-supplying side before the join turns dropped rows back into
// null-padded output rows, so for Left joins only left conjuncts move, for
// Right joins only right conjuncts, and for Full joins none.
func (o *Optimizer) pushFilterThroughJoin(pred plan.Expr, join *plan.Join) (plan.Plan, error) {
	leftCols, leftKnown := columnSet(join.Left)
	rightCols, rightKnown := columnSet(join.Right)

	pushLeft := join.Type == plan.InnerJoin || join.Type == plan.CrossJoin || join.Type == plan.LeftJoin
	pushRight := join.Type == plan.InnerJoin || join.Type == plan.CrossJoin || join.Type == plan.RightJoin

	var leftParts, rightParts, residual []plan.Expr
	for _, conjunct := range splitConjuncts(pred) {
		cols := plan.ExtractColumns(conjunct)

		if leftKnown && rightKnown {
			for _, col := range cols {
				_, inLeft := leftCols[col]
				_, inRight := rightCols[col]
				if !inLeft && !inRight {
					return nil, fmt.Errorf("predicate %s references %q: %w",
						plan.FormatExpr(conjunct), col, ErrUnresolvedColumn)
				}
			}
		}

		switch {
		case pushLeft && len(cols) > 0 && leftKnown && subset(cols, leftCols):
			leftParts = append(leftParts, conjunct)
		case pushRight && len(cols) > 0 && rightKnown && subset(cols, rightCols):
			rightParts = append(rightParts, conjunct)
		default:
			residual = append(residual, conjunct)
		}
	}

	left := join.Left
	if len(leftParts) > 0 {
		pushed, err := o.pushDownPredicates(&plan.Filter{Input: join.Left, Predicate: combineConjuncts(leftParts)})
		if err != nil {
			return nil, err
		}
		left = pushed
	}
	right := join.Right
	if len(rightParts) > 0 {
		pushed, err := o.pushDownPredicates(&plan.Filter{Input: join.Right, Predicate: combineConjuncts(rightParts)})
		if err != nil {
			return nil, err
		}
		right = pushed
	}

	rebuilt := &plan.Join{Left: left, Right: right, Cond: join.Cond, Type: join.Type}
	if len(residual) > 0 {
		return &plan.Filter{Input: rebuilt, Predicate: combineConjuncts(residual)}, nil
	}
	return rebuilt, nil
}

// columnSet returns the provable output columns of a subtree as a set.
func columnSet(p plan.Plan) (map[string]struct{}, bool) {
	cols, ok := plan.OutputColumns(p)
	if !ok {
		return nil, false
	}
	set := make(map[string]struct{}, len(cols))
	for _, col := range cols {
		set[col] = struct{}{}
	}
	return set, true
}

func subset(cols []string, set map[string]struct{}) bool {
	for _, col := range cols {
		if _, ok := set[col]; !ok {
			return false
		}
	}
	return true
}
