package optimizer

import (
	"github.com/guileen/planlite/plan"
)

// removeRedundantProjections drops projections that provably reproduce
// their input unchanged: every expression is a bare column reference and
// the list matches the input's output columns name-for-name in order.
func (o *Optimizer) removeRedundantProjections(p plan.Plan) (plan.Plan, error) {
	rewritten, err := mapChildren(p, o.removeRedundantProjections)
	if err != nil {
		return nil, err
	}

	proj, ok := rewritten.(*plan.Project)
	if !ok {
		return rewritten, nil
	}
	if isIdentityProjection(proj) {
		return proj.Input, nil
	}
	return rewritten, nil
}

// isIdentityProjection reports whether the projection selects exactly its
// input's columns, same names, same order. When the input's output columns
// cannot be proven the projection is conservatively kept.
func isIdentityProjection(proj *plan.Project) bool {
	inputCols, ok := plan.OutputColumns(proj.Input)
	if !ok {
		return false
	}
	if len(proj.Exprs) != len(inputCols) {
		return false
	}
	for i, e := range proj.Exprs {
		ref, ok := e.(*plan.ColumnRef)
		if !ok || ref.Name != inputCols[i] {
			return false
		}
	}
	return true
}
