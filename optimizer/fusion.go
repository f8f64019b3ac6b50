package optimizer

import (
	"github.com/guileen/planlite/plan"
)

// fuseFilters collapses adjacent filters into a single filter whose
// predicate is the outer AND the inner one. Children are fused first, so a
// stack of filters collapses in one pass.
func (o *Optimizer) fuseFilters(p plan.Plan) (plan.Plan, error) {
	rewritten, err := mapChildren(p, o.fuseFilters)
	if err != nil {
		return nil, err
	}

	outer, ok := rewritten.(*plan.Filter)
	if !ok {
		return rewritten, nil
	}
	inner, ok := outer.Input.(*plan.Filter)
	if !ok {
		return rewritten, nil
	}
	return &plan.Filter{
		Input:     inner.Input,
		Predicate: plan.And(outer.Predicate, inner.Predicate),
	}, nil
}
