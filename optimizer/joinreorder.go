package optimizer

import (
	"github.com/guileen/planlite/plan"
)

// reorderJoins swaps the inputs of inner joins so the cheaper relation ends
// up on the probe (left) side and the build (right) side holds the larger
// one, matching the paired executor's convention of building its hash table
// from the right input. Inner joins are symmetric so the swap preserves
// semantics; other join types and ties are recursed into unchanged.
func (o *Optimizer) reorderJoins(p plan.Plan) (plan.Plan, error) {
	rewritten, err := mapChildren(p, o.reorderJoins)
	if err != nil {
		return nil, err
	}

	join, ok := rewritten.(*plan.Join)
	if !ok || join.Type != plan.InnerJoin {
		return rewritten, nil
	}

	leftCost := o.EstimateCost(join.Left)
	rightCost := o.EstimateCost(join.Right)
	if rightCost < leftCost {
		return &plan.Join{Left: join.Right, Right: join.Left, Cond: join.Cond, Type: join.Type}, nil
	}
	return rewritten, nil
}
