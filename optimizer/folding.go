package optimizer

import (
	"fmt"

	"github.com/guileen/planlite/plan"
)

// foldConstants evaluates constant integer arithmetic in every expression
// position of the plan. Folding is best-effort: only Add, Sub, Mul and Div
// over two integer literals are evaluated, everything else stays symbolic.
// Division truncates; division by a zero literal aborts optimization.
func (o *Optimizer) foldConstants(p plan.Plan) (plan.Plan, error) {
	return rewriteExprs(p, foldExpr)
}

func foldExpr(e plan.Expr) (plan.Expr, error) {
	switch x := e.(type) {
	case *plan.ColumnRef, *plan.LiteralExpr:
		return e, nil
	case *plan.BinaryExpr:
		left, err := foldExpr(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := foldExpr(x.Right)
		if err != nil {
			return nil, err
		}
		if folded, err := foldBinary(x.Op, left, right); err != nil {
			return nil, err
		} else if folded != nil {
			return folded, nil
		}
		return &plan.BinaryExpr{Op: x.Op, Left: left, Right: right}, nil
	case *plan.UnaryExpr:
		input, err := foldExpr(x.Input)
		if err != nil {
			return nil, err
		}
		return &plan.UnaryExpr{Op: x.Op, Input: input}, nil
	case *plan.FunctionCall:
		args := make([]plan.Expr, len(x.Args))
		for i, arg := range x.Args {
			folded, err := foldExpr(arg)
			if err != nil {
				return nil, err
			}
			args[i] = folded
		}
		return &plan.FunctionCall{Name: x.Name, Args: args}, nil
	case *plan.CaseExpr:
		whens := make([]plan.WhenClause, len(x.Whens))
		for i, when := range x.Whens {
			cond, err := foldExpr(when.Cond)
			if err != nil {
				return nil, err
			}
			result, err := foldExpr(when.Result)
			if err != nil {
				return nil, err
			}
			whens[i] = plan.WhenClause{Cond: cond, Result: result}
		}
		var elseExpr plan.Expr
		if x.Else != nil {
			folded, err := foldExpr(x.Else)
			if err != nil {
				return nil, err
			}
			elseExpr = folded
		}
		return &plan.CaseExpr{Whens: whens, Else: elseExpr}, nil
	default:
		return e, nil
	}
}

// foldBinary evaluates op over two already-folded operands, returning nil
// when the combination is not foldable.
func foldBinary(op plan.BinaryOp, left, right plan.Expr) (plan.Expr, error) {
	leftLit, ok := left.(*plan.LiteralExpr)
	if !ok || leftLit.Value.Kind != plan.KindInt {
		return nil, nil
	}
	rightLit, ok := right.(*plan.LiteralExpr)
	if !ok || rightLit.Value.Kind != plan.KindInt {
		return nil, nil
	}

	a, b := leftLit.Value.Int, rightLit.Value.Int
	switch op {
	case plan.OpAdd:
		return plan.Lit(plan.IntLit(a + b)), nil
	case plan.OpSub:
		return plan.Lit(plan.IntLit(a - b)), nil
	case plan.OpMul:
		return plan.Lit(plan.IntLit(a * b)), nil
	case plan.OpDiv:
		if b == 0 {
			return nil, fmt.Errorf("folding %d / %d: %w", a, b, ErrDivisionByZero)
		}
		return plan.Lit(plan.IntLit(a / b)), nil
	default:
		return nil, nil
	}
}
