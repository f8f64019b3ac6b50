package executor

import (
	"fmt"
	"strings"

	"github.com/guileen/planlite/plan"
	"github.com/guileen/planlite/storage"
)

// evalExpr evaluates a scalar expression against one row. Column references
// that the row does not carry evaluate to nil, which is how the padded side
// of an outer join reads.
func evalExpr(e plan.Expr, row storage.Row) (storage.Value, error) {
	switch x := e.(type) {
	case *plan.ColumnRef:
		return row[x.Name], nil
	case *plan.LiteralExpr:
		return x.Value.Value(), nil
	case *plan.BinaryExpr:
		return evalBinary(x, row)
	case *plan.UnaryExpr:
		return evalUnary(x, row)
	case *plan.FunctionCall:
		return evalFunction(x, row)
	case *plan.CaseExpr:
		for _, when := range x.Whens {
			cond, err := evalExpr(when.Cond, row)
			if err != nil {
				return nil, err
			}
			if truthy(cond) {
				return evalExpr(when.Result, row)
			}
		}
		if x.Else != nil {
			return evalExpr(x.Else, row)
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("cannot evaluate expression %T", e)
	}
}

func evalBinary(x *plan.BinaryExpr, row storage.Row) (storage.Value, error) {
	left, err := evalExpr(x.Left, row)
	if err != nil {
		return nil, err
	}
	right, err := evalExpr(x.Right, row)
	if err != nil {
		return nil, err
	}

	switch x.Op {
	case plan.OpAnd:
		return truthy(left) && truthy(right), nil
	case plan.OpOr:
		return truthy(left) || truthy(right), nil
	}

	if left == nil || right == nil {
		return nil, nil
	}

	if x.Op.IsComparison() {
		cmp, ok := storage.Compare(left, right)
		if !ok {
			return nil, fmt.Errorf("cannot compare %T with %T", left, right)
		}
		switch x.Op {
		case plan.OpEq:
			return cmp == 0, nil
		case plan.OpNe:
			return cmp != 0, nil
		case plan.OpLt:
			return cmp < 0, nil
		case plan.OpLe:
			return cmp <= 0, nil
		case plan.OpGt:
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	}

	return evalArithmetic(x.Op, left, right)
}

func evalArithmetic(op plan.BinaryOp, left, right storage.Value) (storage.Value, error) {
	li, leftIsInt := asInt(left)
	ri, rightIsInt := asInt(right)
	if leftIsInt && rightIsInt {
		switch op {
		case plan.OpAdd:
			return li + ri, nil
		case plan.OpSub:
			return li - ri, nil
		case plan.OpMul:
			return li * ri, nil
		case plan.OpDiv:
			if ri == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return li / ri, nil
		case plan.OpMod:
			if ri == 0 {
				return nil, fmt.Errorf("modulo by zero")
			}
			return li % ri, nil
		}
	}

	lf, lok := storage.AsFloat(left)
	rf, rok := storage.AsFloat(right)
	if !lok || !rok {
		return nil, fmt.Errorf("unsupported operand types %T and %T for %s", left, right, op)
	}
	switch op {
	case plan.OpAdd:
		return lf + rf, nil
	case plan.OpSub:
		return lf - rf, nil
	case plan.OpMul:
		return lf * rf, nil
	case plan.OpDiv:
		if rf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return lf / rf, nil
	default:
		return nil, fmt.Errorf("unsupported float operator %s", op)
	}
}

func evalUnary(x *plan.UnaryExpr, row storage.Row) (storage.Value, error) {
	value, err := evalExpr(x.Input, row)
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case plan.OpNot:
		return !truthy(value), nil
	case plan.OpNeg:
		if i, ok := asInt(value); ok {
			return -i, nil
		}
		if f, ok := storage.AsFloat(value); ok {
			return -f, nil
		}
		return nil, fmt.Errorf("cannot negate %T", value)
	case plan.OpIsNull:
		return value == nil, nil
	case plan.OpIsNotNull:
		return value != nil, nil
	default:
		return nil, fmt.Errorf("unknown unary operator %s", x.Op)
	}
}

func evalFunction(x *plan.FunctionCall, row storage.Row) (storage.Value, error) {
	args := make([]storage.Value, len(x.Args))
	for i, arg := range x.Args {
		v, err := evalExpr(arg, row)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	name := strings.ToLower(x.Name)
	switch name {
	case "abs":
		if err := wantArgs(name, args, 1); err != nil {
			return nil, err
		}
		if i, ok := asInt(args[0]); ok {
			if i < 0 {
				return -i, nil
			}
			return i, nil
		}
		if f, ok := storage.AsFloat(args[0]); ok {
			if f < 0 {
				return -f, nil
			}
			return f, nil
		}
		return nil, fmt.Errorf("abs: unsupported argument %T", args[0])
	case "length":
		if err := wantArgs(name, args, 1); err != nil {
			return nil, err
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("length: unsupported argument %T", args[0])
		}
		return int64(len(s)), nil
	case "upper":
		if err := wantArgs(name, args, 1); err != nil {
			return nil, err
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("upper: unsupported argument %T", args[0])
		}
		return strings.ToUpper(s), nil
	case "lower":
		if err := wantArgs(name, args, 1); err != nil {
			return nil, err
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("lower: unsupported argument %T", args[0])
		}
		return strings.ToLower(s), nil
	case "coalesce":
		for _, arg := range args {
			if arg != nil {
				return arg, nil
			}
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown function %q", x.Name)
	}
}

func wantArgs(name string, args []storage.Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: expected %d argument(s), got %d", name, n, len(args))
	}
	return nil
}

// truthy treats nil as false so filter predicates reject null results.
func truthy(v storage.Value) bool {
	b, ok := v.(bool)
	return ok && b
}

func asInt(v storage.Value) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	default:
		return 0, false
	}
}
