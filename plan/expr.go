package plan

import "fmt"

// BinaryOp enumerates the binary operators of the expression algebra.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

// String returns the SQL-style symbol for the operator.
func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "="
	case OpNe:
		return "<>"
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// IsComparison reports whether the operator yields a boolean from two
// non-boolean operands.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	default:
		return false
	}
}

// UnaryOp enumerates the unary operators of the expression algebra.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
	OpIsNull
	OpIsNotNull
)

// String returns the SQL-style rendering of the operator.
func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "NOT"
	case OpNeg:
		return "-"
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// Expr is a scalar expression tree. The interface is closed: the only
// implementations are the variant structs in this package. Expression trees
// are finite, acyclic and strictly owned downward; rewrites build new nodes
// instead of mutating existing ones.
type Expr interface {
	exprNode()
}

// ColumnRef is a free column reference, bound against whichever plan node
// owns the expression.
type ColumnRef struct {
	Name string
}

// LiteralExpr wraps a constant value.
type LiteralExpr struct {
	Value Literal
}

// BinaryExpr applies a binary operator to two sub-expressions.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// UnaryExpr applies a unary operator to a sub-expression.
type UnaryExpr struct {
	Op    UnaryOp
	Input Expr
}

// FunctionCall invokes a named scalar function.
type FunctionCall struct {
	Name string
	Args []Expr
}

// WhenClause is one condition/result arm of a CaseExpr.
type WhenClause struct {
	Cond   Expr
	Result Expr
}

// CaseExpr is a searched CASE expression. Else may be nil, in which case a
// non-matching row evaluates to null.
type CaseExpr struct {
	Whens []WhenClause
	Else  Expr
}

func (*ColumnRef) exprNode()    {}
func (*LiteralExpr) exprNode()  {}
func (*BinaryExpr) exprNode()   {}
func (*UnaryExpr) exprNode()    {}
func (*FunctionCall) exprNode() {}
func (*CaseExpr) exprNode()     {}

// Col creates a column reference.
func Col(name string) *ColumnRef {
	return &ColumnRef{Name: name}
}

// Lit wraps a literal into an expression.
func Lit(value Literal) *LiteralExpr {
	return &LiteralExpr{Value: value}
}

// Binary creates a binary expression.
func Binary(op BinaryOp, left, right Expr) *BinaryExpr {
	return &BinaryExpr{Op: op, Left: left, Right: right}
}

// And conjoins two predicates.
func And(left, right Expr) *BinaryExpr {
	return &BinaryExpr{Op: OpAnd, Left: left, Right: right}
}
