package plan

import (
	"fmt"
	"strconv"
)

// LiteralKind identifies the runtime type carried by a Literal.
type LiteralKind int

const (
	KindNull LiteralKind = iota
	KindInt
	KindFloat
	KindString
	KindBool
)

// String returns the name of the literal kind.
func (k LiteralKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Literal is an immutable constant value appearing in an expression tree.
// Only the field matching Kind is meaningful.
type Literal struct {
	Kind  LiteralKind
	Int   int64
	Float float64
	Str   string
	Bool  bool
}

// IntLit creates an integer literal.
func IntLit(v int64) Literal {
	return Literal{Kind: KindInt, Int: v}
}

// FloatLit creates a floating point literal.
func FloatLit(v float64) Literal {
	return Literal{Kind: KindFloat, Float: v}
}

// StringLit creates a string literal.
func StringLit(v string) Literal {
	return Literal{Kind: KindString, Str: v}
}

// BoolLit creates a boolean literal.
func BoolLit(v bool) Literal {
	return Literal{Kind: KindBool, Bool: v}
}

// NullLit creates a null literal.
func NullLit() Literal {
	return Literal{Kind: KindNull}
}

// IsNull reports whether the literal is null.
func (l Literal) IsNull() bool {
	return l.Kind == KindNull
}

// Value returns the literal as a plain Go value, or nil for null.
func (l Literal) Value() interface{} {
	switch l.Kind {
	case KindInt:
		return l.Int
	case KindFloat:
		return l.Float
	case KindString:
		return l.Str
	case KindBool:
		return l.Bool
	default:
		return nil
	}
}

// String renders the literal the way it would appear in a query.
func (l Literal) String() string {
	switch l.Kind {
	case KindInt:
		return strconv.FormatInt(l.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(l.Float, 'g', -1, 64)
	case KindString:
		return strconv.Quote(l.Str)
	case KindBool:
		return strconv.FormatBool(l.Bool)
	default:
		return "NULL"
	}
}
