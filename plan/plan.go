package plan

import (
	"fmt"
	"reflect"
)

// JoinType enumerates the supported join semantics.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	FullJoin
	CrossJoin
)

// String returns the SQL name of the join type.
func (t JoinType) String() string {
	switch t {
	case InnerJoin:
		return "INNER"
	case LeftJoin:
		return "LEFT"
	case RightJoin:
		return "RIGHT"
	case FullJoin:
		return "FULL"
	case CrossJoin:
		return "CROSS"
	default:
		return fmt.Sprintf("join(%d)", int(t))
	}
}

// AggFunc enumerates the supported aggregate functions.
type AggFunc int

const (
	AggSum AggFunc = iota
	AggAvg
	AggCount
	AggMin
	AggMax
	AggStdDev
	AggVariance
)

// String returns the SQL name of the aggregate function.
func (f AggFunc) String() string {
	switch f {
	case AggSum:
		return "SUM"
	case AggAvg:
		return "AVG"
	case AggCount:
		return "COUNT"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	case AggStdDev:
		return "STDDEV"
	case AggVariance:
		return "VARIANCE"
	default:
		return fmt.Sprintf("agg(%d)", int(f))
	}
}

// AggExpr is one aggregate computation inside an Aggregate node.
type AggExpr struct {
	Func  AggFunc
	Expr  Expr
	Alias string
}

// OutputName returns the column name the aggregate produces.
func (a AggExpr) OutputName() string {
	if a.Alias != "" {
		return a.Alias
	}
	return fmt.Sprintf("%s(%s)", a.Func, FormatExpr(a.Expr))
}

// JoinCondition carries either an ON expression or a USING column list,
// never both.
type JoinCondition struct {
	On    Expr
	Using []string
}

// Plan is a logical relational operator tree. Like Expr it is a closed
// interface: the variant structs below are the only implementations. Plans
// are persistent values; every rewrite constructs a replacement tree, so
// two plans can always be compared structurally.
type Plan interface {
	planNode()
}

// TableScan reads a base table. Columns == nil means all columns; an
// explicit list fixes the output order, and projection pushdown may drop
// unused entries from it but never widens or reorders it. Predicate, when
// set, filters during the scan.
type TableScan struct {
	Table     string
	Columns   []string
	Predicate Expr
}

// Filter keeps only input rows satisfying Predicate.
type Filter struct {
	Input     Plan
	Predicate Expr
}

// Project computes one output column per expression.
type Project struct {
	Input Plan
	Exprs []Expr
}

// Aggregate groups the input by GroupBy and evaluates the aggregates per
// group. An empty GroupBy aggregates the whole input into a single row.
type Aggregate struct {
	Input      Plan
	GroupBy    []Expr
	Aggregates []AggExpr
}

// Join combines two inputs under a join condition.
type Join struct {
	Left  Plan
	Right Plan
	Cond  JoinCondition
	Type  JoinType
}

// SortKey is a single ordering term; Asc false means descending.
type SortKey struct {
	Expr Expr
	Asc  bool
}

// Sort orders the input by the given keys.
type Sort struct {
	Input   Plan
	OrderBy []SortKey
}

// Limit returns at most Count rows after skipping Offset rows.
type Limit struct {
	Input  Plan
	Count  int64
	Offset int64
}

// Union concatenates the rows of all inputs (UNION ALL semantics; wrap in
// Distinct for set union).
type Union struct {
	Inputs []Plan
}

// Distinct removes duplicate rows from the input.
type Distinct struct {
	Input Plan
}

func (*TableScan) planNode() {}
func (*Filter) planNode()    {}
func (*Project) planNode()   {}
func (*Aggregate) planNode() {}
func (*Join) planNode()      {}
func (*Sort) planNode()      {}
func (*Limit) planNode()     {}
func (*Union) planNode()     {}
func (*Distinct) planNode()  {}

// Children returns the direct child plans of a node, leaves returning nil.
func Children(p Plan) []Plan {
	switch n := p.(type) {
	case *TableScan:
		return nil
	case *Filter:
		return []Plan{n.Input}
	case *Project:
		return []Plan{n.Input}
	case *Aggregate:
		return []Plan{n.Input}
	case *Join:
		return []Plan{n.Left, n.Right}
	case *Sort:
		return []Plan{n.Input}
	case *Limit:
		return []Plan{n.Input}
	case *Union:
		return append([]Plan(nil), n.Inputs...)
	case *Distinct:
		return []Plan{n.Input}
	default:
		return nil
	}
}

// Equal reports structural equality of two plans.
func Equal(a, b Plan) bool {
	return reflect.DeepEqual(a, b)
}

// EqualExpr reports structural equality of two expressions.
func EqualExpr(a, b Expr) bool {
	return reflect.DeepEqual(a, b)
}
