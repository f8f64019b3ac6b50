package optimizer

import (
	"github.com/guileen/planlite/catalog"
	"github.com/guileen/planlite/plan"
)

// Cost model constants. These are tunable heuristics, not physical laws:
// costs only need to be comparable between alternative shapes of the same
// plan, never accurate in absolute terms.
const (
	// defaultTableRows is assumed for tables without statistics. Large on
	// purpose so an unknown table is never favored by reordering.
	defaultTableRows = 1_000_000

	// defaultNodeCost covers node types the model does not reason about,
	// keeping the recursion total.
	defaultNodeCost = 1000.0

	// joinSelectivity is the fixed fraction of the cross product assumed
	// to survive a join.
	joinSelectivity = 0.1
)

// Base selectivities for predicate shapes, refined by column statistics
// when available.
const (
	selectivityEquality   = 0.1
	selectivityComparison = 0.33
	selectivityAnd        = 0.1
	selectivityOr         = 0.5
	selectivityDefault    = 0.5
)

// EstimateCost returns the relative cost of a plan. The result is always
// non-negative and finite; unmodeled node types fall back to a fixed
// default rather than failing.
func (o *Optimizer) EstimateCost(p plan.Plan) float64 {
	switch n := p.(type) {
	case *plan.TableScan:
		return o.tableRows(n.Table)
	case *plan.Filter:
		return o.EstimateCost(n.Input) * o.filterSelectivity(n)
	case *plan.Join:
		return o.EstimateCost(n.Left) * o.EstimateCost(n.Right) * joinSelectivity
	default:
		return defaultNodeCost
	}
}

func (o *Optimizer) tableRows(table string) float64 {
	if o.stats != nil {
		if stats, ok := o.stats.TableStatistics(table); ok {
			return float64(stats.RowCount)
		}
	}
	return defaultTableRows
}

// filterSelectivity estimates the selectivity of a filter node. When the
// filter sits directly on a table scan with known statistics, column-level
// statistics refine the syntactic estimate.
func (o *Optimizer) filterSelectivity(f *plan.Filter) float64 {
	if scan, ok := f.Input.(*plan.TableScan); ok && o.stats != nil {
		if stats, found := o.stats.TableStatistics(scan.Table); found {
			return o.selectivityWithStats(f.Predicate, stats)
		}
	}
	return EstimateSelectivity(f.Predicate)
}

// EstimateSelectivity maps a predicate to the fraction of rows it is
// expected to retain, from shape alone. Total: every expression variant
// resolves to a defined value, defaulting to 0.5.
func EstimateSelectivity(e plan.Expr) float64 {
	bin, ok := e.(*plan.BinaryExpr)
	if !ok {
		return selectivityDefault
	}
	switch bin.Op {
	case plan.OpEq:
		return selectivityEquality
	case plan.OpLt, plan.OpLe, plan.OpGt, plan.OpGe:
		return selectivityComparison
	case plan.OpAnd:
		return selectivityAnd
	case plan.OpOr:
		return selectivityOr
	default:
		return selectivityDefault
	}
}

// selectivityWithStats refines the syntactic estimate for predicates of the
// shape `column <op> literal` using the column's distinct count and
// histogram, when the table carries them.
func (o *Optimizer) selectivityWithStats(e plan.Expr, stats *catalog.TableStatistics) float64 {
	bin, ok := e.(*plan.BinaryExpr)
	if !ok {
		return EstimateSelectivity(e)
	}

	switch bin.Op {
	case plan.OpAnd:
		return selectivityAnd
	case plan.OpOr:
		return selectivityOr
	}

	op := bin.Op
	col, lit, ok := columnLiteralOperands(bin)
	if !ok {
		// Try the mirrored `literal <op> column` form.
		lhs, lok := bin.Left.(*plan.LiteralExpr)
		rhs, rok := bin.Right.(*plan.ColumnRef)
		if !lok || !rok {
			return EstimateSelectivity(e)
		}
		col, lit, op = rhs, lhs.Value, mirrorOp(bin.Op)
	}
	colStats := stats.Column(col.Name)
	if colStats == nil {
		return EstimateSelectivity(e)
	}

	switch op {
	case plan.OpEq:
		if colStats.DistinctCount > 0 {
			return 1.0 / float64(colStats.DistinctCount)
		}
		return selectivityEquality
	case plan.OpLt, plan.OpLe, plan.OpGt, plan.OpGe:
		if sel, ok := histogramRangeSelectivity(colStats.Histogram, op, lit); ok {
			return sel
		}
		return selectivityComparison
	default:
		return EstimateSelectivity(e)
	}
}

// columnLiteralOperands matches `column <op> literal` or the mirrored
// `literal <op> column`, returning the column and literal with the operator
// normalized to the column-on-the-left reading.
func columnLiteralOperands(bin *plan.BinaryExpr) (*plan.ColumnRef, plan.Literal, bool) {
	if col, ok := bin.Left.(*plan.ColumnRef); ok {
		if lit, ok := bin.Right.(*plan.LiteralExpr); ok {
			return col, lit.Value, true
		}
	}
	return nil, plan.Literal{}, false
}

// mirrorOp flips a comparison for the literal-on-the-left reading.
func mirrorOp(op plan.BinaryOp) plan.BinaryOp {
	switch op {
	case plan.OpLt:
		return plan.OpGt
	case plan.OpLe:
		return plan.OpGe
	case plan.OpGt:
		return plan.OpLt
	case plan.OpGe:
		return plan.OpLe
	default:
		return op
	}
}

// histogramRangeSelectivity sums bucket fractions on the kept side of a
// range predicate. Only numeric literals can be positioned in a histogram.
func histogramRangeSelectivity(buckets []catalog.Bucket, op plan.BinaryOp, lit plan.Literal) (float64, bool) {
	if len(buckets) == 0 {
		return 0, false
	}
	var value float64
	switch lit.Kind {
	case plan.KindInt:
		value = float64(lit.Int)
	case plan.KindFloat:
		value = lit.Float
	default:
		return 0, false
	}

	below := 0.0
	for _, b := range buckets {
		if b.UpperBound <= value {
			below += b.Fraction
		}
	}
	if below > 1.0 {
		below = 1.0
	}

	switch op {
	case plan.OpLt, plan.OpLe:
		return below, true
	case plan.OpGt, plan.OpGe:
		return 1.0 - below, true
	default:
		return 0, false
	}
}
