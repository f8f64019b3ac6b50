package plan

import "sort"

// ExtractColumns returns every column name referenced by the expression,
// deduplicated and sorted.
func ExtractColumns(e Expr) []string {
	set := make(map[string]struct{})
	collectExprColumns(e, set)
	return sortedKeys(set)
}

func collectExprColumns(e Expr, set map[string]struct{}) {
	switch x := e.(type) {
	case nil:
	case *ColumnRef:
		set[x.Name] = struct{}{}
	case *LiteralExpr:
	case *BinaryExpr:
		collectExprColumns(x.Left, set)
		collectExprColumns(x.Right, set)
	case *UnaryExpr:
		collectExprColumns(x.Input, set)
	case *FunctionCall:
		for _, arg := range x.Args {
			collectExprColumns(arg, set)
		}
	case *CaseExpr:
		for _, when := range x.Whens {
			collectExprColumns(when.Cond, set)
			collectExprColumns(when.Result, set)
		}
		collectExprColumns(x.Else, set)
	}
}

// RequiredColumns returns the transitive set of column names referenced
// anywhere in the plan: predicates, projections, aggregates, join
// conditions and sort keys.
func RequiredColumns(p Plan) []string {
	set := make(map[string]struct{})
	collectPlanColumns(p, set)
	return sortedKeys(set)
}

func collectPlanColumns(p Plan, set map[string]struct{}) {
	switch n := p.(type) {
	case nil:
	case *TableScan:
		for _, col := range n.Columns {
			set[col] = struct{}{}
		}
		collectExprColumns(n.Predicate, set)
	case *Filter:
		collectExprColumns(n.Predicate, set)
		collectPlanColumns(n.Input, set)
	case *Project:
		for _, e := range n.Exprs {
			collectExprColumns(e, set)
		}
		collectPlanColumns(n.Input, set)
	case *Aggregate:
		for _, e := range n.GroupBy {
			collectExprColumns(e, set)
		}
		for _, agg := range n.Aggregates {
			collectExprColumns(agg.Expr, set)
		}
		collectPlanColumns(n.Input, set)
	case *Join:
		collectExprColumns(n.Cond.On, set)
		for _, col := range n.Cond.Using {
			set[col] = struct{}{}
		}
		collectPlanColumns(n.Left, set)
		collectPlanColumns(n.Right, set)
	case *Sort:
		for _, key := range n.OrderBy {
			collectExprColumns(key.Expr, set)
		}
		collectPlanColumns(n.Input, set)
	case *Limit:
		collectPlanColumns(n.Input, set)
	case *Union:
		for _, in := range n.Inputs {
			collectPlanColumns(in, set)
		}
	case *Distinct:
		collectPlanColumns(n.Input, set)
	}
}

// OutputColumns returns the column names a plan node produces, when they can
// be proven from the tree alone. The second result is false when the set is
// unknowable, e.g. a scan with an implicit all-columns list or a projection
// of computed expressions.
func OutputColumns(p Plan) ([]string, bool) {
	switch n := p.(type) {
	case *TableScan:
		if n.Columns == nil {
			return nil, false
		}
		return append([]string(nil), n.Columns...), true
	case *Filter:
		return OutputColumns(n.Input)
	case *Project:
		cols := make([]string, 0, len(n.Exprs))
		for _, e := range n.Exprs {
			ref, ok := e.(*ColumnRef)
			if !ok {
				return nil, false
			}
			cols = append(cols, ref.Name)
		}
		return cols, true
	case *Aggregate:
		cols := make([]string, 0, len(n.GroupBy)+len(n.Aggregates))
		for _, e := range n.GroupBy {
			ref, ok := e.(*ColumnRef)
			if !ok {
				return nil, false
			}
			cols = append(cols, ref.Name)
		}
		for _, agg := range n.Aggregates {
			cols = append(cols, agg.OutputName())
		}
		return cols, true
	case *Join:
		left, ok := OutputColumns(n.Left)
		if !ok {
			return nil, false
		}
		right, ok := OutputColumns(n.Right)
		if !ok {
			return nil, false
		}
		return append(left, right...), true
	case *Sort:
		return OutputColumns(n.Input)
	case *Limit:
		return OutputColumns(n.Input)
	case *Union:
		if len(n.Inputs) == 0 {
			return nil, false
		}
		return OutputColumns(n.Inputs[0])
	case *Distinct:
		return OutputColumns(n.Input)
	default:
		return nil, false
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
