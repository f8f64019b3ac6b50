package plan

import (
	"fmt"
	"strings"
)

// FormatExpr renders an expression as an infix string for diagnostics.
func FormatExpr(e Expr) string {
	switch x := e.(type) {
	case nil:
		return "<nil>"
	case *ColumnRef:
		return x.Name
	case *LiteralExpr:
		return x.Value.String()
	case *BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", FormatExpr(x.Left), x.Op, FormatExpr(x.Right))
	case *UnaryExpr:
		if x.Op == OpIsNull || x.Op == OpIsNotNull {
			return fmt.Sprintf("(%s %s)", FormatExpr(x.Input), x.Op)
		}
		return fmt.Sprintf("(%s %s)", x.Op, FormatExpr(x.Input))
	case *FunctionCall:
		args := make([]string, len(x.Args))
		for i, arg := range x.Args {
			args[i] = FormatExpr(arg)
		}
		return fmt.Sprintf("%s(%s)", x.Name, strings.Join(args, ", "))
	case *CaseExpr:
		var sb strings.Builder
		sb.WriteString("CASE")
		for _, when := range x.Whens {
			fmt.Fprintf(&sb, " WHEN %s THEN %s", FormatExpr(when.Cond), FormatExpr(when.Result))
		}
		if x.Else != nil {
			fmt.Fprintf(&sb, " ELSE %s", FormatExpr(x.Else))
		}
		sb.WriteString(" END")
		return sb.String()
	default:
		return fmt.Sprintf("<expr %T>", e)
	}
}

// Explain renders a plan as an indented multi-line tree. The rendering is
// purely diagnostic and has no effect on plan semantics.
func Explain(p Plan) string {
	var sb strings.Builder
	explainNode(&sb, p, 0)
	return strings.TrimRight(sb.String(), "\n")
}

func explainNode(sb *strings.Builder, p Plan, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n := p.(type) {
	case nil:
		fmt.Fprintf(sb, "%s<nil>\n", indent)
	case *TableScan:
		cols := "*"
		if n.Columns != nil {
			cols = strings.Join(n.Columns, ", ")
		}
		fmt.Fprintf(sb, "%sTableScan %s [%s]", indent, n.Table, cols)
		if n.Predicate != nil {
			fmt.Fprintf(sb, " predicate=%s", FormatExpr(n.Predicate))
		}
		sb.WriteString("\n")
	case *Filter:
		fmt.Fprintf(sb, "%sFilter %s\n", indent, FormatExpr(n.Predicate))
		explainNode(sb, n.Input, depth+1)
	case *Project:
		exprs := make([]string, len(n.Exprs))
		for i, e := range n.Exprs {
			exprs[i] = FormatExpr(e)
		}
		fmt.Fprintf(sb, "%sProject [%s]\n", indent, strings.Join(exprs, ", "))
		explainNode(sb, n.Input, depth+1)
	case *Aggregate:
		groups := make([]string, len(n.GroupBy))
		for i, e := range n.GroupBy {
			groups[i] = FormatExpr(e)
		}
		aggs := make([]string, len(n.Aggregates))
		for i, a := range n.Aggregates {
			aggs[i] = a.OutputName()
		}
		fmt.Fprintf(sb, "%sAggregate group=[%s] aggs=[%s]\n", indent,
			strings.Join(groups, ", "), strings.Join(aggs, ", "))
		explainNode(sb, n.Input, depth+1)
	case *Join:
		cond := ""
		if n.Cond.On != nil {
			cond = " on=" + FormatExpr(n.Cond.On)
		} else if len(n.Cond.Using) > 0 {
			cond = " using=[" + strings.Join(n.Cond.Using, ", ") + "]"
		}
		fmt.Fprintf(sb, "%s%s Join%s\n", indent, n.Type, cond)
		explainNode(sb, n.Left, depth+1)
		explainNode(sb, n.Right, depth+1)
	case *Sort:
		keys := make([]string, len(n.OrderBy))
		for i, key := range n.OrderBy {
			dir := "ASC"
			if !key.Asc {
				dir = "DESC"
			}
			keys[i] = FormatExpr(key.Expr) + " " + dir
		}
		fmt.Fprintf(sb, "%sSort [%s]\n", indent, strings.Join(keys, ", "))
		explainNode(sb, n.Input, depth+1)
	case *Limit:
		fmt.Fprintf(sb, "%sLimit count=%d offset=%d\n", indent, n.Count, n.Offset)
		explainNode(sb, n.Input, depth+1)
	case *Union:
		fmt.Fprintf(sb, "%sUnion\n", indent)
		for _, in := range n.Inputs {
			explainNode(sb, in, depth+1)
		}
	case *Distinct:
		fmt.Fprintf(sb, "%sDistinct\n", indent)
		explainNode(sb, n.Input, depth+1)
	default:
		fmt.Fprintf(sb, "%s<plan %T>\n", indent, p)
	}
}
