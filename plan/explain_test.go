package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatExpr(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{"column", Col("age"), "age"},
		{"int literal", Lit(IntLit(42)), "42"},
		{"string literal", Lit(StringLit("oslo")), `"oslo"`},
		{"null literal", Lit(NullLit()), "NULL"},
		{"comparison", Binary(OpGt, Col("age"), Lit(IntLit(18))), "(age > 18)"},
		{
			"conjunction",
			And(Binary(OpGt, Col("age"), Lit(IntLit(18))), Binary(OpEq, Col("city"), Lit(StringLit("oslo")))),
			`((age > 18) AND (city = "oslo"))`,
		},
		{"not", &UnaryExpr{Op: OpNot, Input: Col("active")}, "(NOT active)"},
		{"is null", &UnaryExpr{Op: OpIsNull, Input: Col("email")}, "(email IS NULL)"},
		{"function", &FunctionCall{Name: "upper", Args: []Expr{Col("name")}}, "upper(name)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatExpr(tt.expr))
		})
	}
}

func TestExplain(t *testing.T) {
	p := &Project{
		Input: &Filter{
			Input:     &TableScan{Table: "users", Columns: []string{"name", "age"}},
			Predicate: Binary(OpGt, Col("age"), Lit(IntLit(18))),
		},
		Exprs: []Expr{Col("name")},
	}

	want := "Project [name]\n" +
		"  Filter (age > 18)\n" +
		"    TableScan users [name, age]"
	assert.Equal(t, want, Explain(p))
}

func TestExplainJoin(t *testing.T) {
	p := &Join{
		Left:  &TableScan{Table: "users"},
		Right: &TableScan{Table: "orders"},
		Cond:  JoinCondition{On: Binary(OpEq, Col("id"), Col("user_id"))},
		Type:  InnerJoin,
	}

	want := "INNER Join on=(id = user_id)\n" +
		"  TableScan users [*]\n" +
		"  TableScan orders [*]"
	assert.Equal(t, want, Explain(p))
}

func TestExplainScanWithPredicate(t *testing.T) {
	p := &TableScan{
		Table:     "users",
		Columns:   []string{"id"},
		Predicate: Binary(OpGt, Col("age"), Lit(IntLit(18))),
	}

	assert.Equal(t, "TableScan users [id] predicate=(age > 18)", Explain(p))
}
