package plan

import (
	"encoding/json"
	"fmt"
)

// JSON wire format for plans and expressions, used by the HTTP API. Every
// object carries a discriminator field ("node" for plans, "expr" for
// expressions); unknown discriminators are decoding errors rather than
// silent no-ops.

type literalEnvelope struct {
	Kind   string   `json:"kind"`
	Int    *int64   `json:"int,omitempty"`
	Float  *float64 `json:"float,omitempty"`
	String *string  `json:"string,omitempty"`
	Bool   *bool    `json:"bool,omitempty"`
}

type whenEnvelope struct {
	Cond   json.RawMessage `json:"cond"`
	Result json.RawMessage `json:"result"`
}

type exprEnvelope struct {
	Expr  string            `json:"expr"`
	Name  string            `json:"name,omitempty"`
	Value *literalEnvelope  `json:"value,omitempty"`
	Op    string            `json:"op,omitempty"`
	Left  json.RawMessage   `json:"left,omitempty"`
	Right json.RawMessage   `json:"right,omitempty"`
	Input json.RawMessage   `json:"input,omitempty"`
	Args  []json.RawMessage `json:"args,omitempty"`
	Whens []whenEnvelope    `json:"whens,omitempty"`
	Else  json.RawMessage   `json:"else,omitempty"`
}

type aggEnvelope struct {
	Func  string          `json:"func"`
	Expr  json.RawMessage `json:"expr"`
	Alias string          `json:"alias,omitempty"`
}

type sortKeyEnvelope struct {
	Expr json.RawMessage `json:"expr"`
	Asc  bool            `json:"asc"`
}

type planEnvelope struct {
	Node       string            `json:"node"`
	Table      string            `json:"table,omitempty"`
	Columns    []string          `json:"columns,omitempty"`
	Predicate  json.RawMessage   `json:"predicate,omitempty"`
	Input      json.RawMessage   `json:"input,omitempty"`
	Exprs      []json.RawMessage `json:"exprs,omitempty"`
	GroupBy    []json.RawMessage `json:"group_by,omitempty"`
	Aggregates []aggEnvelope     `json:"aggregates,omitempty"`
	Left       json.RawMessage   `json:"left,omitempty"`
	Right      json.RawMessage   `json:"right,omitempty"`
	On         json.RawMessage   `json:"on,omitempty"`
	Using      []string          `json:"using,omitempty"`
	JoinType   string            `json:"join_type,omitempty"`
	OrderBy    []sortKeyEnvelope `json:"order_by,omitempty"`
	Count      int64             `json:"count,omitempty"`
	Offset     int64             `json:"offset,omitempty"`
	Inputs     []json.RawMessage `json:"inputs,omitempty"`
}

var binaryOpNames = map[BinaryOp]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
	OpEq: "=", OpNe: "<>", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpAnd: "and", OpOr: "or",
}

var unaryOpNames = map[UnaryOp]string{
	OpNot: "not", OpNeg: "neg", OpIsNull: "is_null", OpIsNotNull: "is_not_null",
}

var joinTypeNames = map[JoinType]string{
	InnerJoin: "inner", LeftJoin: "left", RightJoin: "right",
	FullJoin: "full", CrossJoin: "cross",
}

var aggFuncNames = map[AggFunc]string{
	AggSum: "sum", AggAvg: "avg", AggCount: "count", AggMin: "min",
	AggMax: "max", AggStdDev: "stddev", AggVariance: "variance",
}

var (
	binaryOpValues = invert(binaryOpNames)
	unaryOpValues  = invert(unaryOpNames)
	joinTypeValues = invert(joinTypeNames)
	aggFuncValues  = invert(aggFuncNames)
)

func invert[K comparable](m map[K]string) map[string]K {
	out := make(map[string]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

func marshalLiteral(l Literal) *literalEnvelope {
	env := &literalEnvelope{Kind: l.Kind.String()}
	switch l.Kind {
	case KindInt:
		env.Int = &l.Int
	case KindFloat:
		env.Float = &l.Float
	case KindString:
		env.String = &l.Str
	case KindBool:
		env.Bool = &l.Bool
	}
	return env
}

func unmarshalLiteral(env *literalEnvelope) (Literal, error) {
	switch env.Kind {
	case "null":
		return NullLit(), nil
	case "int":
		if env.Int == nil {
			return Literal{}, fmt.Errorf("int literal missing value")
		}
		return IntLit(*env.Int), nil
	case "float":
		if env.Float == nil {
			return Literal{}, fmt.Errorf("float literal missing value")
		}
		return FloatLit(*env.Float), nil
	case "string":
		if env.String == nil {
			return Literal{}, fmt.Errorf("string literal missing value")
		}
		return StringLit(*env.String), nil
	case "bool":
		if env.Bool == nil {
			return Literal{}, fmt.Errorf("bool literal missing value")
		}
		return BoolLit(*env.Bool), nil
	default:
		return Literal{}, fmt.Errorf("unknown literal kind %q", env.Kind)
	}
}

// MarshalExpr encodes an expression into its JSON wire form.
func MarshalExpr(e Expr) ([]byte, error) {
	env, err := exprToEnvelope(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

func exprToEnvelope(e Expr) (*exprEnvelope, error) {
	switch x := e.(type) {
	case *ColumnRef:
		return &exprEnvelope{Expr: "column", Name: x.Name}, nil
	case *LiteralExpr:
		return &exprEnvelope{Expr: "literal", Value: marshalLiteral(x.Value)}, nil
	case *BinaryExpr:
		left, err := MarshalExpr(x.Left)
		if err != nil {
			return nil, err
		}
		right, err := MarshalExpr(x.Right)
		if err != nil {
			return nil, err
		}
		return &exprEnvelope{Expr: "binary", Op: binaryOpNames[x.Op], Left: left, Right: right}, nil
	case *UnaryExpr:
		input, err := MarshalExpr(x.Input)
		if err != nil {
			return nil, err
		}
		return &exprEnvelope{Expr: "unary", Op: unaryOpNames[x.Op], Input: input}, nil
	case *FunctionCall:
		args := make([]json.RawMessage, len(x.Args))
		for i, arg := range x.Args {
			raw, err := MarshalExpr(arg)
			if err != nil {
				return nil, err
			}
			args[i] = raw
		}
		return &exprEnvelope{Expr: "function", Name: x.Name, Args: args}, nil
	case *CaseExpr:
		whens := make([]whenEnvelope, len(x.Whens))
		for i, when := range x.Whens {
			cond, err := MarshalExpr(when.Cond)
			if err != nil {
				return nil, err
			}
			result, err := MarshalExpr(when.Result)
			if err != nil {
				return nil, err
			}
			whens[i] = whenEnvelope{Cond: cond, Result: result}
		}
		env := &exprEnvelope{Expr: "case", Whens: whens}
		if x.Else != nil {
			elseRaw, err := MarshalExpr(x.Else)
			if err != nil {
				return nil, err
			}
			env.Else = elseRaw
		}
		return env, nil
	default:
		return nil, fmt.Errorf("cannot marshal expression %T", e)
	}
}

// UnmarshalExpr decodes an expression from its JSON wire form.
func UnmarshalExpr(data []byte) (Expr, error) {
	var env exprEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode expression: %w", err)
	}
	switch env.Expr {
	case "column":
		if env.Name == "" {
			return nil, fmt.Errorf("column expression missing name")
		}
		return Col(env.Name), nil
	case "literal":
		if env.Value == nil {
			return nil, fmt.Errorf("literal expression missing value")
		}
		lit, err := unmarshalLiteral(env.Value)
		if err != nil {
			return nil, err
		}
		return Lit(lit), nil
	case "binary":
		op, ok := binaryOpValues[env.Op]
		if !ok {
			return nil, fmt.Errorf("unknown binary operator %q", env.Op)
		}
		left, err := UnmarshalExpr(env.Left)
		if err != nil {
			return nil, err
		}
		right, err := UnmarshalExpr(env.Right)
		if err != nil {
			return nil, err
		}
		return Binary(op, left, right), nil
	case "unary":
		op, ok := unaryOpValues[env.Op]
		if !ok {
			return nil, fmt.Errorf("unknown unary operator %q", env.Op)
		}
		input, err := UnmarshalExpr(env.Input)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: op, Input: input}, nil
	case "function":
		args := make([]Expr, len(env.Args))
		for i, raw := range env.Args {
			arg, err := UnmarshalExpr(raw)
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}
		return &FunctionCall{Name: env.Name, Args: args}, nil
	case "case":
		whens := make([]WhenClause, len(env.Whens))
		for i, w := range env.Whens {
			cond, err := UnmarshalExpr(w.Cond)
			if err != nil {
				return nil, err
			}
			result, err := UnmarshalExpr(w.Result)
			if err != nil {
				return nil, err
			}
			whens[i] = WhenClause{Cond: cond, Result: result}
		}
		var elseExpr Expr
		if len(env.Else) > 0 {
			var err error
			elseExpr, err = UnmarshalExpr(env.Else)
			if err != nil {
				return nil, err
			}
		}
		return &CaseExpr{Whens: whens, Else: elseExpr}, nil
	default:
		return nil, fmt.Errorf("unknown expression node %q", env.Expr)
	}
}

// MarshalPlan encodes a plan into its JSON wire form.
func MarshalPlan(p Plan) ([]byte, error) {
	env, err := planToEnvelope(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

func planToEnvelope(p Plan) (*planEnvelope, error) {
	marshalOptExpr := func(e Expr) (json.RawMessage, error) {
		if e == nil {
			return nil, nil
		}
		return MarshalExpr(e)
	}
	switch n := p.(type) {
	case *TableScan:
		pred, err := marshalOptExpr(n.Predicate)
		if err != nil {
			return nil, err
		}
		return &planEnvelope{Node: "table_scan", Table: n.Table, Columns: n.Columns, Predicate: pred}, nil
	case *Filter:
		pred, err := MarshalExpr(n.Predicate)
		if err != nil {
			return nil, err
		}
		input, err := MarshalPlan(n.Input)
		if err != nil {
			return nil, err
		}
		return &planEnvelope{Node: "filter", Predicate: pred, Input: input}, nil
	case *Project:
		input, err := MarshalPlan(n.Input)
		if err != nil {
			return nil, err
		}
		exprs := make([]json.RawMessage, len(n.Exprs))
		for i, e := range n.Exprs {
			raw, err := MarshalExpr(e)
			if err != nil {
				return nil, err
			}
			exprs[i] = raw
		}
		return &planEnvelope{Node: "project", Input: input, Exprs: exprs}, nil
	case *Aggregate:
		input, err := MarshalPlan(n.Input)
		if err != nil {
			return nil, err
		}
		groupBy := make([]json.RawMessage, len(n.GroupBy))
		for i, e := range n.GroupBy {
			raw, err := MarshalExpr(e)
			if err != nil {
				return nil, err
			}
			groupBy[i] = raw
		}
		aggs := make([]aggEnvelope, len(n.Aggregates))
		for i, agg := range n.Aggregates {
			raw, err := MarshalExpr(agg.Expr)
			if err != nil {
				return nil, err
			}
			aggs[i] = aggEnvelope{Func: aggFuncNames[agg.Func], Expr: raw, Alias: agg.Alias}
		}
		return &planEnvelope{Node: "aggregate", Input: input, GroupBy: groupBy, Aggregates: aggs}, nil
	case *Join:
		left, err := MarshalPlan(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := MarshalPlan(n.Right)
		if err != nil {
			return nil, err
		}
		on, err := marshalOptExpr(n.Cond.On)
		if err != nil {
			return nil, err
		}
		return &planEnvelope{
			Node: "join", Left: left, Right: right,
			On: on, Using: n.Cond.Using, JoinType: joinTypeNames[n.Type],
		}, nil
	case *Sort:
		input, err := MarshalPlan(n.Input)
		if err != nil {
			return nil, err
		}
		keys := make([]sortKeyEnvelope, len(n.OrderBy))
		for i, key := range n.OrderBy {
			raw, err := MarshalExpr(key.Expr)
			if err != nil {
				return nil, err
			}
			keys[i] = sortKeyEnvelope{Expr: raw, Asc: key.Asc}
		}
		return &planEnvelope{Node: "sort", Input: input, OrderBy: keys}, nil
	case *Limit:
		input, err := MarshalPlan(n.Input)
		if err != nil {
			return nil, err
		}
		return &planEnvelope{Node: "limit", Input: input, Count: n.Count, Offset: n.Offset}, nil
	case *Union:
		inputs := make([]json.RawMessage, len(n.Inputs))
		for i, in := range n.Inputs {
			raw, err := MarshalPlan(in)
			if err != nil {
				return nil, err
			}
			inputs[i] = raw
		}
		return &planEnvelope{Node: "union", Inputs: inputs}, nil
	case *Distinct:
		input, err := MarshalPlan(n.Input)
		if err != nil {
			return nil, err
		}
		return &planEnvelope{Node: "distinct", Input: input}, nil
	default:
		return nil, fmt.Errorf("cannot marshal plan %T", p)
	}
}

// UnmarshalPlan decodes a plan from its JSON wire form.
func UnmarshalPlan(data []byte) (Plan, error) {
	var env planEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	unmarshalOptExpr := func(raw json.RawMessage) (Expr, error) {
		if len(raw) == 0 {
			return nil, nil
		}
		return UnmarshalExpr(raw)
	}
	switch env.Node {
	case "table_scan":
		if env.Table == "" {
			return nil, fmt.Errorf("table_scan missing table name")
		}
		pred, err := unmarshalOptExpr(env.Predicate)
		if err != nil {
			return nil, err
		}
		return &TableScan{Table: env.Table, Columns: env.Columns, Predicate: pred}, nil
	case "filter":
		pred, err := UnmarshalExpr(env.Predicate)
		if err != nil {
			return nil, err
		}
		input, err := UnmarshalPlan(env.Input)
		if err != nil {
			return nil, err
		}
		return &Filter{Input: input, Predicate: pred}, nil
	case "project":
		input, err := UnmarshalPlan(env.Input)
		if err != nil {
			return nil, err
		}
		exprs := make([]Expr, len(env.Exprs))
		for i, raw := range env.Exprs {
			e, err := UnmarshalExpr(raw)
			if err != nil {
				return nil, err
			}
			exprs[i] = e
		}
		return &Project{Input: input, Exprs: exprs}, nil
	case "aggregate":
		input, err := UnmarshalPlan(env.Input)
		if err != nil {
			return nil, err
		}
		groupBy := make([]Expr, len(env.GroupBy))
		for i, raw := range env.GroupBy {
			e, err := UnmarshalExpr(raw)
			if err != nil {
				return nil, err
			}
			groupBy[i] = e
		}
		aggs := make([]AggExpr, len(env.Aggregates))
		for i, agg := range env.Aggregates {
			fn, ok := aggFuncValues[agg.Func]
			if !ok {
				return nil, fmt.Errorf("unknown aggregate function %q", agg.Func)
			}
			e, err := UnmarshalExpr(agg.Expr)
			if err != nil {
				return nil, err
			}
			aggs[i] = AggExpr{Func: fn, Expr: e, Alias: agg.Alias}
		}
		return &Aggregate{Input: input, GroupBy: groupBy, Aggregates: aggs}, nil
	case "join":
		left, err := UnmarshalPlan(env.Left)
		if err != nil {
			return nil, err
		}
		right, err := UnmarshalPlan(env.Right)
		if err != nil {
			return nil, err
		}
		joinType, ok := joinTypeValues[env.JoinType]
		if !ok {
			return nil, fmt.Errorf("unknown join type %q", env.JoinType)
		}
		on, err := unmarshalOptExpr(env.On)
		if err != nil {
			return nil, err
		}
		if on != nil && len(env.Using) > 0 {
			return nil, fmt.Errorf("join condition has both on and using")
		}
		return &Join{Left: left, Right: right, Cond: JoinCondition{On: on, Using: env.Using}, Type: joinType}, nil
	case "sort":
		input, err := UnmarshalPlan(env.Input)
		if err != nil {
			return nil, err
		}
		keys := make([]SortKey, len(env.OrderBy))
		for i, key := range env.OrderBy {
			e, err := UnmarshalExpr(key.Expr)
			if err != nil {
				return nil, err
			}
			keys[i] = SortKey{Expr: e, Asc: key.Asc}
		}
		return &Sort{Input: input, OrderBy: keys}, nil
	case "limit":
		input, err := UnmarshalPlan(env.Input)
		if err != nil {
			return nil, err
		}
		return &Limit{Input: input, Count: env.Count, Offset: env.Offset}, nil
	case "union":
		inputs := make([]Plan, len(env.Inputs))
		for i, raw := range env.Inputs {
			in, err := UnmarshalPlan(raw)
			if err != nil {
				return nil, err
			}
			inputs[i] = in
		}
		return &Union{Inputs: inputs}, nil
	case "distinct":
		input, err := UnmarshalPlan(env.Input)
		if err != nil {
			return nil, err
		}
		return &Distinct{Input: input}, nil
	default:
		return nil, fmt.Errorf("unknown plan node %q", env.Node)
	}
}
