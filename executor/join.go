package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/guileen/planlite/plan"
	"github.com/guileen/planlite/storage"
)

func (e *Executor) runJoin(ctx context.Context, j *plan.Join) (*frame, error) {
	left, err := e.run(ctx, j.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.run(ctx, j.Right)
	if err != nil {
		return nil, err
	}

	columns := mergeColumns(left.columns, right.columns)

	if j.Type == plan.CrossJoin {
		out := &frame{columns: columns}
		for _, lrow := range left.rows {
			for _, rrow := range right.rows {
				out.rows = append(out.rows, mergeRows(lrow, rrow))
			}
		}
		return out, nil
	}

	if leftKeys, rightKeys, ok := equiJoinKeys(j.Cond, left.columns, right.columns); ok {
		return hashJoin(left, right, leftKeys, rightKeys, j.Type, columns)
	}
	if j.Cond.On == nil {
		return nil, fmt.Errorf("%s join requires a condition", j.Type)
	}
	return nestedLoopJoin(left, right, j.Cond.On, j.Type, columns)
}

// equiJoinKeys extracts pairwise equality keys from the join condition:
// either the USING column list, or an ON conjunction made entirely of
// column = column terms with one side each. Any other shape falls back to
// the nested loop path.
func equiJoinKeys(cond plan.JoinCondition, leftCols, rightCols []string) (leftKeys, rightKeys []string, ok bool) {
	if len(cond.Using) > 0 {
		return cond.Using, cond.Using, true
	}
	if cond.On == nil {
		return nil, nil, false
	}

	leftSet := columnNameSet(leftCols)
	rightSet := columnNameSet(rightCols)
	for _, conjunct := range conjuncts(cond.On) {
		eq, isEq := conjunct.(*plan.BinaryExpr)
		if !isEq || eq.Op != plan.OpEq {
			return nil, nil, false
		}
		a, aok := eq.Left.(*plan.ColumnRef)
		b, bok := eq.Right.(*plan.ColumnRef)
		if !aok || !bok {
			return nil, nil, false
		}
		switch {
		case inSet(leftSet, a.Name) && inSet(rightSet, b.Name):
			leftKeys = append(leftKeys, a.Name)
			rightKeys = append(rightKeys, b.Name)
		case inSet(leftSet, b.Name) && inSet(rightSet, a.Name):
			leftKeys = append(leftKeys, b.Name)
			rightKeys = append(rightKeys, a.Name)
		default:
			return nil, nil, false
		}
	}
	return leftKeys, rightKeys, len(leftKeys) > 0
}

func conjuncts(e plan.Expr) []plan.Expr {
	if bin, ok := e.(*plan.BinaryExpr); ok && bin.Op == plan.OpAnd {
		return append(conjuncts(bin.Left), conjuncts(bin.Right)...)
	}
	return []plan.Expr{e}
}

// hashJoin builds its hash table from the right input and probes with the
// left, the convention join reordering optimizes for. Null keys never
// match.
func hashJoin(left, right *frame, leftKeys, rightKeys []string, joinType plan.JoinType, columns []string) (*frame, error) {
	buckets := make(map[string][]int, len(right.rows))
	for i, rrow := range right.rows {
		key, ok := joinKey(rightKeys, rrow)
		if !ok {
			continue
		}
		buckets[key] = append(buckets[key], i)
	}

	out := &frame{columns: columns}
	matchedRight := make([]bool, len(right.rows))
	for _, lrow := range left.rows {
		matched := false
		if key, ok := joinKey(leftKeys, lrow); ok {
			for _, idx := range buckets[key] {
				out.rows = append(out.rows, mergeRows(lrow, right.rows[idx]))
				matchedRight[idx] = true
				matched = true
			}
		}
		if !matched && (joinType == plan.LeftJoin || joinType == plan.FullJoin) {
			out.rows = append(out.rows, mergeRows(lrow, nil))
		}
	}
	if joinType == plan.RightJoin || joinType == plan.FullJoin {
		for i, rrow := range right.rows {
			if !matchedRight[i] {
				out.rows = append(out.rows, mergeRows(nil, rrow))
			}
		}
	}
	return out, nil
}

func nestedLoopJoin(left, right *frame, on plan.Expr, joinType plan.JoinType, columns []string) (*frame, error) {
	out := &frame{columns: columns}
	matchedRight := make([]bool, len(right.rows))
	for _, lrow := range left.rows {
		matched := false
		for i, rrow := range right.rows {
			merged := mergeRows(lrow, rrow)
			keep, err := evalExpr(on, merged)
			if err != nil {
				return nil, err
			}
			if truthy(keep) {
				out.rows = append(out.rows, merged)
				matchedRight[i] = true
				matched = true
			}
		}
		if !matched && (joinType == plan.LeftJoin || joinType == plan.FullJoin) {
			out.rows = append(out.rows, mergeRows(lrow, nil))
		}
	}
	if joinType == plan.RightJoin || joinType == plan.FullJoin {
		for i, rrow := range right.rows {
			if !matchedRight[i] {
				out.rows = append(out.rows, mergeRows(nil, rrow))
			}
		}
	}
	return out, nil
}

// joinKey fingerprints the key columns of one row; numerics are normalized
// so an int64 key matches the float64 the JSON storage path produces. The
// second result is false when any key value is null.
func joinKey(keys []string, row storage.Row) (string, bool) {
	var sb strings.Builder
	for _, col := range keys {
		v := row[col]
		if v == nil {
			return "", false
		}
		if f, ok := storage.AsFloat(v); ok {
			fmt.Fprintf(&sb, "f:%v\x00", f)
		} else {
			fmt.Fprintf(&sb, "%T:%v\x00", v, v)
		}
	}
	return sb.String(), true
}

// mergeRows overlays a right row onto a left row; on column collision
// (USING joins) the left value wins. Either side may be nil for outer join
// padding.
func mergeRows(lrow, rrow storage.Row) storage.Row {
	merged := make(storage.Row, len(lrow)+len(rrow))
	for k, v := range lrow {
		merged[k] = v
	}
	for k, v := range rrow {
		if _, exists := merged[k]; !exists {
			merged[k] = v
		}
	}
	return merged
}

func mergeColumns(left, right []string) []string {
	out := append([]string(nil), left...)
	seen := columnNameSet(left)
	for _, col := range right {
		if !inSet(seen, col) {
			out = append(out, col)
		}
	}
	return out
}

func columnNameSet(cols []string) map[string]struct{} {
	set := make(map[string]struct{}, len(cols))
	for _, col := range cols {
		set[col] = struct{}{}
	}
	return set
}

func inSet(set map[string]struct{}, name string) bool {
	_, ok := set[name]
	return ok
}
