package executor

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/guileen/planlite/plan"
	"github.com/guileen/planlite/storage"
)

// aggState accumulates one aggregate for one group. Null inputs are
// skipped, so an all-null group yields a null result for everything but
// COUNT.
type aggState struct {
	count   int64
	numeric int64
	sumF    float64
	sumSq   float64
	allInts bool
	sumI    int64
	min     storage.Value
	max     storage.Value
}

func newAggState() *aggState {
	return &aggState{allInts: true}
}

func (s *aggState) add(v storage.Value) {
	if v == nil {
		return
	}
	s.count++

	if s.min == nil {
		s.min, s.max = v, v
	} else {
		if cmp, ok := storage.Compare(v, s.min); ok && cmp < 0 {
			s.min = v
		}
		if cmp, ok := storage.Compare(v, s.max); ok && cmp > 0 {
			s.max = v
		}
	}

	if i, ok := asInt(v); ok {
		s.sumI += i
	} else {
		s.allInts = false
	}
	if f, ok := storage.AsFloat(v); ok {
		s.numeric++
		s.sumF += f
		s.sumSq += f * f
	}
}

// requireNumeric guards the sum-based aggregates: every non-null input
// must have been numeric.
func (s *aggState) requireNumeric(fn plan.AggFunc) error {
	if s.numeric != s.count {
		return fmt.Errorf("%s requires numeric input", fn)
	}
	return nil
}

func (s *aggState) result(fn plan.AggFunc) (storage.Value, error) {
	switch fn {
	case plan.AggCount:
		return s.count, nil
	case plan.AggSum:
		if err := s.requireNumeric(fn); err != nil {
			return nil, err
		}
		if s.count == 0 {
			return nil, nil
		}
		if s.allInts {
			return s.sumI, nil
		}
		return s.sumF, nil
	case plan.AggAvg:
		if err := s.requireNumeric(fn); err != nil {
			return nil, err
		}
		if s.count == 0 {
			return nil, nil
		}
		return s.sumF / float64(s.count), nil
	case plan.AggMin:
		return s.min, nil
	case plan.AggMax:
		return s.max, nil
	case plan.AggVariance:
		if err := s.requireNumeric(fn); err != nil {
			return nil, err
		}
		return s.variance(), nil
	case plan.AggStdDev:
		if err := s.requireNumeric(fn); err != nil {
			return nil, err
		}
		v := s.variance()
		if v == nil {
			return nil, nil
		}
		return math.Sqrt(v.(float64)), nil
	default:
		return nil, fmt.Errorf("unknown aggregate function %v", fn)
	}
}

// variance is the sample variance; fewer than two values yields null.
func (s *aggState) variance() storage.Value {
	if s.count < 2 {
		return nil
	}
	n := float64(s.count)
	v := (s.sumSq - s.sumF*s.sumF/n) / (n - 1)
	if v < 0 {
		// Guard against tiny negative values from floating point error.
		v = 0
	}
	return v
}

func (e *Executor) runAggregate(ctx context.Context, agg *plan.Aggregate) (*frame, error) {
	input, err := e.run(ctx, agg.Input)
	if err != nil {
		return nil, err
	}

	columns := make([]string, 0, len(agg.GroupBy)+len(agg.Aggregates))
	for _, g := range agg.GroupBy {
		columns = append(columns, exprOutputName(g))
	}
	for _, a := range agg.Aggregates {
		columns = append(columns, a.OutputName())
	}

	type group struct {
		keys   []storage.Value
		states []*aggState
	}
	groups := make(map[string]*group)
	var order []string

	for _, row := range input.rows {
		keys := make([]storage.Value, len(agg.GroupBy))
		for i, g := range agg.GroupBy {
			v, err := evalExpr(g, row)
			if err != nil {
				return nil, err
			}
			keys[i] = v
		}
		fp := groupKey(keys)

		grp, ok := groups[fp]
		if !ok {
			grp = &group{keys: keys, states: make([]*aggState, len(agg.Aggregates))}
			for i := range grp.states {
				grp.states[i] = newAggState()
			}
			groups[fp] = grp
			order = append(order, fp)
		}

		for i, a := range agg.Aggregates {
			v, err := evalExpr(a.Expr, row)
			if err != nil {
				return nil, err
			}
			grp.states[i].add(v)
		}
	}

	// A global aggregate over zero rows still produces one row.
	if len(agg.GroupBy) == 0 && len(groups) == 0 {
		grp := &group{states: make([]*aggState, len(agg.Aggregates))}
		for i := range grp.states {
			grp.states[i] = newAggState()
		}
		groups[""] = grp
		order = append(order, "")
	}

	out := &frame{columns: columns, rows: make([]storage.Row, 0, len(order))}
	for _, fp := range order {
		grp := groups[fp]
		row := make(storage.Row, len(columns))
		for i, key := range grp.keys {
			row[columns[i]] = key
		}
		for i, a := range agg.Aggregates {
			v, err := grp.states[i].result(a.Func)
			if err != nil {
				return nil, err
			}
			row[columns[len(agg.GroupBy)+i]] = v
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// groupKey fingerprints the group-by key values of one row, normalizing
// numerics the same way join keys are.
func groupKey(keys []storage.Value) string {
	var sb strings.Builder
	for _, v := range keys {
		if v == nil {
			sb.WriteString("null\x00")
			continue
		}
		if f, ok := storage.AsFloat(v); ok {
			fmt.Fprintf(&sb, "f:%v\x00", f)
		} else {
			fmt.Fprintf(&sb, "%T:%v\x00", v, v)
		}
	}
	return sb.String()
}
