package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/guileen/planlite/plan"
	"github.com/guileen/planlite/storage"
)

// Catalog resolves table names to scannable tables.
type Catalog interface {
	Table(name string) (storage.Table, bool)
}

// Result is a materialized result table: rows of values in column order.
type Result struct {
	Columns []string
	Rows    [][]storage.Value
}

// Executor runs optimized logical plans batch-at-a-time over the tables of
// a catalog. It treats the plan as an opaque instruction tree: no rewriting
// happens here.
type Executor struct {
	catalog Catalog
}

// New creates an executor over a catalog.
func New(catalog Catalog) *Executor {
	return &Executor{catalog: catalog}
}

// frame is an intermediate result: an ordered column list plus rows keyed
// by column name.
type frame struct {
	columns []string
	rows    []storage.Row
}

// Execute runs a plan and materializes its result.
func (e *Executor) Execute(ctx context.Context, p plan.Plan) (*Result, error) {
	f, err := e.run(ctx, p)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Columns: f.columns,
		Rows:    make([][]storage.Value, len(f.rows)),
	}
	for i, row := range f.rows {
		out := make([]storage.Value, len(f.columns))
		for j, col := range f.columns {
			out[j] = row[col]
		}
		result.Rows[i] = out
	}
	return result, nil
}

func (e *Executor) run(ctx context.Context, p plan.Plan) (*frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch n := p.(type) {
	case *plan.TableScan:
		return e.runScan(ctx, n)
	case *plan.Filter:
		return e.runFilter(ctx, n)
	case *plan.Project:
		return e.runProject(ctx, n)
	case *plan.Aggregate:
		return e.runAggregate(ctx, n)
	case *plan.Join:
		return e.runJoin(ctx, n)
	case *plan.Sort:
		return e.runSort(ctx, n)
	case *plan.Limit:
		return e.runLimit(ctx, n)
	case *plan.Union:
		return e.runUnion(ctx, n)
	case *plan.Distinct:
		return e.runDistinct(ctx, n)
	default:
		return nil, fmt.Errorf("cannot execute plan node %T", p)
	}
}

func (e *Executor) runScan(ctx context.Context, scan *plan.TableScan) (*frame, error) {
	table, ok := e.catalog.Table(scan.Table)
	if !ok {
		return nil, fmt.Errorf("unknown table %q", scan.Table)
	}

	columns := scan.Columns
	if columns == nil {
		columns = table.Columns()
	}

	out := &frame{columns: columns}
	err := table.Scan(ctx, storage.DefaultBatchSize, func(rows []storage.Row) error {
		for _, row := range rows {
			if scan.Predicate != nil {
				keep, err := evalExpr(scan.Predicate, row)
				if err != nil {
					return err
				}
				if !truthy(keep) {
					continue
				}
			}
			pruned := make(storage.Row, len(columns))
			for _, col := range columns {
				pruned[col] = row[col]
			}
			out.rows = append(out.rows, pruned)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", scan.Table, err)
	}
	return out, nil
}

func (e *Executor) runFilter(ctx context.Context, filter *plan.Filter) (*frame, error) {
	input, err := e.run(ctx, filter.Input)
	if err != nil {
		return nil, err
	}

	out := &frame{columns: input.columns}
	for _, row := range input.rows {
		keep, err := evalExpr(filter.Predicate, row)
		if err != nil {
			return nil, err
		}
		if truthy(keep) {
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

// exprOutputName names a projected or grouped column: bare references keep
// their name, computed expressions use their rendering.
func exprOutputName(e plan.Expr) string {
	if ref, ok := e.(*plan.ColumnRef); ok {
		return ref.Name
	}
	return plan.FormatExpr(e)
}

func (e *Executor) runProject(ctx context.Context, proj *plan.Project) (*frame, error) {
	input, err := e.run(ctx, proj.Input)
	if err != nil {
		return nil, err
	}

	columns := make([]string, len(proj.Exprs))
	for i, expr := range proj.Exprs {
		columns[i] = exprOutputName(expr)
	}

	out := &frame{columns: columns}
	for _, row := range input.rows {
		projected := make(storage.Row, len(columns))
		for i, expr := range proj.Exprs {
			v, err := evalExpr(expr, row)
			if err != nil {
				return nil, err
			}
			projected[columns[i]] = v
		}
		out.rows = append(out.rows, projected)
	}
	return out, nil
}

func (e *Executor) runSort(ctx context.Context, s *plan.Sort) (*frame, error) {
	input, err := e.run(ctx, s.Input)
	if err != nil {
		return nil, err
	}

	type keyedRow struct {
		row  storage.Row
		keys []storage.Value
	}
	keyed := make([]keyedRow, len(input.rows))
	for i, row := range input.rows {
		keys := make([]storage.Value, len(s.OrderBy))
		for j, key := range s.OrderBy {
			v, err := evalExpr(key.Expr, row)
			if err != nil {
				return nil, err
			}
			keys[j] = v
		}
		keyed[i] = keyedRow{row: row, keys: keys}
	}

	sort.SliceStable(keyed, func(i, j int) bool {
		for k, key := range s.OrderBy {
			cmp := compareForSort(keyed[i].keys[k], keyed[j].keys[k])
			if cmp == 0 {
				continue
			}
			if key.Asc {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})

	out := &frame{columns: input.columns, rows: make([]storage.Row, len(keyed))}
	for i, kr := range keyed {
		out.rows[i] = kr.row
	}
	return out, nil
}

// compareForSort orders nulls before everything and incomparable pairs by
// their rendering, so sorting is always total.
func compareForSort(a, b storage.Value) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if cmp, ok := storage.Compare(a, b); ok {
		return cmp
	}
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func (e *Executor) runLimit(ctx context.Context, l *plan.Limit) (*frame, error) {
	input, err := e.run(ctx, l.Input)
	if err != nil {
		return nil, err
	}

	start := l.Offset
	if start < 0 {
		start = 0
	}
	if start > int64(len(input.rows)) {
		start = int64(len(input.rows))
	}
	end := start + l.Count
	if l.Count < 0 || end > int64(len(input.rows)) {
		end = int64(len(input.rows))
	}
	return &frame{columns: input.columns, rows: input.rows[start:end]}, nil
}

func (e *Executor) runUnion(ctx context.Context, u *plan.Union) (*frame, error) {
	if len(u.Inputs) == 0 {
		return &frame{}, nil
	}

	first, err := e.run(ctx, u.Inputs[0])
	if err != nil {
		return nil, err
	}
	out := &frame{columns: first.columns, rows: first.rows}
	for _, in := range u.Inputs[1:] {
		f, err := e.run(ctx, in)
		if err != nil {
			return nil, err
		}
		if len(f.columns) != len(out.columns) {
			return nil, fmt.Errorf("union inputs have %d and %d columns", len(out.columns), len(f.columns))
		}
		// Re-key positionally onto the first input's column names.
		for _, row := range f.rows {
			rekeyed := make(storage.Row, len(out.columns))
			for i, col := range out.columns {
				rekeyed[col] = row[f.columns[i]]
			}
			out.rows = append(out.rows, rekeyed)
		}
	}
	return out, nil
}

func (e *Executor) runDistinct(ctx context.Context, d *plan.Distinct) (*frame, error) {
	input, err := e.run(ctx, d.Input)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(input.rows))
	out := &frame{columns: input.columns}
	for _, row := range input.rows {
		key := rowKey(input.columns, row)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// rowKey fingerprints a row by its values in column order.
func rowKey(columns []string, row storage.Row) string {
	var sb strings.Builder
	for _, col := range columns {
		fmt.Fprintf(&sb, "%T:%v\x00", row[col], row[col])
	}
	return sb.String()
}
