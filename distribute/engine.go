package distribute

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/guileen/planlite/executor"
	"github.com/guileen/planlite/logger"
	"github.com/guileen/planlite/plan"
	"github.com/guileen/planlite/storage"
)

// Engine fans an already-optimized plan out across partitions: each base
// table's rows are split by a PartitioningStrategy, every partition runs
// the same plan on its own worker goroutine, and the partial results are
// merged with no ordering guarantee. A Sort or Limit at the top of the
// plan is peeled off and applied to the merged result instead, since
// per-partition ordering would not survive the merge.
type Engine struct {
	catalog executor.Catalog
}

// NewEngine creates a distributed engine over a catalog.
func NewEngine(catalog executor.Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// ExecuteDistributed runs the plan once per partition and merges the
// partial results. The plan is treated as an opaque instruction tree.
func (e *Engine) ExecuteDistributed(ctx context.Context, p plan.Plan, strategy PartitioningStrategy) (*executor.Result, error) {
	if p == nil {
		return nil, fmt.Errorf("execute distributed: nil plan")
	}
	if strategy == nil {
		return nil, fmt.Errorf("execute distributed: nil partitioning strategy")
	}

	inner, wrappers := peelOrdering(p)

	catalogs, err := e.partitionCatalogs(ctx, inner, strategy)
	if err != nil {
		return nil, err
	}

	results := make([]*executor.Result, len(catalogs))
	errs := make([]error, len(catalogs))
	var wg sync.WaitGroup
	for i, cat := range catalogs {
		wg.Add(1)
		go func(i int, cat executor.Catalog) {
			defer wg.Done()
			workerID := uuid.NewString()
			wctx := context.WithValue(ctx, logger.WorkerIDKey, workerID)
			logger.DebugContext(wctx, "partition worker running plan", "partition", i)
			results[i], errs[i] = executor.New(cat).Execute(wctx, inner)
		}(i, cat)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("partition %d: %w", i, err)
		}
	}

	merged, err := mergeResults(results)
	if err != nil {
		return nil, err
	}
	if len(wrappers) == 0 {
		return merged, nil
	}
	return applyOrdering(ctx, merged, wrappers)
}

// peelOrdering strips the outermost chain of Sort and Limit nodes,
// returning the remaining plan and the stripped nodes outermost first.
func peelOrdering(p plan.Plan) (plan.Plan, []plan.Plan) {
	var wrappers []plan.Plan
	for {
		switch n := p.(type) {
		case *plan.Sort:
			wrappers = append(wrappers, n)
			p = n.Input
		case *plan.Limit:
			wrappers = append(wrappers, n)
			p = n.Input
		default:
			return p, wrappers
		}
	}
}

// partitionCatalogs scans every base table the plan reads and deals its
// rows into one in-memory catalog per partition.
func (e *Engine) partitionCatalogs(ctx context.Context, p plan.Plan, strategy PartitioningStrategy) ([]executor.Catalog, error) {
	partitions := strategy.PartitionCount()
	catalogs := make([]memCatalog, partitions)
	for i := range catalogs {
		catalogs[i] = make(memCatalog)
	}

	for _, name := range baseTables(p) {
		table, ok := e.catalog.Table(name)
		if !ok {
			return nil, fmt.Errorf("unknown table %q", name)
		}

		parts := make([]*storage.MemTable, partitions)
		for i := range parts {
			parts[i] = storage.NewMemTable(name, table.Columns())
		}

		var seq int64
		err := table.Scan(ctx, storage.DefaultBatchSize, func(rows []storage.Row) error {
			for _, row := range rows {
				parts[strategy.Partition(row, seq)].Insert(row)
				seq++
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("partition table %s: %w", name, err)
		}

		for i, part := range parts {
			catalogs[i][name] = part
		}
	}

	out := make([]executor.Catalog, partitions)
	for i := range catalogs {
		out[i] = catalogs[i]
	}
	return out, nil
}

// baseTables lists the distinct tables the plan scans.
func baseTables(p plan.Plan) []string {
	var names []string
	seen := make(map[string]struct{})
	var walk func(plan.Plan)
	walk = func(p plan.Plan) {
		if scan, ok := p.(*plan.TableScan); ok {
			if _, dup := seen[scan.Table]; !dup {
				seen[scan.Table] = struct{}{}
				names = append(names, scan.Table)
			}
		}
		for _, child := range plan.Children(p) {
			walk(child)
		}
	}
	walk(p)
	return names
}

// mergeResults concatenates partial results. Column lists must agree,
// which they do when every partition ran the same plan over the same
// schema.
func mergeResults(results []*executor.Result) (*executor.Result, error) {
	merged := &executor.Result{}
	for _, r := range results {
		if merged.Columns == nil {
			merged.Columns = r.Columns
		} else if len(r.Columns) != len(merged.Columns) {
			return nil, fmt.Errorf("partition results have %d and %d columns", len(merged.Columns), len(r.Columns))
		}
		merged.Rows = append(merged.Rows, r.Rows...)
	}
	return merged, nil
}

// applyOrdering replays the peeled Sort/Limit chain over the merged
// result by staging it in a throwaway in-memory table.
func applyOrdering(ctx context.Context, merged *executor.Result, wrappers []plan.Plan) (*executor.Result, error) {
	staging := "merge/" + uuid.NewString()
	table := storage.NewMemTable(staging, merged.Columns)
	for _, values := range merged.Rows {
		row := make(storage.Row, len(merged.Columns))
		for i, col := range merged.Columns {
			row[col] = values[i]
		}
		table.Insert(row)
	}

	rebuilt := plan.Plan(&plan.TableScan{Table: staging})
	for i := len(wrappers) - 1; i >= 0; i-- {
		switch w := wrappers[i].(type) {
		case *plan.Sort:
			rebuilt = &plan.Sort{Input: rebuilt, OrderBy: w.OrderBy}
		case *plan.Limit:
			rebuilt = &plan.Limit{Input: rebuilt, Count: w.Count, Offset: w.Offset}
		}
	}
	return executor.New(memCatalog{staging: table}).Execute(ctx, rebuilt)
}

// memCatalog is a fixed in-memory catalog for partition workers.
type memCatalog map[string]storage.Table

func (c memCatalog) Table(name string) (storage.Table, bool) {
	t, ok := c[name]
	return t, ok
}
