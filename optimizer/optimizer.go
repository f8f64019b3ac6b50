package optimizer

import (
	"fmt"

	"github.com/guileen/planlite/catalog"
	"github.com/guileen/planlite/logger"
	"github.com/guileen/planlite/plan"
)

// Level selects how much of the rewrite pipeline runs.
type Level int

const (
	// LevelNone returns plans untouched.
	LevelNone Level = iota
	// LevelBasic runs predicate and projection pushdown only.
	LevelBasic
	// LevelFull runs the complete rule pipeline.
	LevelFull
)

// String returns the name of the level.
func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelBasic:
		return "basic"
	case LevelFull:
		return "full"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel maps a level name to its value.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "none":
		return LevelNone, nil
	case "basic":
		return LevelBasic, nil
	case "", "full":
		return LevelFull, nil
	default:
		return LevelNone, fmt.Errorf("unknown optimization level %q", s)
	}
}

// Optimizer rewrites logical plans into cheaper equivalents. It holds only
// read-only statistics and a level, so a single instance is safe to share
// across concurrent Optimize calls.
type Optimizer struct {
	stats catalog.Provider
	level Level
}

// New creates an optimizer. A nil provider is allowed; every table then
// falls back to the default cardinality.
func New(stats catalog.Provider, level Level) *Optimizer {
	return &Optimizer{stats: stats, level: level}
}

// namedRule pairs a rewrite with its name for error context and logging.
type namedRule struct {
	name  string
	apply rewriteFunc
}

func (o *Optimizer) pipeline() []namedRule {
	basic := []namedRule{
		{"predicate pushdown", o.pushDownPredicates},
		{"projection pushdown", o.pushDownProjections},
	}
	if o.level == LevelBasic {
		return basic
	}
	return append(basic,
		namedRule{"join reordering", o.reorderJoins},
		namedRule{"filter fusion", o.fuseFilters},
		namedRule{"constant folding", o.foldConstants},
		namedRule{"redundant elimination", o.removeRedundantProjections},
	)
}

// Optimize runs the rule pipeline for the configured level. The input tree
// is never mutated; the caller receives either a fully rewritten plan or an
// error, never a partially rewritten one.
func (o *Optimizer) Optimize(p plan.Plan) (plan.Plan, error) {
	if p == nil {
		return nil, fmt.Errorf("optimize: nil plan")
	}
	if o.level == LevelNone {
		return p, nil
	}

	current := p
	for _, rule := range o.pipeline() {
		next, err := rule.apply(current)
		if err != nil {
			return nil, fmt.Errorf("optimize: %s: %w", rule.name, err)
		}
		current = next
	}

	logger.Debug("plan optimized",
		"level", o.level.String(),
		"cost_before", o.EstimateCost(p),
		"cost_after", o.EstimateCost(current))
	return current, nil
}
