package storage

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// Filter selects runs with a CEL expression over their metadata, e.g.
//
//	preset == "langmuir" && metrics["coverage_A"] > 0.4
//
// An empty expression matches every run.
type Filter struct {
	prog cel.Program
}

func NewFilter(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &Filter{}, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("preset", cel.StringType),
		cel.Variable("seed", cel.IntType),
		cel.Variable("ranks", cel.IntType),
		cel.Variable("sites", cel.IntType),
		cel.Variable("steps", cel.IntType),
		cel.Variable("recorded", cel.IntType),
		cel.Variable("final_time", cel.DoubleType),
		cel.Variable("exhausted", cel.BoolType),
		cel.Variable("archived", cel.BoolType),
		cel.Variable("failed", cel.BoolType),
		cel.Variable("metrics", cel.MapType(cel.StringType, cel.DoubleType)),
	)
	if err != nil {
		return nil, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("filter %q: %w", expr, iss.Err())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	return &Filter{prog: prog}, nil
}

// Match evaluates the filter against one run. A non-boolean result is an
// error.
func (f *Filter) Match(meta *RunMetadata) (bool, error) {
	if f == nil || f.prog == nil {
		return true, nil
	}

	metrics := meta.Metrics
	if metrics == nil {
		metrics = map[string]float64{}
	}
	out, _, err := f.prog.Eval(map[string]any{
		"id":         meta.ID,
		"preset":     meta.Preset,
		"seed":       meta.Seed,
		"ranks":      int64(meta.Ranks),
		"sites":      int64(meta.Sites),
		"steps":      int64(meta.StepsTaken),
		"recorded":   int64(meta.Recorded),
		"final_time": meta.FinalTime,
		"exhausted":  meta.Exhausted,
		"archived":   meta.Archived,
		"failed":     meta.Failed(),
		"metrics":    metrics,
	})
	if err != nil {
		return false, fmt.Errorf("filter on %s: %w", meta.ID, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter on %s: result %v is not a bool", meta.ID, out)
	}
	return b, nil
}

// Apply keeps the runs the filter matches, preserving order.
func (f *Filter) Apply(runs []RunMetadata) ([]RunMetadata, error) {
	out := make([]RunMetadata, 0, len(runs))
	for i := range runs {
		ok, err := f.Match(&runs[i])
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, runs[i])
		}
	}
	return out, nil
}
