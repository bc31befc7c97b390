package optim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"

	"github.com/san-kum/ljsim/internal/config"
	"github.com/san-kum/ljsim/internal/experiment"
)

var ErrNoCandidate = errors.New("optim: no parameter combination completed")

// GridSearch evaluates every combination of the given parameter values
// and keeps the one that minimizes a run metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	logger     *slog.Logger

	evaluated int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

func (g *GridSearch) WithLogger(l *slog.Logger) *GridSearch {
	g.logger = l
	return g
}

// Evaluated is the number of combinations that ran to completion in the
// last search.
func (g *GridSearch) Evaluated() int { return g.evaluated }

// Search runs base once per combination and returns the best parameters
// with their metric value. Combinations that fail to build or run are
// skipped.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("optim: %d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}
	for _, name := range g.paramNames {
		if err := base.Clone().Set(name, 0); err != nil {
			return nil, 0, err
		}
	}

	g.evaluated = 0
	best := math.Inf(1)
	var bestParams map[string]float64

	if err := g.searchRecursive(ctx, 0, make(map[string]float64), base, metricName, &best, &bestParams); err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return bestParams, best, err
	}
	if bestParams == nil {
		return nil, 0, fmt.Errorf("%w: metric %q", ErrNoCandidate, metricName)
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	metricName string,
	best *float64,
	bestParams *map[string]float64,
) error {
	if ctx.Err() != nil {
		return nil
	}

	if depth == len(g.paramNames) {
		val, ok, err := g.evaluate(ctx, base, current, metricName)
		if err != nil {
			return err
		}
		if ok && val < *best {
			*best = val
			*bestParams = maps.Clone(current)
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := maps.Clone(current)
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, base, metricName, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}

// evaluate runs one combination. A parameter value the config rejects is
// an error; a combination that fails to build or run is only skipped.
func (g *GridSearch) evaluate(ctx context.Context, base *config.Config, params map[string]float64, metricName string) (float64, bool, error) {
	cfg := base.Clone()
	for k, v := range params {
		if err := cfg.Set(k, v); err != nil {
			return 0, false, err
		}
	}

	exp, err := experiment.New(cfg, g.logger)
	if err != nil {
		return 0, false, nil
	}
	defer exp.Close()

	result, err := exp.Run(ctx)
	if err != nil {
		return 0, false, nil
	}

	val, ok := result.Metrics[metricName]
	if !ok || math.IsNaN(val) {
		return 0, false, nil
	}
	g.evaluated++
	return val, true, nil
}
