package dynamo

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// BuildFunc constructs the system for one ensemble replica.
type BuildFunc func(replica int, seed int64) (*System, error)

// Ensemble runs independent replicas of a system concurrently. Replicas
// differ only in the seed passed to the build function.
type Ensemble struct {
	base      *Simulator
	numRuns   int
	seedStart int64
	workers   int
	metrics   func() []Metric
}

func NewEnsemble(s *Simulator, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{
		base:      s,
		numRuns:   numRuns,
		seedStart: seedStart,
		workers:   runtime.GOMAXPROCS(0),
	}
}

// WithWorkers bounds the number of replicas running at once.
func (e *Ensemble) WithWorkers(n int) *Ensemble {
	if n > 0 {
		e.workers = n
	}
	return e
}

// WithMetrics installs a factory for per-replica metrics. Metrics are
// stateful, so every replica gets its own set.
func (e *Ensemble) WithMetrics(fn func() []Metric) *Ensemble {
	e.metrics = fn
	return e
}

// Run builds and runs every replica. The first failure cancels the
// remaining replicas and is returned.
func (e *Ensemble) Run(ctx context.Context, build BuildFunc, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := 0; i < e.numRuns; i++ {
		g.Go(func() error {
			seed := e.seedStart + int64(i)
			sys, err := build(i, seed)
			if err != nil {
				return fmt.Errorf("replica %d: %w", i, err)
			}
			defer sys.Release()

			s := New().WithLogger(e.base.logger.With("replica", i))
			if e.metrics != nil {
				for _, m := range e.metrics() {
					s.AddMetric(m)
				}
			}

			runCfg := cfg
			runCfg.Seed = seed
			res, err := s.Run(ctx, sys, runCfg)
			if err != nil {
				return fmt.Errorf("replica %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
