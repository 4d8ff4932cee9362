package experiment

import (
	"context"
	"math"
	"runtime"

	"github.com/san-kum/kilosim/internal/config"
	"github.com/san-kum/kilosim/internal/dynamo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Ensemble runs the same experiment under consecutive seeds. Every run gets
// its own world, so runs share nothing.
type Ensemble struct {
	cfg         *config.Config
	numRuns     int
	seedStart   int64
	parallelism int
	opts        []Option
	logger      *zap.Logger
}

func NewEnsemble(cfg *config.Config, numRuns int, seedStart int64, opts ...Option) *Ensemble {
	e := &Ensemble{
		cfg:         cfg,
		numRuns:     numRuns,
		seedStart:   seedStart,
		parallelism: runtime.GOMAXPROCS(0),
		opts:        opts,
	}
	probe := &Experiment{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(probe)
	}
	e.logger = probe.logger
	return e
}

// SetParallelism bounds the number of concurrent runs; n <= 0 means no limit.
func (e *Ensemble) SetParallelism(n int) {
	e.parallelism = n
}

// Run returns one result per seed in seed order. The first failing run
// cancels the rest.
func (e *Ensemble) Run(ctx context.Context) ([]*dynamo.Result, error) {
	results := make([]*dynamo.Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	if e.parallelism > 0 {
		g.SetLimit(e.parallelism)
	}

	for i := 0; i < e.numRuns; i++ {
		idx := i
		g.Go(func() error {
			cfg := e.cfg.Clone()
			cfg.Seed = e.seedStart + int64(idx)

			exp := New(cfg, e.opts...)
			if err := exp.Setup(); err != nil {
				return err
			}
			res, err := exp.Run(ctx)
			if err != nil {
				return err
			}
			results[idx] = res
			e.logger.Debug("ensemble run done", zap.Int("run", idx), zap.Int64("seed", cfg.Seed))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Stats summarizes one metric across runs.
type Stats struct {
	Mean float64
	Std  float64
	Min  float64
	Max  float64
	N    int
}

// Summarize aggregates every metric present in the results.
func Summarize(results []*dynamo.Result) map[string]Stats {
	values := make(map[string][]float64)
	for _, r := range results {
		if r == nil {
			continue
		}
		for name, v := range r.Metrics {
			values[name] = append(values[name], v)
		}
	}

	out := make(map[string]Stats, len(values))
	for name, vs := range values {
		st := Stats{Min: math.Inf(1), Max: math.Inf(-1), N: len(vs)}
		sum := 0.0
		for _, v := range vs {
			sum += v
			st.Min = math.Min(st.Min, v)
			st.Max = math.Max(st.Max, v)
		}
		st.Mean = sum / float64(len(vs))
		if len(vs) > 1 {
			ss := 0.0
			for _, v := range vs {
				ss += (v - st.Mean) * (v - st.Mean)
			}
			st.Std = math.Sqrt(ss / float64(len(vs)-1))
		}
		out[name] = st
	}
	return out
}

// MetricNames returns the summarized metric names in order.
func MetricNames(stats map[string]Stats) []string {
	return sortedKeys(stats)
}
