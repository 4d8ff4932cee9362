// Package optim searches experiment parameters for the best swarm metric.
package optim

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/kilosim/internal/config"
	"github.com/san-kum/kilosim/internal/dynamo"
	"github.com/san-kum/kilosim/internal/experiment"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Trial is one grid point and the metric it scored.
type Trial struct {
	Params  map[string]float64
	Value   float64
	Metrics map[string]float64
}

type GridSearch struct {
	paramNames  []string
	ranges      [][]float64
	maximize    bool
	parallelism int
	opts        []experiment.Option
	logger      *zap.Logger
}

type Option func(*GridSearch)

// Maximize ranks trials highest first instead of lowest first.
func Maximize() Option {
	return func(g *GridSearch) { g.maximize = true }
}

// WithParallelism bounds concurrent trials; n <= 0 means no limit.
func WithParallelism(n int) Option {
	return func(g *GridSearch) { g.parallelism = n }
}

func WithExperimentOptions(opts ...experiment.Option) Option {
	return func(g *GridSearch) { g.opts = append(g.opts, opts...) }
}

func WithLogger(l *zap.Logger) Option {
	return func(g *GridSearch) {
		if l != nil {
			g.logger = l
		}
	}
}

func NewGridSearch(params []string, ranges [][]float64, opts ...Option) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("%w: %d parameters with %d value lists", dynamo.ErrInvalidConfig, len(params), len(ranges))
	}
	seen := make(map[string]bool, len(params))
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("%w: no values for %s", dynamo.ErrInvalidConfig, params[i])
		}
		if seen[params[i]] {
			return nil, fmt.Errorf("%w: parameter %s given twice", dynamo.ErrInvalidConfig, params[i])
		}
		seen[params[i]] = true
	}
	g := &GridSearch{
		paramNames:  params,
		ranges:      ranges,
		parallelism: runtime.GOMAXPROCS(0),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search runs base with every combination of parameter values and returns
// the trials ranked best first. Any failing trial aborts the search.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) ([]Trial, error) {
	points := g.points()
	trials := make([]Trial, len(points))

	eg, ctx := errgroup.WithContext(ctx)
	if g.parallelism > 0 {
		eg.SetLimit(g.parallelism)
	}

	for i, params := range points {
		idx, params := i, params
		eg.Go(func() error {
			cfg := base.Clone()
			if err := g.apply(cfg, params); err != nil {
				return err
			}

			exp := experiment.New(cfg, g.opts...)
			if err := exp.Setup(); err != nil {
				return fmt.Errorf("trial %v: %w", params, err)
			}
			res, err := exp.Run(ctx)
			if err != nil {
				return fmt.Errorf("trial %v: %w", params, err)
			}

			val, ok := res.Metrics[metricName]
			if !ok {
				return fmt.Errorf("%w: metric %q not recorded", dynamo.ErrUnknownVariant, metricName)
			}
			trials[idx] = Trial{Params: params, Value: val, Metrics: res.Metrics}
			g.logger.Debug("trial done", zap.Any("params", params), zap.Float64(metricName, val))
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(trials, func(i, j int) bool {
		return g.better(trials[i].Value, trials[j].Value)
	})
	return trials, nil
}

// apply sets params on cfg in declaration order.
func (g *GridSearch) apply(cfg *config.Config, params map[string]float64) error {
	for _, name := range g.paramNames {
		if err := cfg.SetParam(name, params[name]); err != nil {
			return err
		}
	}
	return nil
}

// NaN always ranks last.
func (g *GridSearch) better(a, b float64) bool {
	if math.IsNaN(b) {
		return !math.IsNaN(a)
	}
	if math.IsNaN(a) {
		return false
	}
	if g.maximize {
		return a > b
	}
	return a < b
}

func (g *GridSearch) points() []map[string]float64 {
	out := []map[string]float64{{}}
	for d, name := range g.paramNames {
		next := make([]map[string]float64, 0, len(out)*len(g.ranges[d]))
		for _, p := range out {
			for _, v := range g.ranges[d] {
				q := make(map[string]float64, len(p)+1)
				for k, pv := range p {
					q[k] = pv
				}
				q[name] = v
				next = append(next, q)
			}
		}
		out = next
	}
	return out
}

// ParseParam reads "name=v1,v2,..." or "name=min:max:n".
func ParseParam(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" || list == "" {
		return "", nil, fmt.Errorf("%w: parameter %q, want name=v1,v2 or name=min:max:n", dynamo.ErrInvalidConfig, s)
	}

	if parts := strings.Split(list, ":"); len(parts) == 3 {
		lo, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		hi, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		n, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err1 != nil || err2 != nil || err3 != nil || n < 1 {
			return "", nil, fmt.Errorf("%w: range %q", dynamo.ErrInvalidConfig, list)
		}
		return name, Linspace(lo, hi, n), nil
	}

	var vals []float64
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("%w: value %q for %s", dynamo.ErrInvalidConfig, f, name)
		}
		vals = append(vals, v)
	}
	return name, vals, nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}
