package light

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kilosim/internal/dynamo"
)

// Reducer folds the children's values of a Composite into one.
type Reducer func(values []float64) float64

func Sum(values []float64) float64 {
	s := 0.0
	for _, v := range values {
		s += v
	}
	return s
}

func Max(values []float64) float64 {
	m := math.Inf(-1)
	for _, v := range values {
		m = math.Max(m, v)
	}
	return m
}

func Min(values []float64) float64 {
	m := math.Inf(1)
	for _, v := range values {
		m = math.Min(m, v)
	}
	return m
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

var reducers = map[string]Reducer{
	"sum":  Sum,
	"max":  Max,
	"min":  Min,
	"mean": Mean,
}

// ReducerByName looks up a reducer; the empty name selects Sum.
func ReducerByName(name string) (Reducer, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return Sum, nil
	}
	r, ok := reducers[n]
	if !ok {
		return nil, fmt.Errorf("%w: reducer %q (available: %v)", dynamo.ErrUnknownVariant, name, ReducerNames())
	}
	return r, nil
}

func ReducerNames() []string {
	names := make([]string, 0, len(reducers))
	for n := range reducers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var _ Light = (*Composite)(nil)

// Composite combines child lights. The action vector is the concatenation
// of the children's actions in declaration order.
type Composite struct {
	lights      []Light
	reducer     Reducer
	actionDims  []int
	actionSpace dynamo.Box
	obsSpace    dynamo.Box
}

// NewComposite uses Sum when reducer is nil.
func NewComposite(reducer Reducer, lights ...Light) (*Composite, error) {
	if len(lights) == 0 {
		return nil, fmt.Errorf("%w: composite light needs at least one child", dynamo.ErrInvalidConfig)
	}
	if reducer == nil {
		reducer = Sum
	}

	c := &Composite{
		lights:     append([]Light(nil), lights...),
		reducer:    reducer,
		actionDims: make([]int, len(lights)),
	}
	actions := make([]dynamo.Box, len(lights))
	observations := make([]dynamo.Box, len(lights))
	for i, l := range lights {
		if l == nil {
			return nil, fmt.Errorf("%w: composite child %d is nil", dynamo.ErrInvalidConfig, i)
		}
		actions[i] = l.ActionSpace()
		observations[i] = l.ObservationSpace()
		c.actionDims[i] = actions[i].Dim()
	}
	c.actionSpace = dynamo.Concat(actions...)
	c.obsSpace = dynamo.Concat(observations...)
	return c, nil
}

// Step routes consecutive slices of action to the children. An absent action
// leaves every child untouched; a child whose slice is cut short receives
// the absent action.
func (c *Composite) Step(action []float64, dt float64) {
	if absent(action) {
		return
	}

	offset := 0
	for i, l := range c.lights {
		end := offset + c.actionDims[i]
		if end <= len(action) {
			l.Step(action[offset:end], dt)
		} else {
			l.Step(nil, dt)
		}
		offset = end
	}
}

func (c *Composite) values(p mgl64.Vec2) []float64 {
	vs := make([]float64, len(c.lights))
	for i, l := range c.lights {
		vs[i] = l.Value(p)
	}
	return vs
}

func (c *Composite) Value(p mgl64.Vec2) float64 {
	return c.reducer(c.values(p))
}

// Gradient returns the gradient of the brightest child at p, not a blend.
func (c *Composite) Gradient(p mgl64.Vec2) mgl64.Vec2 {
	vs := c.values(p)
	best := 0
	for i, v := range vs {
		if v > vs[best] {
			best = i
		}
	}
	return c.lights[best].Gradient(p)
}

func (c *Composite) State() []float64 {
	out := make([]float64, 0, c.obsSpace.Dim())
	for _, l := range c.lights {
		out = append(out, l.State()...)
	}
	return out
}

func (c *Composite) ActionSpace() dynamo.Box {
	return c.actionSpace
}

func (c *Composite) ObservationSpace() dynamo.Box {
	return c.obsSpace
}

func (c *Composite) Lights() []Light {
	return append([]Light(nil), c.lights...)
}
