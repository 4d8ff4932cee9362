package experiment

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kilosim/internal/config"
	"github.com/san-kum/kilosim/internal/control"
	"github.com/san-kum/kilosim/internal/dynamo"
	"github.com/san-kum/kilosim/internal/kilobot"
	"github.com/san-kum/kilosim/internal/light"
	"github.com/san-kum/kilosim/internal/metrics"
)

// LightFactory builds one light from its spec. build constructs nested
// children through the same registry.
type LightFactory func(spec config.LightSpec, arena dynamo.Box, build func(config.LightSpec) (light.Light, error)) (light.Light, error)

// PolicyFactory builds a policy for the given light.
type PolicyFactory func(pc config.PolicyConfig, l light.Light, seed int64) (dynamo.Policy, error)

type Registry struct {
	lights   map[string]LightFactory
	policies map[string]PolicyFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		lights:   make(map[string]LightFactory),
		policies: make(map[string]PolicyFactory),
	}

	r.lights["single_position"] = func(s config.LightSpec, arena dynamo.Box, _ func(config.LightSpec) (light.Light, error)) (light.Light, error) {
		return light.NewSinglePosition(positionConfig(s, arena))
	}
	r.lights["circular"] = func(s config.LightSpec, arena dynamo.Box, _ func(config.LightSpec) (light.Light, error)) (light.Light, error) {
		return light.NewCircularGradient(positionConfig(s, arena), s.Radius)
	}
	r.lights["gradient"] = func(s config.LightSpec, _ dynamo.Box, _ func(config.LightSpec) (light.Light, error)) (light.Light, error) {
		cfg := light.GradientConfig{Angle: s.Angle, Relative: s.Relative}
		if s.ActionBound > 0 {
			cfg.ActionBounds = dynamo.Uniform(1, -s.ActionBound, s.ActionBound)
		}
		return light.NewGradient(cfg)
	}
	r.lights["momentum"] = func(s config.LightSpec, arena dynamo.Box, _ func(config.LightSpec) (light.Light, error)) (light.Light, error) {
		cfg := light.MomentumConfig{
			Position:    vec2(s.Position),
			Bounds:      arena,
			Radius:      s.Radius,
			Velocity:    vec2(s.Velocity),
			MaxVelocity: s.MaxVelocity,
		}
		if s.ActionBound > 0 {
			cfg.ActionBounds = dynamo.Uniform(2, -s.ActionBound, s.ActionBound)
		}
		return light.NewMomentum(cfg)
	}
	r.lights["composite"] = func(s config.LightSpec, _ dynamo.Box, build func(config.LightSpec) (light.Light, error)) (light.Light, error) {
		reducer, err := light.ReducerByName(s.Reducer)
		if err != nil {
			return nil, err
		}
		children := make([]light.Light, 0, len(s.Children))
		for i, ch := range s.Children {
			l, err := build(ch)
			if err != nil {
				return nil, fmt.Errorf("composite child %d: %w", i, err)
			}
			children = append(children, l)
		}
		return light.NewComposite(reducer, children...)
	}

	r.policies["none"] = func(config.PolicyConfig, light.Light, int64) (dynamo.Policy, error) {
		return control.NewNone(), nil
	}
	r.policies["constant"] = func(pc config.PolicyConfig, l light.Light, _ int64) (dynamo.Policy, error) {
		if dim := l.ActionSpace().Dim(); len(pc.Action) != dim {
			return nil, fmt.Errorf("%w: constant policy needs %d action components, got %d", dynamo.ErrDimensionMismatch, dim, len(pc.Action))
		}
		return control.NewConstant(pc.Action), nil
	}
	r.policies["random"] = func(_ config.PolicyConfig, l light.Light, seed int64) (dynamo.Policy, error) {
		return control.NewRandom(l.ActionSpace(), seed), nil
	}
	r.policies["pid"] = func(pc config.PolicyConfig, l light.Light, _ int64) (dynamo.Policy, error) {
		if _, ok := l.(light.Positioner); !ok {
			return nil, fmt.Errorf("%w: pid policy needs a light with a position", dynamo.ErrInvalidConfig)
		}
		// pid outputs displacements; an absolute light would read them as positions
		if r, ok := l.(interface{ Relative() bool }); ok && !r.Relative() {
			return nil, fmt.Errorf("%w: pid policy needs a relative-mode light", dynamo.ErrInvalidConfig)
		}
		if len(pc.Target) != 2 {
			return nil, fmt.Errorf("%w: pid target needs 2 components, got %d", dynamo.ErrDimensionMismatch, len(pc.Target))
		}
		return control.NewPID(pc.Kp, pc.Ki, pc.Kd, pc.Target), nil
	}
	r.policies["lqr"] = func(pc config.PolicyConfig, l light.Light, _ int64) (dynamo.Policy, error) {
		if _, ok := l.(*light.Momentum); !ok {
			return nil, fmt.Errorf("%w: lqr policy needs a momentum light", dynamo.ErrInvalidConfig)
		}
		if len(pc.Target) != 2 {
			return nil, fmt.Errorf("%w: lqr target needs 2 components, got %d", dynamo.ErrDimensionMismatch, len(pc.Target))
		}
		return control.NewMomentumLQRWithGains(pc.Target[0], pc.Target[1], pc.Kp, pc.Kd)
	}

	return r
}

func (r *Registry) RegisterLight(name string, f LightFactory)   { r.lights[name] = f }
func (r *Registry) RegisterPolicy(name string, f PolicyFactory) { r.policies[name] = f }

// BuildLight constructs the light tree described by spec. Position lights
// are bounded by arena.
func (r *Registry) BuildLight(spec config.LightSpec, arena dynamo.Box) (light.Light, error) {
	fn, ok := r.lights[spec.Type]
	if !ok {
		return nil, fmt.Errorf("%w: light %q (available: %v)", dynamo.ErrUnknownVariant, spec.Type, r.ListLights())
	}
	return fn(spec, arena, func(child config.LightSpec) (light.Light, error) {
		return r.BuildLight(child, arena)
	})
}

func (r *Registry) GetPolicy(pc config.PolicyConfig, l light.Light, seed int64) (dynamo.Policy, error) {
	name := pc.Type
	if name == "" {
		name = "none"
	}
	fn, ok := r.policies[name]
	if !ok {
		return nil, fmt.Errorf("%w: policy %q (available: %v)", dynamo.ErrUnknownVariant, pc.Type, r.ListPolicies())
	}
	if l == nil && name != "none" {
		return nil, fmt.Errorf("%w: policy %q needs a light", dynamo.ErrInvalidConfig, name)
	}
	return fn(pc, l, seed)
}

func (r *Registry) GetBehavior(name string, params map[string]float64) (kilobot.Behavior, error) {
	return kilobot.NewBehavior(name, params)
}

func (r *Registry) ListLights() []string   { return sortedKeys(r.lights) }
func (r *Registry) ListPolicies() []string { return sortedKeys(r.policies) }

func (r *Registry) ListBehaviors() []string {
	return kilobot.BehaviorNames()
}

// Metrics builds the named metrics, or the default set plus containment
// when names is empty.
func (r *Registry) Metrics(names []string, arena dynamo.Box) ([]dynamo.Metric, error) {
	if len(names) == 0 {
		return append(metrics.Default(), metrics.NewContainment(arena)), nil
	}
	out := make([]dynamo.Metric, 0, len(names))
	for _, n := range names {
		if n == "containment" {
			out = append(out, metrics.NewContainment(arena))
			continue
		}
		m, err := metrics.ByName(n)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func positionConfig(s config.LightSpec, arena dynamo.Box) light.PositionConfig {
	cfg := light.PositionConfig{
		Position: vec2(s.Position),
		Bounds:   arena,
		Absolute: s.Absolute,
	}
	if s.ActionBound > 0 {
		cfg.ActionBounds = dynamo.Uniform(2, -s.ActionBound, s.ActionBound)
	}
	return cfg
}

func vec2(v []float64) mgl64.Vec2 {
	var out mgl64.Vec2
	copy(out[:], v)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
