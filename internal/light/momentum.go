package light

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kilosim/internal/dynamo"
)

// MomentumConfig configures a circular light moved by its own velocity.
// ActionBounds bound the velocity perturbation (default +/-DefaultRelativeStep)
// and a non-positive MaxVelocity leaves the speed unbounded.
type MomentumConfig struct {
	Position     mgl64.Vec2
	Bounds       dynamo.Box
	ActionBounds dynamo.Box
	Radius       float64
	Velocity     mgl64.Vec2
	MaxVelocity  float64
}

var (
	_ Light      = (*Momentum)(nil)
	_ Positioner = (*Momentum)(nil)
)

type Momentum struct {
	*CircularGradient
	velocity     mgl64.Vec2
	maxVelocity  float64
	actionBounds dynamo.Box
}

func NewMomentum(cfg MomentumConfig) (*Momentum, error) {
	cg, err := NewCircularGradient(PositionConfig{Position: cfg.Position, Bounds: cfg.Bounds}, cfg.Radius)
	if err != nil {
		return nil, err
	}

	ab := cfg.ActionBounds
	if ab.Dim() == 0 {
		ab = dynamo.Uniform(2, -DefaultRelativeStep, DefaultRelativeStep)
	}
	if ab.Dim() != 2 {
		return nil, fmt.Errorf("%w: momentum action bounds need 2 components, got %d", dynamo.ErrDimensionMismatch, ab.Dim())
	}

	maxV := cfg.MaxVelocity
	if maxV <= 0 {
		maxV = math.Inf(1)
	}

	m := &Momentum{
		CircularGradient: cg,
		velocity:         cfg.Velocity,
		maxVelocity:      maxV,
		actionBounds:     ab,
	}
	m.limitVelocity()
	return m, nil
}

// Step perturbs the velocity by the action and moves the light. An absent
// action only skips the perturbation; the light keeps coasting.
func (m *Momentum) Step(action []float64, dt float64) {
	if !absent(action) {
		var a mgl64.Vec2
		copy(a[:], m.actionBounds.Clip(action))
		m.velocity = m.velocity.Add(a.Mul(dt))
	}

	m.limitVelocity()
	m.position = clampVec(m.position.Add(m.velocity.Mul(dt)), m.bounds)
}

func (m *Momentum) limitVelocity() {
	speed := m.velocity.Len()
	if speed > m.maxVelocity {
		m.velocity = m.velocity.Mul(m.maxVelocity / speed)
	}
}

func (m *Momentum) Velocity() mgl64.Vec2 {
	return m.velocity
}

func (m *Momentum) MaxVelocity() float64 {
	return m.maxVelocity
}

func (m *Momentum) State() []float64 {
	return []float64{m.position[0], m.position[1], m.velocity[0], m.velocity[1]}
}

func (m *Momentum) ActionSpace() dynamo.Box {
	return m.actionBounds
}

func (m *Momentum) ObservationSpace() dynamo.Box {
	return dynamo.Concat(m.bounds, dynamo.Uniform(2, -m.maxVelocity, m.maxVelocity))
}
