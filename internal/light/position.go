package light

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kilosim/internal/dynamo"
)

const (
	DefaultRelativeStep = 0.01
	DefaultRadius       = 0.2
)

// PositionConfig configures a point light. Zero-valued boxes select the
// defaults: unbounded positions, and action bounds of +/-DefaultRelativeStep
// in relative mode or the position bounds in absolute mode.
type PositionConfig struct {
	Position     mgl64.Vec2
	Bounds       dynamo.Box
	ActionBounds dynamo.Box
	// Absolute makes actions target positions instead of dt-scaled displacements.
	Absolute bool
}

func (c PositionConfig) resolve() (bounds, actionBounds dynamo.Box, err error) {
	bounds = c.Bounds
	if bounds.Dim() == 0 {
		bounds = dynamo.Unbounded(2)
	}
	if bounds.Dim() != 2 {
		return bounds, actionBounds, fmt.Errorf("%w: position bounds need 2 components, got %d", dynamo.ErrDimensionMismatch, bounds.Dim())
	}

	actionBounds = c.ActionBounds
	if actionBounds.Dim() == 0 {
		if c.Absolute {
			actionBounds = bounds
		} else {
			actionBounds = dynamo.Uniform(2, -DefaultRelativeStep, DefaultRelativeStep)
		}
	}
	if actionBounds.Dim() != 2 {
		return bounds, actionBounds, fmt.Errorf("%w: action bounds need 2 components, got %d", dynamo.ErrDimensionMismatch, actionBounds.Dim())
	}
	return bounds, actionBounds, nil
}

var (
	_ Light      = (*SinglePosition)(nil)
	_ Positioner = (*SinglePosition)(nil)
)

// SinglePosition is a point light whose value is the negative distance to it.
type SinglePosition struct {
	position     mgl64.Vec2
	bounds       dynamo.Box
	actionBounds dynamo.Box
	absolute     bool
}

func NewSinglePosition(cfg PositionConfig) (*SinglePosition, error) {
	bounds, actionBounds, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	return &SinglePosition{
		position:     clampVec(cfg.Position, bounds),
		bounds:       bounds,
		actionBounds: actionBounds,
		absolute:     cfg.Absolute,
	}, nil
}

func (l *SinglePosition) Step(action []float64, dt float64) {
	if absent(action) {
		return
	}

	a := l.actionVec(action)
	if l.absolute {
		l.position = a
	} else {
		l.position = l.position.Add(a.Mul(dt))
	}
	l.position = clampVec(l.position, l.bounds)
}

// actionVec clips the action into the action box. Missing components leave
// the corresponding coordinate unchanged.
func (l *SinglePosition) actionVec(action []float64) mgl64.Vec2 {
	var a mgl64.Vec2
	if l.absolute {
		a = l.position
	}
	c := l.actionBounds.Clip(action)
	copy(a[:], c)
	return a
}

func (l *SinglePosition) Value(p mgl64.Vec2) float64 {
	return -l.position.Sub(p).Len()
}

func (l *SinglePosition) Gradient(p mgl64.Vec2) mgl64.Vec2 {
	return towards(l.position, p)
}

func (l *SinglePosition) Position() mgl64.Vec2 {
	return l.position
}

func (l *SinglePosition) State() []float64 {
	return []float64{l.position[0], l.position[1]}
}

func (l *SinglePosition) Relative() bool {
	return !l.absolute
}

func (l *SinglePosition) ActionSpace() dynamo.Box {
	return l.actionBounds
}

func (l *SinglePosition) ObservationSpace() dynamo.Box {
	return l.bounds
}

var _ Light = (*CircularGradient)(nil)

// CircularGradient is a point light with linear falloff: 255 at the center,
// 0 at Radius and beyond.
type CircularGradient struct {
	*SinglePosition
	radius float64
}

// NewCircularGradient uses DefaultRadius when radius is not positive.
func NewCircularGradient(cfg PositionConfig, radius float64) (*CircularGradient, error) {
	sp, err := NewSinglePosition(cfg)
	if err != nil {
		return nil, err
	}
	if radius <= 0 {
		radius = DefaultRadius
	}
	return &CircularGradient{SinglePosition: sp, radius: radius}, nil
}

func (l *CircularGradient) Value(p mgl64.Vec2) float64 {
	d := l.position.Sub(p).Len()
	if d >= l.radius {
		return 0
	}
	return 255 * math.Min(1-d/l.radius, 1)
}

func (l *CircularGradient) Gradient(p mgl64.Vec2) mgl64.Vec2 {
	if l.position.Sub(p).Len() >= l.radius {
		return mgl64.Vec2{}
	}
	return towards(l.position, p)
}

func (l *CircularGradient) Radius() float64 {
	return l.radius
}
