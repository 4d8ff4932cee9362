package light

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kilosim/internal/dynamo"
)

// GradientConfig configures a directional field. A zero ActionBounds selects
// +/-pi/2 per second in relative mode and +/-2pi in absolute mode.
type GradientConfig struct {
	Angle        float64
	Relative     bool
	ActionBounds dynamo.Box
}

var _ Light = (*Gradient)(nil)

// Gradient is a uniform field whose value at p is the projection of p onto
// the field direction.
type Gradient struct {
	angle        float64
	dir          mgl64.Vec2
	relative     bool
	actionBounds dynamo.Box
}

func NewGradient(cfg GradientConfig) (*Gradient, error) {
	ab := cfg.ActionBounds
	if ab.Dim() == 0 {
		if cfg.Relative {
			ab = dynamo.Uniform(1, -0.5*math.Pi, 0.5*math.Pi)
		} else {
			ab = dynamo.Uniform(1, -2*math.Pi, 2*math.Pi)
		}
	}
	if ab.Dim() != 1 {
		return nil, fmt.Errorf("%w: gradient action bounds need 1 component, got %d", dynamo.ErrDimensionMismatch, ab.Dim())
	}

	g := &Gradient{relative: cfg.Relative, actionBounds: ab}
	g.SetAngle(cfg.Angle)
	return g, nil
}

func (g *Gradient) Step(action []float64, dt float64) {
	if absent(action) {
		return
	}

	a := g.actionBounds.Clip(action[:1])[0]
	if g.relative {
		g.SetAngle(g.angle + a*dt)
	} else {
		g.SetAngle(a)
	}
}

// SetAngle sets the field direction, wrapped into (-pi, pi].
func (g *Gradient) SetAngle(angle float64) {
	g.angle = wrapAngle(angle)
	g.dir = mgl64.Vec2{math.Cos(g.angle), math.Sin(g.angle)}
}

func (g *Gradient) Angle() float64 {
	return g.angle
}

func (g *Gradient) Direction() mgl64.Vec2 {
	return g.dir
}

func (g *Gradient) Value(p mgl64.Vec2) float64 {
	return g.dir.Dot(p)
}

func (g *Gradient) Gradient(mgl64.Vec2) mgl64.Vec2 {
	return g.dir
}

func (g *Gradient) State() []float64 {
	return []float64{g.angle}
}

func (g *Gradient) ActionSpace() dynamo.Box {
	return g.actionBounds
}

func (g *Gradient) ObservationSpace() dynamo.Box {
	return dynamo.Uniform(1, -math.Pi, math.Pi)
}

func wrapAngle(a float64) float64 {
	r := math.Remainder(a, 2*math.Pi)
	if r <= -math.Pi {
		r += 2 * math.Pi
	}
	return r
}
