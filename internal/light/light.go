// Package light implements the abstract light fields kilobots react to.
//
// A [Light] is a scalar field over the plane with a direction hint, driven by
// an action vector once per tick. Variants:
//
//   - [SinglePosition]: negative distance to a movable point
//   - [CircularGradient]: linear falloff from 255 to 0 around a movable point
//   - [Gradient]: uniform directional field with a rotatable angle
//   - [Momentum]: circular light that moves with a steerable velocity
//   - [Composite]: ordered children combined by a [Reducer]
//
// Actions and states are never rejected: out-of-range values are clamped to
// the declared [dynamo.Box] bounds. A nil or empty action is a no-op tick.
package light

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kilosim/internal/dynamo"
)

type Light interface {
	Step(action []float64, dt float64)
	Value(p mgl64.Vec2) float64
	Gradient(p mgl64.Vec2) mgl64.Vec2
	State() []float64
	ActionSpace() dynamo.Box
	ObservationSpace() dynamo.Box
}

// Positioner is implemented by lights that have a single point source.
type Positioner interface {
	Position() mgl64.Vec2
}

func absent(action []float64) bool {
	return len(action) == 0
}

func clampVec(v mgl64.Vec2, b dynamo.Box) mgl64.Vec2 {
	c := b.Clip(v[:])
	return mgl64.Vec2{c[0], c[1]}
}

// towards returns the unit vector from p to target, or the zero vector when
// they coincide.
func towards(target, p mgl64.Vec2) mgl64.Vec2 {
	d := target.Sub(p)
	l := d.Len()
	if l == 0 {
		return mgl64.Vec2{}
	}
	return d.Mul(1 / l)
}
