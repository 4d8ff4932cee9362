package kilobot

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kilosim/internal/physics"
)

// Geometry holds the constants of the kilobot model. Offsets are in the
// body frame with +Y pointing towards the front leg.
type Geometry struct {
	Radius      float64
	LegFront    mgl64.Vec2
	LegLeft     mgl64.Vec2
	LegRight    mgl64.Vec2
	LightSensor mgl64.Vec2
	LED         mgl64.Vec2

	MaxLinearVelocity  float64 // m/s
	MaxAngularVelocity float64 // rad/s

	Material physics.Material
}

func DefaultGeometry() Geometry {
	const r = 0.0165
	return Geometry{
		Radius:             r,
		LegFront:           mgl64.Vec2{0, r},
		LegLeft:            mgl64.Vec2{-0.013, -0.009},
		LegRight:           mgl64.Vec2{0.013, -0.009},
		LightSensor:        mgl64.Vec2{0, -r},
		LED:                mgl64.Vec2{0.011, 0.01},
		MaxLinearVelocity:  0.01,
		MaxAngularVelocity: 0.2 * math.Pi,
		Material: physics.Material{
			Density:        1,
			Friction:       0.2,
			Restitution:    0,
			LinearDamping:  0.8,
			AngularDamping: 0.8,
		},
	}
}

// Forward is the body-frame unit vector towards the front leg, +Y when the
// front leg is unset.
func (g Geometry) Forward() mgl64.Vec2 {
	if g.LegFront.Len() == 0 {
		return mgl64.Vec2{0, 1}
	}
	return g.LegFront.Normalize()
}

// MotorCommand is the duty cycle of both vibration motors.
type MotorCommand struct {
	Left, Right uint8
}

func (c MotorCommand) Active() bool {
	return c.Left != 0 || c.Right != 0
}

// Kinematics maps motor commands to body velocities with the leg-pivot
// approximation: one active motor pivots the robot about the opposite leg.
type Kinematics struct {
	Geometry Geometry
}

func NewKinematics(g Geometry) Kinematics {
	return Kinematics{Geometry: g}
}

// Velocity returns the linear and angular velocity the body should take for
// the next dt seconds. With dt <= 0 the pivot cases yield no translation.
func (k Kinematics) Velocity(cmd MotorCommand, body physics.Body, dt float64) (mgl64.Vec2, float64) {
	g := k.Geometry
	left, right := float64(cmd.Left), float64(cmd.Right)

	switch {
	case cmd.Left != 0 && cmd.Right != 0:
		speed := (left + right) / 510 * g.MaxLinearVelocity
		heading := body.WorldVector(g.Forward())
		return heading.Mul(speed), (right - left) / 510 * g.MaxAngularVelocity

	case cmd.Right != 0:
		omega := right / 255 * g.MaxAngularVelocity
		return pivot(body, g.LegLeft, omega, dt), omega

	case cmd.Left != 0:
		omega := -left / 255 * g.MaxAngularVelocity
		return pivot(body, g.LegRight, omega, dt), omega
	}

	return mgl64.Vec2{}, 0
}

// pivot returns the linear velocity that keeps leg fixed in the world while
// the body turns by omega*dt.
func pivot(body physics.Body, leg mgl64.Vec2, omega, dt float64) mgl64.Vec2 {
	if dt <= 0 {
		return mgl64.Vec2{}
	}
	translation := leg.Sub(mgl64.Rotate2D(omega * dt).Mul2x1(leg))
	return body.WorldVector(translation).Mul(1 / dt)
}
