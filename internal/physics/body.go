package physics

import (
	"github.com/ByteArena/box2d"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kilosim/internal/dynamo"
)

// Body is the slice of a rigid body the kilobot model is allowed to touch.
type Body interface {
	Pose() dynamo.Pose
	WorldPoint(local mgl64.Vec2) mgl64.Vec2
	WorldVector(local mgl64.Vec2) mgl64.Vec2
	SetVelocity(linear mgl64.Vec2, angular float64)
	Velocity() (mgl64.Vec2, float64)
}

// Material holds the per-body physical constants.
type Material struct {
	Density        float64
	Friction       float64
	Restitution    float64
	LinearDamping  float64
	AngularDamping float64
}

// DefaultMaterial is used for passive objects in the arena.
func DefaultMaterial() Material {
	return Material{
		Density:        2,
		Friction:       0.01,
		Restitution:    0,
		LinearDamping:  8,
		AngularDamping: 8,
	}
}

var _ Body = (*RigidBody)(nil)

type RigidBody struct {
	body *box2d.B2Body
}

func (b *RigidBody) Pose() dynamo.Pose {
	p := b.body.GetPosition()
	return dynamo.Pose{X: p.X, Y: p.Y, Theta: b.body.GetAngle()}
}

func (b *RigidBody) Position() mgl64.Vec2 {
	return fromB2(b.body.GetPosition())
}

func (b *RigidBody) WorldPoint(local mgl64.Vec2) mgl64.Vec2 {
	return fromB2(b.body.GetWorldPoint(toB2(local)))
}

func (b *RigidBody) WorldVector(local mgl64.Vec2) mgl64.Vec2 {
	return fromB2(b.body.GetWorldVector(toB2(local)))
}

func (b *RigidBody) SetVelocity(linear mgl64.Vec2, angular float64) {
	b.body.SetLinearVelocity(toB2(linear))
	b.body.SetAngularVelocity(angular)
}

func (b *RigidBody) Velocity() (mgl64.Vec2, float64) {
	return fromB2(b.body.GetLinearVelocity()), b.body.GetAngularVelocity()
}

// SetPose teleports the body. Velocities are kept.
func (b *RigidBody) SetPose(p dynamo.Pose) {
	b.body.SetTransform(box2d.MakeB2Vec2(p.X, p.Y), p.Theta)
}

func toB2(v mgl64.Vec2) box2d.B2Vec2 {
	return box2d.MakeB2Vec2(v[0], v[1])
}

func fromB2(v box2d.B2Vec2) mgl64.Vec2 {
	return mgl64.Vec2{v.X, v.Y}
}
