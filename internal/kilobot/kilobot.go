// Package kilobot models vibration-driven kilobots: a circular rigid body,
// two discretized motors and a light sensor, driven by a pluggable Behavior.
//
// Each tick the behavior runs first and may change the motor command, then
// the kinematic model turns the command into body velocities that the
// physics world integrates.
package kilobot

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kilosim/internal/dynamo"
	"github.com/san-kum/kilosim/internal/light"
	"github.com/san-kum/kilosim/internal/physics"
	"go.uber.org/zap"
)

// Direction is the current turn direction set by TurnLeft or TurnRight.
type Direction int

const (
	NoTurn Direction = iota
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "none"
}

var (
	ColorLeft  = dynamo.Color{R: 0, G: 255, B: 0}
	ColorRight = dynamo.Color{R: 255, G: 0, B: 0}
	ColorBody  = dynamo.Color{R: 100, G: 100, B: 100}
	ColorIdle  = dynamo.Color{R: 255, G: 255, B: 255}
)

type Option func(*Kilobot)

func WithGeometry(g Geometry) Option {
	return func(k *Kilobot) { k.geometry = g }
}

func WithLogger(l *zap.Logger) Option {
	return func(k *Kilobot) {
		if l != nil {
			k.logger = l
		}
	}
}

type Kilobot struct {
	world      *physics.World
	body       *physics.RigidBody
	geometry   Geometry
	kinematics Kinematics
	light      light.Light
	behavior   Behavior
	logger     *zap.Logger

	motors    MotorCommand
	direction Direction
	color     dynamo.Color

	// final pose, kept once the body is destroyed
	pose dynamo.Pose
}

// New creates the kilobot body in world and runs the behavior's Setup.
// The light may be nil, in which case the ambient reading is always 0.
func New(world *physics.World, pose dynamo.Pose, l light.Light, b Behavior, opts ...Option) (*Kilobot, error) {
	if world == nil {
		return nil, fmt.Errorf("%w: kilobot needs a world", dynamo.ErrInvalidConfig)
	}
	if b == nil {
		return nil, dynamo.ErrMissingBehavior
	}

	k := &Kilobot{
		world:    world,
		geometry: DefaultGeometry(),
		light:    l,
		behavior: b,
		logger:   zap.NewNop(),
		color:    ColorIdle,
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.geometry.Radius <= 0 {
		return nil, fmt.Errorf("%w: kilobot radius must be positive, got %g", dynamo.ErrInvalidConfig, k.geometry.Radius)
	}
	k.kinematics = NewKinematics(k.geometry)

	body, err := world.CreateBody(physics.Circle(k.geometry.Radius), pose, k.geometry.Material)
	if err != nil {
		return nil, fmt.Errorf("create kilobot body: %w", err)
	}
	k.body = body

	b.Setup(k)
	return k, nil
}

// Step runs one behavior iteration and writes the resulting velocities onto
// the body. It does not advance the world.
func (k *Kilobot) Step(dt float64) {
	if k.body == nil {
		return
	}
	k.behavior.Loop(k)
	linear, angular := k.kinematics.Velocity(k.motors, k.body, dt)
	k.body.SetVelocity(linear, angular)
}

// SensorPosition is the world position at which ambient light is read.
func (k *Kilobot) SensorPosition() mgl64.Vec2 {
	return k.worldPoint(k.geometry.LightSensor)
}

func (k *Kilobot) AmbientLight() float64 {
	if k.light == nil || k.body == nil {
		return 0
	}
	return k.light.Value(k.SensorPosition())
}

func (k *Kilobot) LEDPosition() mgl64.Vec2 {
	return k.worldPoint(k.geometry.LED)
}

func (k *Kilobot) worldPoint(local mgl64.Vec2) mgl64.Vec2 {
	if k.body != nil {
		return k.body.WorldPoint(local)
	}
	return WorldPoint(k.pose, local)
}

// WorldPoint maps a body-frame point to the world for a kilobot at pose.
func WorldPoint(pose dynamo.Pose, local mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{pose.X, pose.Y}.Add(mgl64.Rotate2D(pose.Theta).Mul2x1(local))
}

func (k *Kilobot) SetMotors(left, right uint8) {
	k.motors = MotorCommand{Left: left, Right: right}
}

func (k *Kilobot) Motors() MotorCommand {
	return k.motors
}

func (k *Kilobot) TurnLeft() {
	k.direction = Left
	k.SetMotors(255, 0)
	k.SetColor(ColorLeft)
}

func (k *Kilobot) TurnRight() {
	k.direction = Right
	k.SetMotors(0, 255)
	k.SetColor(ColorRight)
}

// SwitchDirection turns right after a left turn and left otherwise.
func (k *Kilobot) SwitchDirection() {
	if k.direction == Left {
		k.TurnRight()
		return
	}
	k.TurnLeft()
}

func (k *Kilobot) TurnDirection() Direction {
	return k.direction
}

func (k *Kilobot) SetColor(c dynamo.Color) {
	k.color = c
}

// Color is the highlight color; it carries no physical meaning.
func (k *Kilobot) Color() dynamo.Color {
	return k.color
}

// Pose is the body pose, or the last one once destroyed.
func (k *Kilobot) Pose() dynamo.Pose {
	if k.body == nil {
		return k.pose
	}
	return k.body.Pose()
}

func (k *Kilobot) Position() mgl64.Vec2 {
	p := k.Pose()
	return mgl64.Vec2{p.X, p.Y}
}

// Body is nil after Destroy.
func (k *Kilobot) Body() *physics.RigidBody {
	return k.body
}

func (k *Kilobot) Radius() float64 {
	return k.geometry.Radius
}

func (k *Kilobot) Geometry() Geometry {
	return k.geometry
}

func (k *Kilobot) Light() light.Light {
	return k.light
}

func (k *Kilobot) SetLight(l light.Light) {
	k.light = l
}

func (k *Kilobot) Behavior() Behavior {
	return k.behavior
}

func (k *Kilobot) Logger() *zap.Logger {
	return k.logger
}

// Destroy removes the body from the world. Afterwards Step does nothing,
// the ambient reading is 0 and the pose stays where the body was.
func (k *Kilobot) Destroy() {
	if k.body == nil {
		return
	}
	k.pose = k.body.Pose()
	k.world.DestroyBody(k.body)
	k.body = nil
}

func (k *Kilobot) Destroyed() bool {
	return k.body == nil
}

func (k *Kilobot) State() dynamo.KilobotState {
	return dynamo.KilobotState{
		Pose:    k.Pose(),
		Left:    k.motors.Left,
		Right:   k.motors.Right,
		Ambient: k.AmbientLight(),
		Color:   k.color,
	}
}
