package physics

import (
	"fmt"

	"github.com/ByteArena/box2d"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kilosim/internal/dynamo"
)

// World is a top-down Box2D world: gravity is zero and bodies slow down only
// through damping and contacts.
type World struct {
	b2    box2d.B2World
	walls *box2d.B2Body
}

func NewWorld() *World {
	return &World{b2: box2d.MakeB2World(box2d.MakeB2Vec2(0.0, 0.0))}
}

// CreateBody adds a dynamic body carrying shape at pose.
func (w *World) CreateBody(shape Shape, pose dynamo.Pose, m Material) (*RigidBody, error) {
	if shape.Kind != ShapeCircle && len(shape.Polygons) == 0 {
		return nil, fmt.Errorf("%w: %s has no polygons", dynamo.ErrInvalidConfig, shape.Kind)
	}

	bodydef := box2d.MakeB2BodyDef()
	bodydef.Type = box2d.B2BodyType.B2_dynamicBody
	bodydef.Position.Set(pose.X, pose.Y)
	bodydef.Angle = pose.Theta
	bodydef.LinearDamping = m.LinearDamping
	bodydef.AngularDamping = m.AngularDamping
	// kilobot speeds sit right at Box2D's sleep tolerance
	bodydef.AllowSleep = false

	body := w.b2.CreateBody(&bodydef)
	attachShape(body, shape, m)
	body.SetLinearVelocity(box2d.MakeB2Vec2(0, 0))
	body.SetAngularVelocity(0)

	return &RigidBody{body: body}, nil
}

func (w *World) DestroyBody(b *RigidBody) {
	if b == nil || b.body == nil {
		return
	}
	w.b2.DestroyBody(b.body)
	b.body = nil
}

// NewObject creates a passive body for the arena.
func (w *World) NewObject(shape Shape, pose dynamo.Pose, m Material) (*Object, error) {
	body, err := w.CreateBody(shape, pose, m)
	if err != nil {
		return nil, err
	}
	return &Object{
		RigidBody: body,
		shape:     shape,
		Color:     dynamo.Color{R: 93, G: 133, B: 195},
		Highlight: dynamo.Color{R: 238, G: 80, B: 62},
	}, nil
}

// AddWalls closes the rectangle [minX,maxX]x[minY,maxY] with a static chain loop.
func (w *World) AddWalls(minX, minY, maxX, maxY float64) error {
	if minX >= maxX || minY >= maxY {
		return fmt.Errorf("%w: empty arena [%g,%g]x[%g,%g]", dynamo.ErrInvalidConfig, minX, maxX, minY, maxY)
	}
	if w.walls != nil {
		w.b2.DestroyBody(w.walls)
	}

	bodydef := box2d.MakeB2BodyDef()
	bodydef.Type = box2d.B2BodyType.B2_staticBody
	body := w.b2.CreateBody(&bodydef)

	vertices := []box2d.B2Vec2{
		box2d.MakeB2Vec2(minX, minY),
		box2d.MakeB2Vec2(maxX, minY),
		box2d.MakeB2Vec2(maxX, maxY),
		box2d.MakeB2Vec2(minX, maxY),
	}
	shape := box2d.MakeB2ChainShape()
	shape.CreateLoop(vertices, len(vertices))
	body.CreateFixture(&shape, 0.0)

	w.walls = body
	return nil
}

// Step integrates every body over dt.
func (w *World) Step(dt float64, velocityIterations, positionIterations int) {
	w.b2.Step(dt, velocityIterations, positionIterations)
}

func (w *World) BodyCount() int {
	return w.b2.GetBodyCount()
}

func attachShape(body *box2d.B2Body, s Shape, m Material) {
	if s.Kind == ShapeCircle {
		circle := box2d.MakeB2CircleShape()
		circle.SetRadius(s.Radius)
		fixturedef := box2d.MakeB2FixtureDef()
		fixturedef.Shape = &circle
		fixturedef.Density = m.Density
		fixturedef.Friction = m.Friction
		fixturedef.Restitution = m.Restitution
		body.CreateFixtureFromDef(&fixturedef)
		return
	}

	for _, poly := range s.Polygons {
		vertices := make([]box2d.B2Vec2, len(poly))
		for i, v := range poly {
			vertices[i] = toB2(v)
		}
		polygon := box2d.MakeB2PolygonShape()
		polygon.Set(vertices, len(vertices))

		fixturedef := box2d.MakeB2FixtureDef()
		fixturedef.Shape = &polygon
		fixturedef.Density = m.Density
		fixturedef.Friction = m.Friction
		fixturedef.Restitution = m.Restitution
		body.CreateFixtureFromDef(&fixturedef)
	}
}

// Object is a passive arena body with display colors.
type Object struct {
	*RigidBody
	shape     Shape
	Color     dynamo.Color
	Highlight dynamo.Color
}

func (o *Object) Shape() Shape {
	return o.shape
}

// WorldPolygons returns the object's polygons in world coordinates.
func (o *Object) WorldPolygons() [][]mgl64.Vec2 {
	out := make([][]mgl64.Vec2, len(o.shape.Polygons))
	for i, poly := range o.shape.Polygons {
		out[i] = make([]mgl64.Vec2, len(poly))
		for j, v := range poly {
			out[i][j] = o.WorldPoint(v)
		}
	}
	return out
}
