package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kilosim/internal/dynamo"
)

func TestCreateBodyPose(t *testing.T) {
	w := NewWorld()
	b, err := w.CreateBody(Circle(0.05), dynamo.Pose{X: 0.1, Y: -0.2, Theta: 0.3}, DefaultMaterial())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	p := b.Pose()
	if math.Abs(p.X-0.1) > 1e-9 || math.Abs(p.Y+0.2) > 1e-9 || math.Abs(p.Theta-0.3) > 1e-9 {
		t.Errorf("Pose() = %v, want (0.1, -0.2, 0.3)", p)
	}
	if w.BodyCount() != 1 {
		t.Errorf("expected 1 body, got %d", w.BodyCount())
	}
}

func TestWorldTransforms(t *testing.T) {
	w := NewWorld()
	b, err := w.CreateBody(Circle(0.05), dynamo.Pose{X: 1, Y: 2, Theta: math.Pi / 2}, DefaultMaterial())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	pt := b.WorldPoint(mgl64.Vec2{1, 0})
	if !pt.ApproxEqualThreshold(mgl64.Vec2{1, 3}, 1e-9) {
		t.Errorf("WorldPoint = %v, want (1, 3)", pt)
	}

	v := b.WorldVector(mgl64.Vec2{0, 1})
	if !v.ApproxEqualThreshold(mgl64.Vec2{-1, 0}, 1e-9) {
		t.Errorf("WorldVector = %v, want (-1, 0)", v)
	}
}

func TestStepIntegratesVelocity(t *testing.T) {
	w := NewWorld()
	m := DefaultMaterial()
	m.LinearDamping = 0
	m.AngularDamping = 0
	b, err := w.CreateBody(Circle(0.05), dynamo.Pose{}, m)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	b.SetVelocity(mgl64.Vec2{0.1, 0}, 0.5)
	for i := 0; i < 10; i++ {
		w.Step(0.1, 8, 3)
	}

	p := b.Pose()
	if math.Abs(p.X-0.1) > 1e-3 {
		t.Errorf("expected x ~0.1 after 1s, got %f", p.X)
	}
	if math.Abs(p.Theta-0.5) > 1e-3 {
		t.Errorf("expected theta ~0.5 after 1s, got %f", p.Theta)
	}

	lin, ang := b.Velocity()
	if math.Abs(lin.X()-0.1) > 1e-9 || math.Abs(ang-0.5) > 1e-9 {
		t.Errorf("velocity changed without damping: %v %f", lin, ang)
	}
}

func TestDestroyBody(t *testing.T) {
	w := NewWorld()
	b, _ := w.CreateBody(Quad(0.1, 0.1), dynamo.Pose{}, DefaultMaterial())
	w.DestroyBody(b)
	if w.BodyCount() != 0 {
		t.Errorf("expected 0 bodies, got %d", w.BodyCount())
	}
	// second destroy is a no-op
	w.DestroyBody(b)
}

func TestAddWalls(t *testing.T) {
	w := NewWorld()
	if err := w.AddWalls(0, 0, 0, 1); !errors.Is(err, dynamo.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if err := w.AddWalls(-0.5, -0.5, 0.5, 0.5); err != nil {
		t.Fatalf("AddWalls failed: %v", err)
	}
	if err := w.AddWalls(-1, -1, 1, 1); err != nil {
		t.Fatalf("replacing walls failed: %v", err)
	}
	if w.BodyCount() != 1 {
		t.Errorf("walls should be a single body, got %d", w.BodyCount())
	}
}

func TestObjectWorldPolygons(t *testing.T) {
	w := NewWorld()
	o, err := w.NewObject(Quad(0.2, 0.1), dynamo.Pose{X: 1, Y: 1}, DefaultMaterial())
	if err != nil {
		t.Fatalf("NewObject failed: %v", err)
	}

	polys := o.WorldPolygons()
	if len(polys) != 1 || len(polys[0]) != 4 {
		t.Fatalf("unexpected polygons: %v", polys)
	}
	if !polys[0][0].ApproxEqualThreshold(mgl64.Vec2{0.9, 0.95}, 1e-9) {
		t.Errorf("first vertex = %v, want (0.9, 0.95)", polys[0][0])
	}
}
