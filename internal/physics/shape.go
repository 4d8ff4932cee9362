package physics

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kilosim/internal/dynamo"
)

type ShapeKind int

const (
	ShapeCircle ShapeKind = iota
	ShapeQuad
	ShapeCornerQuad
	ShapeLetterL
	ShapeLetterT
	ShapeLetterC
)

var shapeNames = map[ShapeKind]string{
	ShapeCircle:     "circle",
	ShapeQuad:       "quad",
	ShapeCornerQuad: "corner_quad",
	ShapeLetterL:    "l",
	ShapeLetterT:    "t",
	ShapeLetterC:    "c",
}

func (k ShapeKind) String() string {
	if s, ok := shapeNames[k]; ok {
		return s
	}
	return fmt.Sprintf("shape(%d)", int(k))
}

func ParseShapeKind(name string) (ShapeKind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for k, s := range shapeNames {
		if s == n {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: shape %q", dynamo.ErrUnknownVariant, name)
}

// Shape is fixture geometry in body-local coordinates. Circles use Radius,
// every other kind is a set of convex polygons.
type Shape struct {
	Kind     ShapeKind
	Radius   float64
	Width    float64
	Height   float64
	Polygons [][]mgl64.Vec2
}

func Circle(radius float64) Shape {
	return Shape{Kind: ShapeCircle, Radius: radius, Width: 2 * radius, Height: 2 * radius}
}

func Quad(width, height float64) Shape {
	hw, hh := width/2, height/2
	return Shape{
		Kind:   ShapeQuad,
		Width:  width,
		Height: height,
		Polygons: [][]mgl64.Vec2{{
			{-hw, -hh}, {hw, -hh}, {hw, hh}, {-hw, hh},
		}},
	}
}

// CornerQuad is a quad whose first three vertices are drawn highlighted,
// which makes its orientation visible.
func CornerQuad(width, height float64) Shape {
	s := Quad(width, height)
	s.Kind = ShapeCornerQuad
	return s
}

func LetterL(width, height float64) Shape {
	return letter(ShapeLetterL, width, height, width/2, height/3, [][]mgl64.Vec2{
		{{-0.075, 0}, {-0.075, -0.1}, {0.125, -0.1}, {0.125, 0}},
		{{-0.075, 0}, {-0.075, 0.2}, {0.025, 0.2}, {0.025, 0}},
	})
}

func LetterT(width, height float64) Shape {
	return letter(ShapeLetterT, width, height, width/3, height/2, [][]mgl64.Vec2{
		{{0.15, 0.025}, {-0.15, 0.025}, {-0.15, -0.075}, {0.15, -0.075}},
		{{0.05, 0.125}, {0.05, 0.025}, {-0.05, 0.025}, {-0.05, 0.125}},
	})
}

func LetterC(width, height float64) Shape {
	return letter(ShapeLetterC, width, height, width/3, height/2, [][]mgl64.Vec2{
		{{0.15, 0.01}, {-0.15, 0.01}, {-0.15, -0.09}, {0.15, -0.09}},
		{{-0.15, 0.01}, {-0.15, 0.11}, {-0.08, 0.11}, {-0.05, 0.01}},
		{{0.15, 0.01}, {0.15, 0.11}, {0.08, 0.11}, {0.05, 0.01}},
	})
}

func letter(kind ShapeKind, width, height, sx, sy float64, polys [][]mgl64.Vec2) Shape {
	s := Shape{Kind: kind, Width: width, Height: height, Polygons: make([][]mgl64.Vec2, len(polys))}
	for i, poly := range polys {
		scaled := make([]mgl64.Vec2, len(poly))
		for j, v := range poly {
			scaled[j] = mgl64.Vec2{v[0] * sx, v[1] * sy}
		}
		s.Polygons[i] = scaled
	}
	return s
}

// NewShape builds a shape by kind. Radius is only read for circles.
func NewShape(kind ShapeKind, width, height, radius float64) (Shape, error) {
	switch kind {
	case ShapeCircle:
		if radius <= 0 {
			return Shape{}, fmt.Errorf("%w: circle radius must be positive, got %g", dynamo.ErrInvalidConfig, radius)
		}
		return Circle(radius), nil
	}
	if width <= 0 || height <= 0 {
		return Shape{}, fmt.Errorf("%w: %s needs positive width and height", dynamo.ErrInvalidConfig, kind)
	}
	switch kind {
	case ShapeQuad:
		return Quad(width, height), nil
	case ShapeCornerQuad:
		return CornerQuad(width, height), nil
	case ShapeLetterL:
		return LetterL(width, height), nil
	case ShapeLetterT:
		return LetterT(width, height), nil
	case ShapeLetterC:
		return LetterC(width, height), nil
	}
	return Shape{}, fmt.Errorf("%w: %s", dynamo.ErrUnknownVariant, kind)
}

// Highlight returns the highlighted triangle of a corner quad, nil otherwise.
func (s Shape) Highlight() []mgl64.Vec2 {
	if s.Kind != ShapeCornerQuad || len(s.Polygons) == 0 {
		return nil
	}
	return s.Polygons[0][:3]
}
