package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kilosim/internal/dynamo"
	"github.com/san-kum/kilosim/internal/kilobot"
	"github.com/san-kum/kilosim/internal/sim"
)

const (
	headingScale = 1.8
	targetArm    = 3
)

// Scene holds what a snapshot does not: the arena, the kilobot radius and
// LED offset, and obstacle outlines in world coordinates.
type Scene struct {
	Arena    dynamo.Box
	Radius   float64
	LED      mgl64.Vec2
	Polygons [][]mgl64.Vec2
	Walls    bool
}

// SceneFrom reads obstacle outlines from the simulator's current state.
func SceneFrom(s *sim.Simulator, arena dynamo.Box, walls bool) Scene {
	g := kilobot.DefaultGeometry()
	if ks := s.Kilobots(); len(ks) > 0 {
		g = ks[0].Geometry()
	}
	sc := Scene{Arena: arena, Radius: g.Radius, LED: g.LED, Walls: walls}
	for _, o := range s.Objects() {
		sc.Polygons = append(sc.Polygons, o.WorldPolygons()...)
	}
	return sc
}

// Draw clears c and renders snap into it.
func (sc Scene) Draw(c *Canvas, snap *dynamo.Snapshot) {
	c.Clear()
	vp := NewViewport(sc.Arena, c)

	if sc.Walls && sc.Arena.Dim() >= 2 {
		lo := mgl64.Vec2{sc.Arena.Low[0], sc.Arena.Low[1]}
		hi := mgl64.Vec2{sc.Arena.High[0], sc.Arena.High[1]}
		c.DrawPolygon(project(vp, []mgl64.Vec2{lo, {hi[0], lo[1]}, hi, {lo[0], hi[1]}}))
	}

	for _, poly := range sc.Polygons {
		pts := project(vp, poly)
		c.DrawPolygon(pts)
		for _, p := range pts {
			c.Tint(p[0], p[1], string(CurrentTheme.Muted))
		}
	}

	if snap == nil {
		return
	}

	if snap.HasTarget {
		x, y := vp.Project(mgl64.Vec2{snap.Target[0], snap.Target[1]})
		c.DrawLine(x-targetArm, y, x+targetArm, y)
		c.DrawLine(x, y-targetArm, x, y+targetArm)
		for d := -targetArm; d <= targetArm; d++ {
			c.Tint(x+d, y, string(CurrentTheme.Accent))
			c.Tint(x, y+d, string(CurrentTheme.Accent))
		}
	}

	r := vp.Length(sc.Radius)
	for _, k := range snap.Kilobots {
		center := mgl64.Vec2{k.Pose.X, k.Pose.Y}
		x, y := vp.Project(center)
		c.DrawCircle(x, y, r)

		tip := center.Add(Heading(k.Pose.Theta).Mul(sc.Radius * headingScale))
		hx, hy := vp.Project(tip)
		c.DrawLine(x, y, hx, hy)

		if k.Color != (dynamo.Color{}) {
			hex := k.Color.Hex()
			for dy := -r; dy <= r; dy += 2 {
				for dx := -r; dx <= r; dx += 2 {
					c.Tint(x+dx, y+dy, hex)
				}
			}
			c.Tint(hx, hy, hex)
			if sc.LED != (mgl64.Vec2{}) {
				lx, ly := vp.Project(kilobot.WorldPoint(k.Pose, sc.LED))
				c.Set(lx, ly)
				c.Tint(lx, ly, hex)
			}
		}
	}
}

// Heading is the world direction of a kilobot's local +Y axis.
func Heading(theta float64) mgl64.Vec2 {
	return mgl64.Vec2{-math.Sin(theta), math.Cos(theta)}
}

func project(vp Viewport, poly []mgl64.Vec2) [][2]int {
	pts := make([][2]int, len(poly))
	for i, p := range poly {
		pts[i][0], pts[i][1] = vp.Project(p)
	}
	return pts
}
