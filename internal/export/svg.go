// Package export renders arena snapshots and trajectories as SVG.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kilosim/internal/dynamo"
	"github.com/san-kum/kilosim/internal/kilobot"
	"github.com/san-kum/kilosim/internal/viz"
)

const (
	background  = "#0a0a0a"
	wallColor   = "#444466"
	objectColor = "#666688"
	lightColor  = "#ffff00"
	bodyColor   = "#cccccc"
	margin      = 10.0
	ledScale    = 0.25
)

var trailPalette = []string{"#00ffff", "#ff00ff", "#00ff88", "#ffaa00", "#8888ff", "#ff4444"}

// CanvasToSVG converts a Braille canvas to SVG format, one circle per dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2
	height := float64(canvas.Height) * scale * 4

	var sb strings.Builder
	header(&sb, width, height)
	sb.WriteString(`<g fill="#00ff00">` + "\n")

	pixelMap := [4][2]int{
		{0x01, 0x08},
		{0x02, 0x10},
		{0x04, 0x20},
		{0x40, 0x80},
	}
	dotRadius := scale * 0.4

	for row := 0; row < canvas.Height; row++ {
		for col := 0; col < canvas.Width; col++ {
			pattern := int(canvas.Grid[row][col] - 0x2800)
			if pattern <= 0 {
				continue
			}
			fill := ""
			if tint := canvas.Tints[row][col]; tint != "" {
				fill = fmt.Sprintf(` fill="%s"`, tint)
			}

			baseX := float64(col) * scale * 2
			baseY := float64(row) * scale * 4
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&pixelMap[dy][dx] == 0 {
						continue
					}
					cx := baseX + float64(dx)*scale + scale/2
					cy := baseY + float64(dy)*scale + scale/2
					fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f"%s/>`+"\n", cx, cy, dotRadius, fill)
				}
			}
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// frame maps arena coordinates to SVG pixels with y pointing up.
type frame struct {
	minX, maxY float64
	scale      float64
	w, h       float64
}

func newFrame(arena dynamo.Box, size int) frame {
	minX, minY, maxX, maxY := -1.0, -1.0, 1.0, 1.0
	if arena.Dim() >= 2 && !math.IsInf(arena.Low[0], 0) && !math.IsInf(arena.High[0], 0) &&
		!math.IsInf(arena.Low[1], 0) && !math.IsInf(arena.High[1], 0) {
		minX, minY, maxX, maxY = arena.Low[0], arena.Low[1], arena.High[0], arena.High[1]
	}
	span := math.Max(maxX-minX, maxY-minY)
	if span <= 0 {
		span = 1
	}
	scale := (float64(size) - 2*margin) / span
	return frame{
		minX:  minX,
		maxY:  maxY,
		scale: scale,
		w:     (maxX-minX)*scale + 2*margin,
		h:     (maxY-minY)*scale + 2*margin,
	}
}

func (f frame) point(p mgl64.Vec2) (float64, float64) {
	return margin + (p[0]-f.minX)*f.scale, margin + (f.maxY-p[1])*f.scale
}

func header(sb *strings.Builder, w, h float64) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, w, h, w, h, background)
}

func (f frame) scene(sb *strings.Builder, sc viz.Scene) {
	if sc.Walls && sc.Arena.Dim() >= 2 {
		x0, y0 := f.point(mgl64.Vec2{sc.Arena.Low[0], sc.Arena.High[1]})
		x1, y1 := f.point(mgl64.Vec2{sc.Arena.High[0], sc.Arena.Low[1]})
		fmt.Fprintf(sb, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="none" stroke="%s" stroke-width="2"/>`+"\n",
			x0, y0, x1-x0, y1-y0, wallColor)
	}
	for _, poly := range sc.Polygons {
		pts := make([]string, len(poly))
		for i, p := range poly {
			x, y := f.point(p)
			pts[i] = fmt.Sprintf("%.2f,%.2f", x, y)
		}
		fmt.Fprintf(sb, `<polygon points="%s" fill="%s"/>`+"\n", strings.Join(pts, " "), objectColor)
	}
}

func (f frame) target(sb *strings.Builder, snap *dynamo.Snapshot) {
	if snap == nil || !snap.HasTarget {
		return
	}
	x, y := f.point(mgl64.Vec2{snap.Target[0], snap.Target[1]})
	fmt.Fprintf(sb, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="url(#glow)"/>`+"\n", x, y, 0.25*f.scale)
	fmt.Fprintf(sb, `<circle cx="%.2f" cy="%.2f" r="4" fill="%s"/>`+"\n", x, y, lightColor)
}

func glow(sb *strings.Builder) {
	fmt.Fprintf(sb, `<defs><radialGradient id="glow"><stop offset="0%%" stop-color="%s" stop-opacity="0.5"/><stop offset="100%%" stop-color="%s" stop-opacity="0"/></radialGradient></defs>`+"\n",
		lightColor, lightColor)
}

// ArenaSVG draws one snapshot: walls, obstacles, the light and every
// kilobot filled with its LED color and marked with its heading.
func ArenaSVG(sc viz.Scene, snap *dynamo.Snapshot, size int) string {
	f := newFrame(sc.Arena, size)

	var sb strings.Builder
	header(&sb, f.w, f.h)
	glow(&sb)
	f.scene(&sb, sc)
	f.target(&sb, snap)

	if snap != nil {
		r := sc.Radius * f.scale
		for _, k := range snap.Kilobots {
			center := mgl64.Vec2{k.Pose.X, k.Pose.Y}
			x, y := f.point(center)
			fill := bodyColor
			if k.Color != (dynamo.Color{}) {
				fill = k.Color.Hex()
			}
			hx, hy := f.point(center.Add(viz.Heading(k.Pose.Theta).Mul(sc.Radius)))
			fmt.Fprintf(&sb, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s" stroke="#000000"/>`+"\n", x, y, r, fill)
			fmt.Fprintf(&sb, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="#000000" stroke-width="1.5"/>`+"\n", x, y, hx, hy)
			if sc.LED != (mgl64.Vec2{}) && k.Color != (dynamo.Color{}) {
				lx, ly := f.point(kilobot.WorldPoint(k.Pose, sc.LED))
				fmt.Fprintf(&sb, `<circle class="led" cx="%.2f" cy="%.2f" r="%.2f" fill="%s" stroke="#ffffff"/>`+"\n", lx, ly, math.Max(1, r*ledScale), fill)
			}
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// TrailsToSVG draws each kilobot's path across snaps as a polyline. Paths
// follow kilobot order in the snapshots.
func TrailsToSVG(sc viz.Scene, snaps []dynamo.Snapshot, size int) string {
	f := newFrame(sc.Arena, size)

	var sb strings.Builder
	header(&sb, f.w, f.h)
	glow(&sb)
	f.scene(&sb, sc)

	if len(snaps) > 0 {
		f.target(&sb, &snaps[len(snaps)-1])

		n := len(snaps[0].Kilobots)
		for id := 0; id < n; id++ {
			pts := make([]string, 0, len(snaps))
			for _, snap := range snaps {
				if id >= len(snap.Kilobots) {
					continue
				}
				p := snap.Kilobots[id].Pose
				x, y := f.point(mgl64.Vec2{p.X, p.Y})
				pts = append(pts, fmt.Sprintf("%.2f,%.2f", x, y))
			}
			color := trailPalette[id%len(trailPalette)]
			fmt.Fprintf(&sb, `<polyline points="%s" fill="none" stroke="%s" stroke-width="1.5" stroke-opacity="0.8"/>`+"\n",
				strings.Join(pts, " "), color)
		}

		for _, k := range snaps[len(snaps)-1].Kilobots {
			x, y := f.point(mgl64.Vec2{k.Pose.X, k.Pose.Y})
			fmt.Fprintf(&sb, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s"/>`+"\n", x, y, sc.Radius*f.scale, bodyColor)
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}
