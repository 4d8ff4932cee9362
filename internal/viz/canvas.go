package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kilosim/internal/dynamo"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a character grid of braille cells. Each cell holds 2x4
// sub-pixels and an optional foreground color.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
	Tints         [][]string
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
		Tints:  make([][]string, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		c.Tints[i] = make([]string, w)
	}
	c.Clear()
	return c
}

// PixelSize returns the canvas size in sub-pixels.
func (c *Canvas) PixelSize() (int, int) {
	return c.Width * 2, c.Height * 4
}

// Set sets a pixel at (x, y) where x,y are in sub-pixel coordinates.
func (c *Canvas) Set(x, y int) {
	row, col, ok := c.cell(x, y)
	if !ok {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

// Unset clears a pixel
func (c *Canvas) Unset(x, y int) {
	row, col, ok := c.cell(x, y)
	if !ok {
		return
	}
	c.Grid[row][col] &= ^rune(pixelMap[y%4][x%2])
	if c.Grid[row][col] < blank {
		c.Grid[row][col] = blank
	}
}

// IsSet reports whether the pixel at (x, y) is lit.
func (c *Canvas) IsSet(x, y int) bool {
	row, col, ok := c.cell(x, y)
	if !ok {
		return false
	}
	return c.Grid[row][col]&rune(pixelMap[y%4][x%2]) != 0
}

// Tint colors the cell holding sub-pixel (x, y). color is a hex string.
func (c *Canvas) Tint(x, y int, color string) {
	row, col, ok := c.cell(x, y)
	if !ok {
		return
	}
	c.Tints[row][col] = color
}

func (c *Canvas) cell(x, y int) (int, int, bool) {
	if x < 0 || y < 0 {
		return 0, 0, false
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return 0, 0, false
	}
	return row, col, true
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
			c.Tints[i][j] = ""
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawCircle draws a circle outline with the midpoint algorithm. A radius
// below one pixel lights the center only.
func (c *Canvas) DrawCircle(cx, cy, r int) {
	if r < 1 {
		c.Set(cx, cy)
		return
	}
	x, y := r, 0
	err := 1 - r
	for x >= y {
		for _, p := range [8][2]int{
			{x, y}, {y, x}, {-y, x}, {-x, y},
			{-x, -y}, {-y, -x}, {y, -x}, {x, -y},
		} {
			c.Set(cx+p[0], cy+p[1])
		}
		y++
		if err < 0 {
			err += 2*y + 1
		} else {
			x--
			err += 2*(y-x) + 1
		}
	}
}

// DrawPolygon draws a closed outline through pts.
func (c *Canvas) DrawPolygon(pts [][2]int) {
	for i := range pts {
		j := (i + 1) % len(pts)
		c.DrawLine(pts[i][0], pts[i][1], pts[j][0], pts[j][1])
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Render is String with cell tints applied.
func (c *Canvas) Render() string {
	var b strings.Builder
	for i, row := range c.Grid {
		for j, r := range row {
			if tint := c.Tints[i][j]; tint != "" && r != blank {
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(tint)).Render(string(r)))
				continue
			}
			b.WriteRune(r)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Viewport maps arena coordinates onto canvas sub-pixels with a uniform
// scale, y pointing up.
type Viewport struct {
	MinX, MinY float64
	Scale      float64
	OffX, OffY int
	PixelH     int
}

func NewViewport(arena dynamo.Box, c *Canvas) Viewport {
	minX, minY, maxX, maxY := -1.0, -1.0, 1.0, 1.0
	if arena.Dim() >= 2 && finite(arena.Low[0], arena.Low[1], arena.High[0], arena.High[1]) {
		minX, minY, maxX, maxY = arena.Low[0], arena.Low[1], arena.High[0], arena.High[1]
	}
	pw, ph := c.PixelSize()
	w, h := maxX-minX, maxY-minY
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	scale := math.Min(float64(pw-1)/w, float64(ph-1)/h)
	return Viewport{
		MinX:   minX,
		MinY:   minY,
		Scale:  scale,
		OffX:   (pw - 1 - int(math.Round(w*scale))) / 2,
		OffY:   (ph - 1 - int(math.Round(h*scale))) / 2,
		PixelH: ph,
	}
}

func (v Viewport) Project(p mgl64.Vec2) (int, int) {
	x := v.OffX + int(math.Round((p[0]-v.MinX)*v.Scale))
	y := v.PixelH - 1 - v.OffY - int(math.Round((p[1]-v.MinY)*v.Scale))
	return x, y
}

func (v Viewport) Length(d float64) int {
	return int(math.Round(d * v.Scale))
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}
