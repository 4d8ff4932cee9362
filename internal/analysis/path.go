package analysis

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kilosim/internal/dynamo"
)

// Path collects the positions of kilobot id over a run.
func Path(snaps []dynamo.Snapshot, id int) ([]mgl64.Vec2, error) {
	out := make([]mgl64.Vec2, 0, len(snaps))
	for i := range snaps {
		ks := snaps[i].Kilobots
		if id < 0 || id >= len(ks) {
			return nil, fmt.Errorf("%w: kilobot %d of %d at step %d", dynamo.ErrDimensionMismatch, id, len(ks), snaps[i].Step)
		}
		out = append(out, mgl64.Vec2{ks[id].Pose.X, ks[id].Pose.Y})
	}
	return out, nil
}

// PathToASCII plots points inside box, y up. The first point is drawn as
// 'o' and the last as '@'.
func PathToASCII(points []mgl64.Vec2, box dynamo.Box, width, height int) string {
	if len(points) == 0 || width < 2 || height < 2 || box.Dim() != 2 {
		return ""
	}
	minX, minY := box.Low[0], box.Low[1]
	rangeX, rangeY := box.High[0]-minX, box.High[1]-minY
	if rangeX <= 0 {
		rangeX = 1
	}
	if rangeY <= 0 {
		rangeY = 1
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	cell := func(p mgl64.Vec2) (int, int, bool) {
		col := int((p[0] - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p[1]-minY)/rangeY*float64(height-1))
		return row, col, row >= 0 && row < height && col >= 0 && col < width
	}

	// axes through the origin when visible
	if row, col, ok := cell(mgl64.Vec2{0, 0}); ok {
		for r := range canvas {
			canvas[r][col] = '│'
		}
		for c := range canvas[row] {
			canvas[row][c] = '─'
		}
		canvas[row][col] = '┼'
	}

	for _, p := range points {
		if row, col, ok := cell(p); ok {
			canvas[row][col] = '•'
		}
	}
	if row, col, ok := cell(points[0]); ok {
		canvas[row][col] = 'o'
	}
	if row, col, ok := cell(points[len(points)-1]); ok {
		canvas[row][col] = '@'
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
