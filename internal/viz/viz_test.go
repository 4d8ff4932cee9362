package viz

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kilosim/internal/config"
	"github.com/san-kum/kilosim/internal/dynamo"
	"github.com/san-kum/kilosim/internal/kilobot"
)

func TestCanvasSetUnset(t *testing.T) {
	c := NewCanvas(4, 2)
	c.Set(3, 5)
	if !c.IsSet(3, 5) {
		t.Fatal("expected pixel to be set")
	}
	if c.Grid[1][1] == blank {
		t.Error("expected cell (1,1) to change")
	}
	c.Unset(3, 5)
	if c.IsSet(3, 5) || c.Grid[1][1] != blank {
		t.Error("expected pixel to be cleared")
	}

	// out of range is ignored
	c.Set(-1, 0)
	c.Set(100, 100)
	if strings.Count(c.String(), "\n") != 2 {
		t.Errorf("expected 2 rows, got %q", c.String())
	}
}

func TestCanvasDrawCircle(t *testing.T) {
	c := NewCanvas(20, 10)
	c.DrawCircle(20, 20, 6)

	for _, p := range [][2]int{{26, 20}, {14, 20}, {20, 26}, {20, 14}} {
		if !c.IsSet(p[0], p[1]) {
			t.Errorf("expected %v on the circle", p)
		}
	}
	if c.IsSet(20, 20) {
		t.Error("expected the center to stay empty")
	}

	c.Clear()
	c.DrawCircle(5, 5, 0)
	if !c.IsSet(5, 5) {
		t.Error("expected a degenerate circle to light its center")
	}
}

func TestCanvasRenderTints(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Tint(0, 0, "#ff0000")
	c.Tint(2, 0, "#00ff00") // blank cells stay plain

	out := c.Render()
	if !strings.Contains(out, string(rune(blank))) {
		t.Error("expected the blank cell to be rendered")
	}
	if c.Tints[0][0] != "#ff0000" {
		t.Errorf("expected tint on cell 0, got %q", c.Tints[0][0])
	}
	c.Clear()
	if c.Tints[0][0] != "" {
		t.Error("expected Clear to drop tints")
	}
}

func TestViewport(t *testing.T) {
	c := NewCanvas(40, 20)
	vp := NewViewport(dynamo.Uniform(2, -0.5, 0.5), c)
	pw, ph := c.PixelSize()

	lx, ly := vp.Project(mgl64.Vec2{-0.5, -0.5})
	hx, hy := vp.Project(mgl64.Vec2{0.5, 0.5})
	if lx >= hx || ly <= hy {
		t.Errorf("expected y up: low (%d,%d) high (%d,%d)", lx, ly, hx, hy)
	}
	for _, v := range []int{lx, hx} {
		if v < 0 || v >= pw {
			t.Errorf("x %d outside canvas", v)
		}
	}
	for _, v := range []int{ly, hy} {
		if v < 0 || v >= ph {
			t.Errorf("y %d outside canvas", v)
		}
	}
	if hx-lx != ly-hy {
		t.Errorf("expected a square arena to stay square: %d x %d", hx-lx, ly-hy)
	}

	unbounded := NewViewport(dynamo.Unbounded(2), c)
	if math.IsInf(unbounded.Scale, 0) || unbounded.Scale <= 0 {
		t.Errorf("expected a finite fallback scale, got %f", unbounded.Scale)
	}
}

func TestHeading(t *testing.T) {
	h := Heading(0)
	if math.Abs(h[0]) > 1e-12 || math.Abs(h[1]-1) > 1e-12 {
		t.Errorf("expected +Y at theta 0, got %v", h)
	}
	h = Heading(math.Pi / 2)
	if math.Abs(h[0]+1) > 1e-12 || math.Abs(h[1]) > 1e-12 {
		t.Errorf("expected -X at theta pi/2, got %v", h)
	}
}

func TestSceneDraw(t *testing.T) {
	c := NewCanvas(40, 20)
	sc := Scene{
		Arena:    dynamo.Uniform(2, -0.5, 0.5),
		Radius:   0.05,
		LED:      mgl64.Vec2{0.02, 0.02},
		Walls:    true,
		Polygons: [][]mgl64.Vec2{{{0.2, 0.2}, {0.3, 0.2}, {0.3, 0.3}}},
	}
	snap := &dynamo.Snapshot{
		Kilobots: []dynamo.KilobotState{
			{Pose: dynamo.Pose{X: -0.2, Y: -0.2}, Color: dynamo.Color{G: 255}},
		},
		Target:    [2]float64{0.1, -0.1},
		HasTarget: true,
	}
	sc.Draw(c, snap)

	vp := NewViewport(sc.Arena, c)
	x, y := vp.Project(mgl64.Vec2{-0.2, -0.2})
	r := vp.Length(sc.Radius)
	if !c.IsSet(x+r, y) {
		t.Error("expected the kilobot outline")
	}
	if !c.IsSet(x, y-r-1) && !c.IsSet(x, y-r) {
		t.Error("expected the heading tick above the kilobot")
	}
	lx, ly := vp.Project(kilobot.WorldPoint(snap.Kilobots[0].Pose, sc.LED))
	if !c.IsSet(lx, ly) || c.Tints[ly/4][lx/2] != "#00ff00" {
		t.Error("expected the LED dot in the kilobot color")
	}
	if c.Tints[y/4][x/2] != "#00ff00" {
		t.Errorf("expected the kilobot cell tinted green, got %q", c.Tints[y/4][x/2])
	}

	tx, ty := vp.Project(mgl64.Vec2{0.1, -0.1})
	if !c.IsSet(tx, ty) || !c.IsSet(tx+targetArm, ty) {
		t.Error("expected the light cross")
	}

	wx, wy := vp.Project(mgl64.Vec2{-0.5, 0})
	if !c.IsSet(wx, wy) {
		t.Error("expected the left wall")
	}

	sc.Draw(c, nil)
	if c.IsSet(tx, ty) {
		t.Error("expected a nil snapshot to draw only the arena")
	}
}

func shortSession(t *testing.T, duration float64) Session {
	t.Helper()
	cfg := config.GetPreset("phototaxis")
	cfg.Kilobots.Count = 4
	cfg.Duration = duration
	return SessionFor(cfg, nil)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModelStepsOnTick(t *testing.T) {
	m, err := NewModel(shortSession(t, 10))
	if err != nil {
		t.Fatalf("new model: %v", err)
	}

	m = update(m, TickMsg{})
	m = update(m, TickMsg{})
	if m.Steps() != 2 {
		t.Fatalf("expected 2 steps, got %d", m.Steps())
	}
	if len(m.history) != 3 || len(m.ambient) != 3 {
		t.Errorf("expected initial frame plus 2, got %d frames", len(m.history))
	}

	m = update(m, tea.KeyMsg{Type: tea.KeySpace})
	m = update(m, TickMsg{})
	if m.Steps() != 2 {
		t.Errorf("expected pause to hold at 2 steps, got %d", m.Steps())
	}

	m = update(m, tea.KeyMsg{Type: tea.KeySpace})
	m = update(m, key("+"))
	m = update(m, TickMsg{})
	if m.Steps() != 4 {
		t.Errorf("expected double speed to take 2 steps per frame, got %d", m.Steps())
	}

	if !strings.Contains(m.View(), "Ambient") {
		t.Error("expected the stats panel in the view")
	}
}

func TestModelStopsAtDuration(t *testing.T) {
	m, err := NewModel(shortSession(t, 0.2))
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	for i := 0; i < 5; i++ {
		m = update(m, TickMsg{})
	}
	if m.Steps() != 2 {
		t.Errorf("expected 2 steps, got %d", m.Steps())
	}
	if !m.done || m.running {
		t.Error("expected the model to finish")
	}
}

func TestModelScrubAndReset(t *testing.T) {
	m, err := NewModel(shortSession(t, 10))
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	for i := 0; i < 3; i++ {
		m = update(m, TickMsg{})
	}

	m = update(m, key("["))
	if m.playHead != 2 || m.running {
		t.Errorf("expected paused replay at frame 2, got %d", m.playHead)
	}
	if got := m.frame().Step; got != 2 {
		t.Errorf("expected replay frame step 2, got %d", got)
	}
	m = update(m, key("]"))
	m = update(m, key("]"))
	if m.playHead != -1 {
		t.Errorf("expected scrubbing past the end to go live, got %d", m.playHead)
	}

	m = update(m, key("r"))
	if m.Steps() != 0 || len(m.history) != 1 || !m.running {
		t.Errorf("expected a fresh simulator, got %d steps", m.Steps())
	}
}

func TestNewModelErrors(t *testing.T) {
	if _, err := NewModel(Session{Dt: 0.1}); !errors.Is(err, dynamo.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig without a builder, got %v", err)
	}

	sess := shortSession(t, 1)
	sess.Dt = 0
	if _, err := NewModel(sess); !errors.Is(err, dynamo.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for zero dt, got %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Light.Type = "laser"
	if _, err := NewModel(SessionFor(cfg, nil)); !errors.Is(err, dynamo.ErrUnknownVariant) {
		t.Errorf("expected the build error, got %v", err)
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder(0)
	path := filepath.Join(t.TempDir(), "out.gif")
	if err := r.Save(path); !errors.Is(err, ErrNoFrames) {
		t.Errorf("expected ErrNoFrames, got %v", err)
	}

	c := NewCanvas(4, 2)
	c.Set(0, 0)
	r.Capture(c)
	r.Capture(c)
	if r.Len() != 2 {
		t.Errorf("expected 2 frames, got %d", r.Len())
	}

	img := Rasterize(c)
	if img.ColorIndexAt(0, 0) != 1 || img.ColorIndexAt(charW-1, 0) != 0 {
		t.Error("expected only the first dot to be lit")
	}

	if err := r.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("expected a gif, err=%v", err)
	}
}

func TestSparklineChart(t *testing.T) {
	if got := SparklineChart(nil, 5); got != "─────" {
		t.Errorf("expected a flat line, got %q", got)
	}
	out := SparklineChart([]float64{1, 2, 3, 4, 5, 6, 7, 8}, 4)
	if n := strings.Count(out, "█"); n != 1 {
		t.Errorf("expected one full bar in the last 4 values, got %d", n)
	}
}

func TestThemes(t *testing.T) {
	defer SetTheme("cyberpunk")

	SetTheme("retro")
	if CurrentTheme.Name != "retro" {
		t.Fatalf("expected retro, got %s", CurrentTheme.Name)
	}
	NextTheme()
	if CurrentTheme.Name != "minimal" {
		t.Errorf("expected minimal after retro, got %s", CurrentTheme.Name)
	}
	if GetTheme("nope").Name != "cyberpunk" {
		t.Error("expected unknown themes to fall back")
	}
	if len(ThemeNames()) != len(Themes) {
		t.Error("expected one name per theme")
	}
}

func TestInteractiveFlow(t *testing.T) {
	app := NewInteractiveApp(nil)
	if len(app.presets) == 0 {
		t.Fatal("expected presets in the menu")
	}

	var m tea.Model = *app
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.(model).state != stateConfig {
		t.Fatalf("expected the config screen")
	}
	if m.(model).params["dt"] <= 0 {
		t.Error("expected preset parameters to load")
	}

	m, cmd := m.Update(key("s"))
	if m.(model).state != stateSim || cmd == nil {
		t.Fatalf("expected the live view to start, err=%v", m.(model).err)
	}
	if !strings.Contains(m.View(), "Kilobots") {
		t.Error("expected the live panel")
	}
}
