package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kilosim/internal/dynamo"
	"github.com/san-kum/kilosim/internal/kilobot"
	"github.com/san-kum/kilosim/internal/light"
	"github.com/san-kum/kilosim/internal/physics"
)

type constPolicy struct {
	u     dynamo.Action
	calls int
}

func (p *constPolicy) Act(obs dynamo.State, t float64) dynamo.Action {
	p.calls++
	return p.u
}

func newTestSim(t *testing.T, l light.Light, n int, b func() kilobot.Behavior) *Simulator {
	t.Helper()
	s := New(nil, l)
	for i := 0; i < n; i++ {
		if _, err := s.NewKilobot(dynamo.Pose{X: float64(i) * 0.1}, b()); err != nil {
			t.Fatalf("new kilobot: %v", err)
		}
	}
	return s
}

func forward() kilobot.Behavior {
	return kilobot.Fixed{Command: kilobot.MotorCommand{Left: 255, Right: 255}}
}

func TestSimulatorRun(t *testing.T) {
	s := newTestSim(t, nil, 2, forward)

	cfg := dynamo.DefaultConfig()
	cfg.Dt = 0.1
	cfg.Duration = 1.0

	result, err := s.Run(context.Background(), nil, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Snapshots) != 11 {
		t.Errorf("expected 11 snapshots, got %d", len(result.Snapshots))
	}
	if result.StepsTaken != 10 {
		t.Errorf("expected 10 steps, got %d", result.StepsTaken)
	}

	last := result.Snapshots[len(result.Snapshots)-1]
	if math.Abs(last.Time-1.0) > 1e-9 {
		t.Errorf("expected final time 1.0, got %f", last.Time)
	}
	for i, k := range last.Kilobots {
		if k.Pose.Y <= 0 {
			t.Errorf("kilobot %d should have moved forward, pose %v", i, k.Pose)
		}
		if k.Left != 255 || k.Right != 255 {
			t.Errorf("kilobot %d motors = (%d, %d)", i, k.Left, k.Right)
		}
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	s := New(nil, nil)

	tests := []struct {
		name string
		cfg  dynamo.Config
	}{
		{"zero dt", dynamo.Config{Dt: 0, Duration: 1.0}},
		{"negative dt", dynamo.Config{Dt: -0.1, Duration: 1.0}},
		{"zero duration", dynamo.Config{Dt: 0.1, Duration: 0}},
		{"negative duration", dynamo.Config{Dt: 0.1, Duration: -1.0}},
		{"negative substeps", dynamo.Config{Dt: 0.1, Duration: 1.0, Substeps: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Run(context.Background(), nil, tt.cfg)
			if !errors.Is(err, dynamo.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSimulatorStepsLightFirst(t *testing.T) {
	l, err := light.NewSinglePosition(light.PositionConfig{Position: mgl64.Vec2{0, 3}, Absolute: true})
	if err != nil {
		t.Fatal(err)
	}
	s := newTestSim(t, l, 1, func() kilobot.Behavior { return kilobot.NewSwitchingPhototaxis() })

	s.Step(dynamo.Action{0.5, 0.5}, 0.1)

	snap := s.Snapshot()
	if !snap.HasTarget || snap.Target != [2]float64{0.5, 0.5} {
		t.Errorf("expected target (0.5, 0.5), got %v (has=%v)", snap.Target, snap.HasTarget)
	}
	if len(snap.Action) != 2 || snap.Action[0] != 0.5 {
		t.Errorf("snapshot should carry the applied action, got %v", snap.Action)
	}
	// the far light would read below the zero baseline; the moved one reads above it
	b := s.Kilobots()[0].Behavior().(*kilobot.SwitchingPhototaxis)
	if b.Misses() != 0 {
		t.Errorf("expected no misses, got %d", b.Misses())
	}
}

func TestSimulatorNilActionLeavesLight(t *testing.T) {
	l, _ := light.NewSinglePosition(light.PositionConfig{Position: mgl64.Vec2{0.2, 0.3}})
	s := New(nil, l)

	s.Step(nil, 0.1)
	obs := s.Observation()
	if obs[0] != 0.2 || obs[1] != 0.3 {
		t.Errorf("light moved on absent action: %v", obs)
	}
	if s.LastAction() != nil {
		t.Errorf("expected absent last action, got %v", s.LastAction())
	}
}

func TestSimulatorPolicySeesObservation(t *testing.T) {
	l, _ := light.NewSinglePosition(light.PositionConfig{})
	s := New(nil, l)
	p := &constPolicy{u: dynamo.Action{0.01, 0}}

	cfg := dynamo.Config{Dt: 1, Duration: 5}
	result, err := s.Run(context.Background(), p, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if p.calls != 5 {
		t.Errorf("expected 5 policy calls, got %d", p.calls)
	}
	final := result.Snapshots[len(result.Snapshots)-1].Light
	if math.Abs(final[0]-0.05) > 1e-12 {
		t.Errorf("expected light x = 0.05, got %f", final[0])
	}
}

type testMetric struct {
	count int
	sum   float64
}

func (t *testMetric) Name() string { return "test" }
func (t *testMetric) Observe(s *dynamo.Snapshot) {
	t.count++
	t.sum += float64(len(s.Kilobots))
}
func (t *testMetric) Value() float64 {
	if t.count == 0 {
		return 0
	}
	return t.sum / float64(t.count)
}
func (t *testMetric) Reset() {
	t.count = 0
	t.sum = 0
}

func TestSimulatorMetrics(t *testing.T) {
	s := newTestSim(t, nil, 3, forward)

	metric := &testMetric{}
	s.AddMetric(metric)

	cfg := dynamo.Config{Dt: 0.1, Duration: 1.0}
	result, err := s.Run(context.Background(), nil, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if got, ok := result.Metrics["test"]; !ok || got != 3 {
		t.Errorf("metric test = %v (found=%v), want 3", got, ok)
	}
	if metric.count != 10 {
		t.Errorf("expected 10 observations, got %d", metric.count)
	}
}

type countingObserver struct{ steps []int }

func (o *countingObserver) OnStep(s *dynamo.Snapshot) { o.steps = append(o.steps, s.Step) }

func TestSimulatorObservers(t *testing.T) {
	s := New(nil, nil)
	obs := &countingObserver{}
	s.AddObserver(obs)

	if _, err := s.Run(context.Background(), nil, dynamo.Config{Dt: 0.5, Duration: 2}); err != nil {
		t.Fatal(err)
	}
	want := []int{1, 2, 3, 4}
	if len(obs.steps) != len(want) {
		t.Fatalf("observer saw %v, want %v", obs.steps, want)
	}
	for i := range want {
		if obs.steps[i] != want[i] {
			t.Errorf("observer saw %v, want %v", obs.steps, want)
		}
	}
}

func TestSimulatorContextCancel(t *testing.T) {
	s := newTestSim(t, nil, 1, forward)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.Run(ctx, nil, dynamo.Config{Dt: 0.1, Duration: 1})
	if !errors.Is(err, dynamo.ErrContextCanceled) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation error, got %v", err)
	}
	if result == nil || len(result.Snapshots) != 1 {
		t.Error("expected partial result with the initial snapshot")
	}
}

func TestSimulatorRunWithCallback(t *testing.T) {
	s := newTestSim(t, nil, 2, forward)

	var seen int
	err := s.RunWithCallback(context.Background(), nil, dynamo.Config{Dt: 0.1, Duration: 10}, func(snap *dynamo.Snapshot) bool {
		seen++
		if len(snap.Kilobots) != 2 {
			t.Errorf("expected 2 kilobots, got %d", len(snap.Kilobots))
		}
		return seen < 5
	})
	if err != nil {
		t.Fatal(err)
	}
	if seen != 5 {
		t.Errorf("callback should stop the run after 5 ticks, got %d", seen)
	}
	if s.Steps() != 5 {
		t.Errorf("expected 5 steps, got %d", s.Steps())
	}
}

// brokenLight reports a NaN state once stepped.
type brokenLight struct{ x float64 }

func (l *brokenLight) Step([]float64, float64)        { l.x = math.NaN() }
func (l *brokenLight) Value(mgl64.Vec2) float64       { return 0 }
func (l *brokenLight) Gradient(mgl64.Vec2) mgl64.Vec2 { return mgl64.Vec2{} }
func (l *brokenLight) State() []float64               { return []float64{l.x} }
func (l *brokenLight) ActionSpace() dynamo.Box        { return dynamo.Uniform(1, -1, 1) }
func (l *brokenLight) ObservationSpace() dynamo.Box   { return dynamo.Unbounded(1) }

func TestSimulatorInvalidStateError(t *testing.T) {
	cfg := dynamo.Config{Dt: 0.1, Duration: 1, ValidateState: true}

	s := newTestSim(t, &brokenLight{}, 1, forward)
	result, err := s.Run(context.Background(), nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) != 1 || !errors.Is(result.Errors[0], dynamo.ErrInvalidState) {
		t.Fatalf("expected one invalid state error, got %v", result.Errors)
	}
	var simErr *dynamo.SimulationError
	if !errors.As(result.Errors[0], &simErr) || simErr.Step != 1 {
		t.Errorf("expected a SimulationError at step 1, got %v", result.Errors[0])
	}

	s = newTestSim(t, &brokenLight{}, 1, forward)
	err = s.RunWithCallback(context.Background(), nil, cfg, func(*dynamo.Snapshot) bool { return true })
	if !errors.Is(err, dynamo.ErrInvalidState) || !errors.As(err, &simErr) {
		t.Errorf("expected a SimulationError wrapping ErrInvalidState, got %v", err)
	}
}

func TestSimulatorSkipsDestroyedKilobots(t *testing.T) {
	s := newTestSim(t, nil, 2, forward)
	s.Kilobots()[0].Destroy()

	s.Step(nil, 0.1)
	if n := len(s.Snapshot().Kilobots); n != 1 {
		t.Errorf("expected 1 live kilobot in snapshot, got %d", n)
	}
}

func TestSimulatorObjectsCollide(t *testing.T) {
	s := newTestSim(t, nil, 1, forward)
	obj, err := s.World().NewObject(physics.Quad(0.2, 0.02), dynamo.Pose{Y: 0.05}, physics.DefaultMaterial())
	if err != nil {
		t.Fatal(err)
	}
	s.AddObject(obj)

	for i := 0; i < 100; i++ {
		s.Step(nil, 0.1)
	}
	// a wall of 0.02 thickness centred at 0.05 starts at y = 0.04
	if y := s.Kilobots()[0].Pose().Y; y+s.Kilobots()[0].Radius() > obj.Pose().Y {
		t.Errorf("kilobot passed through the object: y = %f, object at %f", y, obj.Pose().Y)
	}
}
