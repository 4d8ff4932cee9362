package metrics

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/kilosim/internal/dynamo"
)

func snap(target *[2]float64, action dynamo.Action, kbs ...dynamo.KilobotState) *dynamo.Snapshot {
	s := &dynamo.Snapshot{Kilobots: kbs, Action: action}
	if target != nil {
		s.Target = *target
		s.HasTarget = true
	}
	return s
}

func at(x, y, ambient float64) dynamo.KilobotState {
	return dynamo.KilobotState{Pose: dynamo.Pose{X: x, Y: y}, Ambient: ambient}
}

func TestActionEffort(t *testing.T) {
	m := NewActionEffort()
	m.Observe(snap(nil, dynamo.Action{1, -2}))
	m.Observe(snap(nil, nil))

	if got := m.Value(); math.Abs(got-1.5) > 1e-12 {
		t.Errorf("expected 1.5, got %f", got)
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("expected 0 after reset")
	}
}

func TestContainment(t *testing.T) {
	m := NewContainment(dynamo.Uniform(2, -1, 1))
	if m.Value() != 1.0 {
		t.Errorf("expected 1.0 with no samples, got %f", m.Value())
	}

	m.Observe(snap(nil, nil, at(0, 0, 0), at(0.5, 0.5, 0)))
	m.Observe(snap(nil, nil, at(0, 0, 0), at(1.5, 0, 0)))

	if got := m.Value(); got != 0.5 {
		t.Errorf("expected 0.5, got %f", got)
	}
}

func TestMeanAmbient(t *testing.T) {
	m := NewMeanAmbient()
	m.Observe(snap(nil, nil, at(0, 0, 10), at(0, 0, 20)))
	m.Observe(snap(nil, nil, at(0, 0, 30), at(0, 0, 30)))
	m.Observe(snap(nil, nil))

	if got := m.Value(); got != 22.5 {
		t.Errorf("expected 22.5, got %f", got)
	}
}

func TestMeanLightDistance(t *testing.T) {
	target := [2]float64{0, 0}
	m := NewMeanLightDistance()
	m.Observe(snap(&target, nil, at(3, 4, 0), at(0, 1, 0)))
	m.Observe(snap(nil, nil, at(100, 100, 0)))

	if got := m.Value(); math.Abs(got-3) > 1e-12 {
		t.Errorf("expected 3, got %f", got)
	}
}

func TestSwarmLightDistance(t *testing.T) {
	target := [2]float64{1, 0}
	if got := SwarmLightDistance(snap(&target, nil, at(1, 2, 0), at(4, 0, 0))); math.Abs(got-2.5) > 1e-12 {
		t.Errorf("expected 2.5, got %f", got)
	}
	if got := SwarmLightDistance(snap(nil, nil, at(5, 5, 0))); got != 0 {
		t.Errorf("expected 0 without a target, got %f", got)
	}
}

func TestSpread(t *testing.T) {
	tests := []struct {
		name string
		kbs  []dynamo.KilobotState
		want float64
	}{
		{"single", []dynamo.KilobotState{at(1, 1, 0)}, 0},
		{"pair", []dynamo.KilobotState{at(-1, 0, 0), at(1, 0, 0)}, 1},
		{"square", []dynamo.KilobotState{at(1, 1, 0), at(-1, 1, 0), at(-1, -1, 0), at(1, -1, 0)}, math.Sqrt2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSpread()
			m.Observe(snap(nil, nil, tt.kbs...))
			if got := m.Value(); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Spread = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestPathLength(t *testing.T) {
	m := NewPathLength()
	m.Observe(snap(nil, nil, at(0, 0, 0), at(1, 1, 0)))
	m.Observe(snap(nil, nil, at(3, 4, 0), at(1, 2, 0)))
	m.Observe(snap(nil, nil, at(3, 4, 0), at(1, 2, 0)))

	if got := m.Value(); math.Abs(got-6) > 1e-12 {
		t.Errorf("expected 6, got %f", got)
	}

	m.Reset()
	m.Observe(snap(nil, nil, at(5, 5, 0)))
	if m.Value() != 0 {
		t.Error("first observation after reset must not add distance")
	}
}

func TestByName(t *testing.T) {
	for _, n := range Names() {
		m, err := ByName(n)
		if err != nil {
			t.Fatalf("ByName(%q): %v", n, err)
		}
		if m.Name() != n {
			t.Errorf("ByName(%q).Name() = %q", n, m.Name())
		}
	}

	if _, err := ByName("energy"); !errors.Is(err, dynamo.ErrUnknownVariant) {
		t.Errorf("expected ErrUnknownVariant, got %v", err)
	}
	if len(Default()) != len(Names()) {
		t.Error("Default should build every named metric")
	}
}
