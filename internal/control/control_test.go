package control

import (
	"math"
	"sync"
	"testing"

	"github.com/san-kum/kilosim/internal/dynamo"
)

func TestNone(t *testing.T) {
	u := NewNone().Act(dynamo.State{1.0, 2.0}, 0.0)
	if u != nil {
		t.Errorf("expected the absent action, got %v", u)
	}
}

func TestConstant(t *testing.T) {
	in := []float64{0.1, -0.2}
	c := NewConstant(in)
	in[0] = 5

	u := c.Act(nil, 0)
	if len(u) != 2 || u[0] != 0.1 || u[1] != -0.2 {
		t.Fatalf("unexpected action %v", u)
	}
	u[1] = 7
	if got := c.Act(nil, 1); got[1] != -0.2 {
		t.Error("returned action must not alias the stored one")
	}

	c.Set(nil)
	if got := c.Act(nil, 2); got != nil {
		t.Errorf("expected absent action after Set(nil), got %v", got)
	}
}

func TestConstantConcurrentSet(t *testing.T) {
	c := NewConstant([]float64{0, 0})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set([]float64{float64(i), float64(j)})
				_ = c.Act(nil, 0)
			}
		}(i)
	}
	wg.Wait()
}

func TestRandom(t *testing.T) {
	space := dynamo.Box{
		Low:  []float64{-0.01, 2, math.Inf(-1)},
		High: []float64{0.01, 3, math.Inf(1)},
	}
	a := NewRandom(space, 42)
	b := NewRandom(space, 42)

	for i := 0; i < 100; i++ {
		ua := a.Act(nil, 0)
		ub := b.Act(nil, 0)
		if len(ua) != 3 {
			t.Fatalf("expected 3 components, got %d", len(ua))
		}
		for j := range ua {
			if ua[j] != ub[j] {
				t.Fatalf("same seed must give same sequence, step %d: %v vs %v", i, ua, ub)
			}
		}
		if !space.Contains(ua) {
			t.Fatalf("action %v outside %v", ua, space)
		}
		if math.Abs(ua[2]) > 1 {
			t.Fatalf("unbounded component should be sampled in [-1, 1], got %f", ua[2])
		}
	}

	first := NewRandom(space, 42).Act(nil, 0)
	a.Reset()
	again := a.Act(nil, 0)
	if first[0] != again[0] {
		t.Error("Reset should restart the sequence")
	}
}

func TestPID(t *testing.T) {
	ctrl := NewPID(10.0, 0.1, 5.0, []float64{0, 0})
	u := ctrl.Act(dynamo.State{1.0, -1.0}, 0.0)
	if len(u) != 2 {
		t.Fatalf("expected 2 controls, got %d", len(u))
	}
	if u[0] >= 0 || u[1] <= 0 {
		t.Errorf("PID should push towards the target, got %v", u)
	}
}

func TestPIDDerivative(t *testing.T) {
	ctrl := NewPID(0, 0, 1, []float64{0})
	ctrl.Act(dynamo.State{1.0}, 0.0)
	u := ctrl.Act(dynamo.State{0.5}, 0.5)
	// error went from -1 to -0.5 over 0.5s
	if math.Abs(u[0]-1.0) > 1e-12 {
		t.Errorf("expected derivative term 1.0, got %f", u[0])
	}

	ctrl.Reset()
	u = ctrl.Act(dynamo.State{0.5}, 1.0)
	if u[0] != 0 {
		t.Errorf("first step after Reset has no derivative term, got %f", u[0])
	}
}

func TestPIDShortObservation(t *testing.T) {
	ctrl := NewPID(1, 0, 0, []float64{1, 1})
	u := ctrl.Act(dynamo.State{0.5}, 0)
	if len(u) != 2 || u[0] != 0 || u[1] != 0 {
		t.Errorf("expected zero action for a short observation, got %v", u)
	}
}

func TestPIDParams(t *testing.T) {
	ctrl := NewPID(1, 2, 3, []float64{0.1, 0.2})
	var _ dynamo.Configurable = ctrl

	if err := ctrl.SetParam("Target1", 0.5); err != nil {
		t.Fatal(err)
	}
	if got := ctrl.GetParams()["Target1"]; got != 0.5 {
		t.Errorf("Target1 = %f, want 0.5", got)
	}
	for _, name := range []string{"Target2", "Kx", "Target-1"} {
		if err := ctrl.SetParam(name, 1); err == nil {
			t.Errorf("SetParam(%q) should fail", name)
		}
	}
}

func TestLQR(t *testing.T) {
	k := [][]float64{{1.0, 2.0}}
	target := dynamo.State{0.0, 0.0}
	ctrl := NewLQR(k, target)

	u := ctrl.Act(dynamo.State{0.0, 0.0}, 0.0)
	if u[0] != 0 {
		t.Errorf("expected zero control at target, got %f", u[0])
	}

	u = ctrl.Act(dynamo.State{1.0, 0.0}, 0.0)
	if u[0] == 0 {
		t.Error("expected non-zero control away from target")
	}
}

func TestMomentumLQR(t *testing.T) {
	ctrl := NewMomentumLQR(0.5, 0.0)
	u := ctrl.Act(dynamo.State{0.0, 0.0, 0.0, 0.0}, 0.0)

	if len(u) != 2 {
		t.Fatalf("expected 2 controls, got %d", len(u))
	}
	if u[0] <= 0 || u[1] != 0 {
		t.Errorf("expected acceleration towards +x, got %v", u)
	}

	u = ctrl.Act(dynamo.State{0.5, 0.0, 0.2, 0.0}, 0.0)
	if u[0] >= 0 {
		t.Error("velocity feedback should brake at the target")
	}

	if _, err := NewMomentumLQRWithGains(0, 0, 0, 1); err == nil {
		t.Error("expected error for kp = 0")
	}
}
