package dynamo

import (
	"fmt"
	"math"
)

// Pose is a planar rigid-body pose. Theta is in radians.
type Pose struct {
	X, Y, Theta float64
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.3f)", p.X, p.Y, p.Theta)
}

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Action is a light action vector. A nil Action is the absent action.
type Action []float64

func (a Action) Clone() Action {
	if a == nil {
		return nil
	}
	c := make(Action, len(a))
	copy(c, a)
	return c
}

// Color is an RGB triple used as a display hint.
type Color struct {
	R, G, B uint8
}

func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// KilobotState is the observable part of one kilobot at the end of a tick.
type KilobotState struct {
	Pose    Pose
	Left    uint8
	Right   uint8
	Ambient float64
	Color   Color
}

// Snapshot records a single tick. Light is the post-step light state and
// Action is what was applied to produce it.
type Snapshot struct {
	Step     int
	Time     float64
	Kilobots []KilobotState
	Light    State
	Action   Action
	// Target is the light position when the light has one.
	Target    [2]float64
	HasTarget bool
}

type Policy interface {
	Act(obs State, t float64) Action
}

type Metric interface {
	Name() string
	Observe(s *Snapshot)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s *Snapshot)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

type Config struct {
	Dt       float64
	Duration float64
	Seed     int64
	// Substeps splits each tick's physics integration into equal parts.
	Substeps           int
	VelocityIterations int
	PositionIterations int
	ValidateState      bool
}

func DefaultConfig() Config {
	return Config{
		Dt:                 0.1,
		Duration:           60.0,
		Substeps:           1,
		VelocityIterations: 8,
		PositionIterations: 3,
		ValidateState:      true,
	}
}

type Result struct {
	Snapshots  []Snapshot
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}
