package kilobot

import (
	"fmt"
	"math"

	"github.com/san-kum/kilosim/internal/dynamo"
	"github.com/san-kum/kilosim/internal/light"
	"go.uber.org/zap"
)

// Behavior is the per-robot program. Setup runs once when the kilobot is
// created, Loop once per tick before the kinematics.
type Behavior interface {
	Setup(k *Kilobot)
	Loop(k *Kilobot)
}

const (
	DefaultDistanceThreshold = 0.01
	DefaultUpdateInterval    = 30
	DefaultNoChangeThreshold = 15
)

var (
	_ Behavior            = (*SwitchingPhototaxis)(nil)
	_ dynamo.Configurable = (*SwitchingPhototaxis)(nil)
)

// SwitchingPhototaxis flips the turn direction whenever the light reading
// improved since the previous tick. The reading is 1 minus the distance from
// the sensor to the light source; lights without a source position are read
// through the ambient sensor instead. Within DistanceThreshold of the source
// the robot keeps its current motion.
type SwitchingPhototaxis struct {
	DistanceThreshold float64

	last   float64
	misses int
}

func NewSwitchingPhototaxis() *SwitchingPhototaxis {
	return &SwitchingPhototaxis{DistanceThreshold: DefaultDistanceThreshold}
}

func (b *SwitchingPhototaxis) Setup(k *Kilobot) {
	b.last = 0
	b.misses = 0
	if k.Light() == nil {
		k.Logger().Warn("phototaxis kilobot has no light", zap.String("behavior", "switching"))
	}
	k.TurnLeft()
}

func (b *SwitchingPhototaxis) Loop(k *Kilobot) {
	l := k.Light()
	if l == nil {
		return
	}

	var dist, reading float64
	if p, ok := l.(light.Positioner); ok {
		dist = p.Position().Sub(k.SensorPosition()).Len()
		reading = 1 - dist
	} else {
		dist = math.Inf(1)
		reading = k.AmbientLight()
	}

	if dist <= b.DistanceThreshold {
		return
	}
	if reading > b.last {
		b.misses = 0
		k.SwitchDirection()
	} else {
		b.misses++
	}
	b.last = reading
}

// Misses counts consecutive ticks without improvement.
func (b *SwitchingPhototaxis) Misses() int {
	return b.misses
}

func (b *SwitchingPhototaxis) GetParams() map[string]float64 {
	return map[string]float64{"distance_threshold": b.DistanceThreshold}
}

func (b *SwitchingPhototaxis) SetParam(name string, value float64) error {
	switch name {
	case "distance_threshold":
		if value < 0 {
			return fmt.Errorf("%w: distance_threshold must be >= 0, got %g", dynamo.ErrInvalidConfig, value)
		}
		b.DistanceThreshold = value
	default:
		return fmt.Errorf("%w: switching phototaxis has no parameter %q", dynamo.ErrInvalidConfig, name)
	}
	return nil
}

var (
	_ Behavior            = (*ThresholdPhototaxis)(nil)
	_ dynamo.Configurable = (*ThresholdPhototaxis)(nil)
)

// ThresholdPhototaxis samples the ambient light every UpdateInterval ticks.
// A sample above the best one seen so far, or NoChangeThreshold samples
// without one, makes it adopt the sample as the new threshold and flip the
// turn direction.
type ThresholdPhototaxis struct {
	UpdateInterval    int
	NoChangeThreshold int

	threshold float64
	updates   int
	noChange  int
	sample    float64
}

func NewThresholdPhototaxis() *ThresholdPhototaxis {
	return &ThresholdPhototaxis{
		UpdateInterval:    DefaultUpdateInterval,
		NoChangeThreshold: DefaultNoChangeThreshold,
		threshold:         math.Inf(-1),
	}
}

func (b *ThresholdPhototaxis) Setup(k *Kilobot) {
	b.threshold = math.Inf(-1)
	b.updates = 0
	b.noChange = 0
	b.sample = 0
	if k.Light() == nil {
		k.Logger().Warn("phototaxis kilobot has no light", zap.String("behavior", "threshold"))
	}
	k.TurnLeft()
}

func (b *ThresholdPhototaxis) Loop(k *Kilobot) {
	interval := b.UpdateInterval
	if interval < 1 {
		interval = 1
	}
	if b.updates%interval != 0 {
		b.updates++
		return
	}
	b.updates++

	b.sample = k.AmbientLight()
	if b.sample > b.threshold || b.noChange >= b.NoChangeThreshold {
		b.threshold = b.sample
		k.SwitchDirection()
		b.noChange = 0
	} else {
		b.noChange++
	}
}

func (b *ThresholdPhototaxis) Threshold() float64 {
	return b.threshold
}

func (b *ThresholdPhototaxis) NoChangeCount() int {
	return b.noChange
}

// LastSample is the most recent ambient reading taken by Loop.
func (b *ThresholdPhototaxis) LastSample() float64 {
	return b.sample
}

func (b *ThresholdPhototaxis) GetParams() map[string]float64 {
	return map[string]float64{
		"update_interval":     float64(b.UpdateInterval),
		"no_change_threshold": float64(b.NoChangeThreshold),
	}
}

func (b *ThresholdPhototaxis) SetParam(name string, value float64) error {
	if value < 0 || value != math.Trunc(value) {
		return fmt.Errorf("%w: %s must be a non-negative integer, got %g", dynamo.ErrInvalidConfig, name, value)
	}
	switch name {
	case "update_interval":
		if value < 1 {
			return fmt.Errorf("%w: update_interval must be >= 1", dynamo.ErrInvalidConfig)
		}
		b.UpdateInterval = int(value)
	case "no_change_threshold":
		b.NoChangeThreshold = int(value)
	default:
		return fmt.Errorf("%w: threshold phototaxis has no parameter %q", dynamo.ErrInvalidConfig, name)
	}
	return nil
}

var (
	_ Behavior            = Fixed{}
	_ dynamo.Configurable = (*Fixed)(nil)
)

// Fixed drives both motors with a constant command.
type Fixed struct {
	Command MotorCommand
}

func (b Fixed) Setup(k *Kilobot) {
	k.SetMotors(b.Command.Left, b.Command.Right)
}

func (b Fixed) Loop(k *Kilobot) {
	k.SetMotors(b.Command.Left, b.Command.Right)
}

func (b *Fixed) GetParams() map[string]float64 {
	return map[string]float64{"left": float64(b.Command.Left), "right": float64(b.Command.Right)}
}

func (b *Fixed) SetParam(name string, value float64) error {
	if value < 0 || value > 255 || value != math.Trunc(value) {
		return fmt.Errorf("%w: motor %s must be an integer in [0, 255], got %g", dynamo.ErrInvalidConfig, name, value)
	}
	switch name {
	case "left":
		b.Command.Left = uint8(value)
	case "right":
		b.Command.Right = uint8(value)
	default:
		return fmt.Errorf("%w: fixed behavior has no parameter %q", dynamo.ErrInvalidConfig, name)
	}
	return nil
}
