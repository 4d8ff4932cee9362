package control

import (
	"fmt"

	"github.com/san-kum/kilosim/internal/dynamo"
)

// PID runs one independent PID loop per target component against the
// leading components of the observation. For a point light the observation
// starts with its position, so the action steers it towards Target.
type PID struct {
	Kp     float64
	Ki     float64
	Kd     float64
	Target []float64

	integral []float64
	prevErr  []float64
	prevT    float64
	first    bool
}

func NewPID(kp, ki, kd float64, target []float64) *PID {
	p := &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: append([]float64(nil), target...),
	}
	p.Reset()
	return p
}

func (p *PID) Act(x dynamo.State, t float64) dynamo.Action {
	n := len(p.Target)
	if len(x) < n {
		return make(dynamo.Action, n)
	}

	err := make([]float64, n)
	for i := range err {
		err[i] = p.Target[i] - x[i]
	}

	u := make(dynamo.Action, n)
	if p.first {
		copy(p.prevErr, err)
		p.prevT = t
		p.first = false
		for i := range u {
			u[i] = p.Kp * err[i]
		}
		return u
	}

	dt := t - p.prevT
	for i := range u {
		u[i] = p.Kp * err[i]
		if dt > 0 {
			p.integral[i] += err[i] * dt
			u[i] += p.Ki*p.integral[i] + p.Kd*(err[i]-p.prevErr[i])/dt
		}
	}
	if dt > 0 {
		copy(p.prevErr, err)
		p.prevT = t
	}
	return u
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = make([]float64, len(p.Target))
	p.prevErr = make([]float64, len(p.Target))
	p.prevT = 0
	p.first = true
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	params := map[string]float64{
		"Kp": p.Kp,
		"Ki": p.Ki,
		"Kd": p.Kd,
	}
	for i, v := range p.Target {
		params[fmt.Sprintf("Target%d", i)] = v
	}
	return params
}

// SetParam adjusts a PID parameter
func (p *PID) SetParam(name string, value float64) error {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	default:
		var i int
		if _, err := fmt.Sscanf(name, "Target%d", &i); err != nil || i < 0 || i >= len(p.Target) {
			return fmt.Errorf("%w: pid has no parameter %q", dynamo.ErrInvalidConfig, name)
		}
		p.Target[i] = value
	}
	return nil
}
