package control

import (
	"fmt"

	"github.com/san-kum/kilosim/internal/dynamo"
)

// LQR is linear state feedback u = -K (x - Target). Gains are usually
// precomputed offline for a double-integrator light such as Momentum.
type LQR struct {
	K      [][]float64
	Target dynamo.State
}

func NewLQR(k [][]float64, target dynamo.State) *LQR {
	return &LQR{K: k, Target: target}
}

func (l *LQR) Act(x dynamo.State, t float64) dynamo.Action {
	u := make(dynamo.Action, len(l.K))
	for i := range u {
		for j := range x {
			target := 0.0
			if j < len(l.Target) {
				target = l.Target[j]
			}
			if j < len(l.K[i]) {
				u[i] -= l.K[i][j] * (x[j] - target)
			}
		}
	}
	return u
}

// Gains for a unit-mass double integrator per axis with position weight 1
// and velocity weight 0: u = -(x - x*) - sqrt(2) v.
var momentumGains = [][]float64{
	{1.0, 0.0, 1.414, 0.0},
	{0.0, 1.0, 0.0, 1.414},
}

// NewMomentumLQR steers a momentum light, whose state is [x, y, vx, vy],
// to rest at (x, y).
func NewMomentumLQR(x, y float64) *LQR {
	return NewLQR(momentumGains, dynamo.State{x, y, 0, 0})
}

// NewMomentumLQRWithGains scales the position and velocity feedback.
func NewMomentumLQRWithGains(x, y, kp, kv float64) (*LQR, error) {
	if kp <= 0 || kv < 0 {
		return nil, fmt.Errorf("%w: momentum lqr gains must be kp > 0, kv >= 0", dynamo.ErrInvalidConfig)
	}
	k := [][]float64{
		{kp, 0, kv, 0},
		{0, kp, 0, kv},
	}
	return NewLQR(k, dynamo.State{x, y, 0, 0}), nil
}
