package sim

import (
	"github.com/san-kum/kilosim/internal/dynamo"
	"go.uber.org/zap"
)

// StepFunc is called after every tick of RunWithCallback. The snapshot is
// only valid during the call; returning false stops the run.
type StepFunc func(s *dynamo.Snapshot) bool

type Option func(*Simulator)

func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIterations sets the Box2D velocity and position solver iterations.
func WithIterations(velocity, position int) Option {
	return func(s *Simulator) {
		s.velocityIterations = velocity
		s.positionIterations = position
	}
}

// WithSubsteps splits each tick's world integration into n equal parts.
func WithSubsteps(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.substeps = n
		}
	}
}
