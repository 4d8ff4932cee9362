package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation construction and runs.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf components.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrInvalidConfig indicates a run or component configuration that cannot be used.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrMissingBehavior indicates a kilobot created without decision logic.
	ErrMissingBehavior = errors.New("dynamo: kilobot requires a behavior")

	// ErrUnknownVariant indicates an unregistered light, behavior, policy or shape name.
	ErrUnknownVariant = errors.New("dynamo: unknown variant")

	// ErrContextCanceled indicates the simulation was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")

	// ErrDimensionMismatch indicates mismatched bound or vector dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")
)

// SimulationError wraps an error with the step and time it occurred at.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
