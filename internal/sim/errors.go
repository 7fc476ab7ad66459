package sim

import (
	"errors"
	"fmt"
)

// Domain errors for simulation runs.
var (
	// ErrStepTooSmall indicates the required step shrink fell below DtMin.
	ErrStepTooSmall = errors.New("sim: required timestep below minimum")

	// ErrProjectionFailed indicates the conservation projector did not converge.
	ErrProjectionFailed = errors.New("sim: conservation projection did not converge")

	// ErrInvalidState indicates NaN or Inf appeared in particle state.
	ErrInvalidState = errors.New("sim: invalid state (NaN or Inf detected)")
)

// StepSizeError records the pair that forced the fatal shrink.
type StepSizeError struct {
	Time          float64
	Step          int
	PairI, PairJ  int // particle IDs
	TimeToContact float64
}

func (e *StepSizeError) Error() string {
	return fmt.Sprintf("sim: step %d (t=%.6g): particles %d and %d reach contact in %.3g, below DtMin",
		e.Step, e.Time, e.PairI, e.PairJ, e.TimeToContact)
}

func (e *StepSizeError) Unwrap() error { return ErrStepTooSmall }

// ProjectionError records the measured drift and the last time a
// projection succeeded.
type ProjectionError struct {
	Time           float64
	LastProjection float64
	EnergyDrift    float64
	MomentumDrift  float64
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("sim: projection at t=%.6g failed (energy drift %.3g, momentum drift %.3g, last success t=%.6g)",
		e.Time, e.EnergyDrift, e.MomentumDrift, e.LastProjection)
}

func (e *ProjectionError) Unwrap() error { return ErrProjectionFailed }

// StateError marks the step at which a non-finite value appeared.
type StateError struct {
	Time float64
	Step int
}

func (e *StateError) Error() string {
	return fmt.Sprintf("sim: step %d (t=%.6g): %v", e.Step, e.Time, ErrInvalidState)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }
