package sim

import (
	"fmt"
	"time"
)

// Config is the immutable run configuration threaded through the
// driver, the step-size controller, and the projector.
type Config struct {
	MaxTime  float64
	MaxSteps int

	DtMax  float64
	DtMin  float64
	Safety float64 // fraction of predicted time-to-contact used as dt

	SaveInterval        float64
	ProjectionInterval  int
	ProjectionTolerance float64

	// Workers sets the worker count for the geodesic phase and the
	// collision scan; 0 selects one per CPU, 1 forces serial execution.
	Workers int
}

// DefaultConfig mirrors the run controls used across campaigns.
func DefaultConfig() Config {
	return Config{
		MaxTime:             10.0,
		MaxSteps:            10_000_000,
		DtMax:               1e-3,
		DtMin:               1e-9,
		Safety:              0.5,
		SaveInterval:        0.1,
		ProjectionInterval:  1000,
		ProjectionTolerance: 1e-12,
		Workers:             1,
	}
}

// Validate rejects configurations before the loop starts.
func (c Config) Validate() error {
	if c.MaxTime <= 0 {
		return fmt.Errorf("sim: MaxTime must be positive, got %g", c.MaxTime)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("sim: MaxSteps must be positive, got %d", c.MaxSteps)
	}
	if c.DtMax <= 0 || c.DtMin <= 0 {
		return fmt.Errorf("sim: dt bounds must be positive, got [%g, %g]", c.DtMin, c.DtMax)
	}
	if c.DtMin > c.DtMax {
		return fmt.Errorf("sim: DtMin %g exceeds DtMax %g", c.DtMin, c.DtMax)
	}
	if c.Safety <= 0 || c.Safety > 1 {
		return fmt.Errorf("sim: Safety must be in (0, 1], got %g", c.Safety)
	}
	if c.SaveInterval <= 0 {
		return fmt.Errorf("sim: SaveInterval must be positive, got %g", c.SaveInterval)
	}
	if c.ProjectionInterval < 0 {
		return fmt.Errorf("sim: ProjectionInterval must be non-negative, got %d", c.ProjectionInterval)
	}
	if c.ProjectionInterval > 0 && c.ProjectionTolerance <= 0 {
		return fmt.Errorf("sim: ProjectionTolerance must be positive, got %g", c.ProjectionTolerance)
	}
	return nil
}

// Reason is the terminal state of a run.
type Reason string

const (
	ReasonCompleted          Reason = "completed"
	ReasonMaxSteps           Reason = "max_steps"
	ReasonCanceled           Reason = "canceled"
	ReasonStepSizeExhausted  Reason = "step_size_exhausted"
	ReasonProjectionFailed   Reason = "projection_failed"
	ReasonInvalidState       Reason = "invalid_state"
)

// Snapshot is one emitted frame: the full state plus the conserved
// totals and the collision count since the previous snapshot.
type Snapshot struct {
	Time       float64
	Phi        []float64
	PhiDot     []float64
	Energy     float64
	Momentum   float64
	Collisions int
}

// Observer receives every emitted snapshot during a run.
type Observer interface {
	OnSnapshot(snap Snapshot)
}

// Result is the data interface consumed by external persistence and
// analysis: snapshot series, run-constant metadata, and end-of-run
// summary scalars. Partial results are populated even on fatal aborts.
type Result struct {
	Times      []float64
	Phi        [][]float64
	PhiDot     [][]float64
	Energy     []float64
	Momentum   []float64
	Collisions []int

	A            float64
	B            float64
	Eccentricity float64
	N            int

	TotalCollisions    int
	FinalEnergyError   float64
	FinalMomentumError float64
	StepsTaken         int
	WallTime           time.Duration
	Reason             Reason
}
