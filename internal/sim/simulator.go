package sim

import (
	"context"
	"time"

	"github.com/san-kum/ellipsim/internal/collisions"
	"github.com/san-kum/ellipsim/internal/compute"
	"github.com/san-kum/ellipsim/internal/integrators"
	"github.com/san-kum/ellipsim/internal/particle"
)

// Simulator owns the outer time-stepping loop: step-size control,
// the parallel geodesic phase, collision handling, periodic
// conservation projection, and snapshot emission.
type Simulator struct {
	cfg        Config
	stepper    integrators.Stepper
	detector   *collisions.Detector
	controller *Controller
	projector  *Projector
	observers  []Observer
}

// New validates the configuration and assembles a driver.
func New(cfg Config, stepper integrators.Stepper) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Simulator{
		cfg:        cfg,
		stepper:    stepper,
		detector:   &collisions.Detector{Workers: cfg.Workers},
		controller: &Controller{DtMin: cfg.DtMin, DtMax: cfg.DtMax, Safety: cfg.Safety},
		projector:  NewProjector(cfg.ProjectionTolerance),
	}, nil
}

// AddObserver registers o for every emitted snapshot.
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run advances sys until MaxTime or MaxSteps, emitting snapshots at
// every SaveInterval crossing. On a fatal condition the snapshots
// emitted so far are still returned in the partial Result alongside
// the error; partial trajectories are scientifically useful and are
// never discarded.
func (s *Simulator) Run(ctx context.Context, sys *particle.System) (*Result, error) {
	start := time.Now()

	result := &Result{
		A:            sys.Ellipse.A,
		B:            sys.Ellipse.B,
		Eccentricity: sys.Ellipse.Eccentricity(),
		N:            len(sys.Particles),
	}

	e0 := sys.TotalEnergy()
	p0 := sys.TotalMomentum()

	finish := func(reason Reason, err error) (*Result, error) {
		result.Reason = reason
		result.FinalEnergyError = relDrift(sys.TotalEnergy(), e0)
		result.FinalMomentumError = relDrift(sys.TotalMomentum(), p0)
		result.WallTime = time.Since(start)
		return result, err
	}

	collisionsSince := 0
	s.emit(result, sys, &collisionsSince)

	nextSave := sys.Time + s.cfg.SaveInterval
	lastProjection := sys.Time
	step := 0

	for sys.Time < s.cfg.MaxTime && step < s.cfg.MaxSteps {
		select {
		case <-ctx.Done():
			return finish(ReasonCanceled, ctx.Err())
		default:
		}

		dt, err := s.controller.Next(sys, step)
		if err != nil {
			return finish(ReasonStepSizeExhausted, err)
		}
		if remaining := s.cfg.MaxTime - sys.Time; dt > remaining {
			dt = remaining
		}

		// Geodesic phase: each particle depends only on its own state,
		// so the map is lock-free across chunks.
		compute.ParallelFor(s.cfg.Workers, len(sys.Particles), 16, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				p := &sys.Particles[i]
				p.Phi, p.PhiDot = s.stepper.Step(sys.Ellipse, p.Phi, p.PhiDot, dt)
			}
		})

		// Parallel read-only detection, then a single-threaded write
		// pass so pairs sharing a particle are resolved in order.
		pairs := s.detector.Detect(sys)
		n := collisions.Resolve(sys, pairs)
		collisionsSince += n
		result.TotalCollisions += n

		sys.Time += dt
		step++
		result.StepsTaken = step

		if !sys.IsValid() {
			return finish(ReasonInvalidState, &StateError{Time: sys.Time, Step: step})
		}

		if s.cfg.ProjectionInterval > 0 && step%s.cfg.ProjectionInterval == 0 {
			if err := s.projector.Project(sys, e0, p0, lastProjection); err != nil {
				return finish(ReasonProjectionFailed, err)
			}
			lastProjection = sys.Time
		}

		// At most one snapshot per step: a step that crosses several
		// save boundaries records the state once and skips the
		// boundaries it jumped over, so snapshot times stay strictly
		// increasing even when SaveInterval undercuts the step.
		if sys.Time+1e-12 >= nextSave {
			s.emit(result, sys, &collisionsSince)
			for nextSave <= sys.Time+1e-12 {
				nextSave += s.cfg.SaveInterval
			}
		}
	}

	// Final frame for runs that stop between save boundaries.
	if last := len(result.Times) - 1; last < 0 || result.Times[last] < sys.Time {
		s.emit(result, sys, &collisionsSince)
	}

	if step >= s.cfg.MaxSteps && sys.Time < s.cfg.MaxTime {
		return finish(ReasonMaxSteps, nil)
	}
	return finish(ReasonCompleted, nil)
}

func (s *Simulator) emit(result *Result, sys *particle.System, collisionsSince *int) {
	n := len(sys.Particles)
	snap := Snapshot{
		Time:       sys.Time,
		Phi:        make([]float64, n),
		PhiDot:     make([]float64, n),
		Energy:     sys.TotalEnergy(),
		Momentum:   sys.TotalMomentum(),
		Collisions: *collisionsSince,
	}
	for i := range sys.Particles {
		snap.Phi[i] = sys.Particles[i].Phi
		snap.PhiDot[i] = sys.Particles[i].PhiDot
	}
	*collisionsSince = 0

	result.Times = append(result.Times, snap.Time)
	result.Phi = append(result.Phi, snap.Phi)
	result.PhiDot = append(result.PhiDot, snap.PhiDot)
	result.Energy = append(result.Energy, snap.Energy)
	result.Momentum = append(result.Momentum, snap.Momentum)
	result.Collisions = append(result.Collisions, snap.Collisions)

	for _, o := range s.observers {
		o.OnSnapshot(snap)
	}
}
