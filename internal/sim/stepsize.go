package sim

import (
	"github.com/san-kum/ellipsim/internal/collisions"
	"github.com/san-kum/ellipsim/internal/particle"
)

// Controller chooses the next sub-step length. It never exceeds DtMax
// and shrinks toward Safety times the predicted time-to-contact so
// that no approaching pair can tunnel through a contact in one step.
type Controller struct {
	DtMin  float64
	DtMax  float64
	Safety float64
}

// Next returns the step length for the coming sub-step. Pairs already
// inside the detection slack are owned by the resolver and do not
// shrink the step, so an ordinary approach bottoms out at a finite dt
// and then collides. Next fails with a StepSizeError only when a pair
// closes so fast that the safe step undercuts DtMin before the slack
// is reached: that is a pathological packing the caller must fix, not
// something the stepper can absorb.
func (c *Controller) Next(s *particle.System, step int) (float64, error) {
	tau, pair, ok := collisions.MinTimeToContact(s)
	if !ok {
		return c.DtMax, nil
	}

	dt := c.Safety * tau
	if dt >= c.DtMax {
		return c.DtMax, nil
	}
	if dt < c.DtMin {
		return 0, &StepSizeError{
			Time:          s.Time,
			Step:          step,
			PairI:         s.Particles[pair.I].ID,
			PairJ:         s.Particles[pair.J].ID,
			TimeToContact: tau,
		}
	}
	return dt, nil
}
