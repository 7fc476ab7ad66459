package integrators

import "github.com/san-kum/ellipsim/internal/geometry"

// Leapfrog is the second-order drift-kick-drift composition. It shares
// the reversibility of ForestRuth at lower cost per step and is kept
// as the comparison integrator.
type Leapfrog struct{}

func NewLeapfrog() *Leapfrog { return &Leapfrog{} }

func (Leapfrog) Name() string { return "leapfrog" }
func (Leapfrog) Order() int   { return 2 }

func (Leapfrog) Step(e *geometry.Ellipse, phi, phidot, dt float64) (float64, float64) {
	phi += 0.5 * dt * phidot
	phidot = kick(e, phi, phidot, dt)
	phi += 0.5 * dt * phidot
	return phi, phidot
}
