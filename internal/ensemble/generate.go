// Package ensemble generates valid initial conditions for a run:
// N non-overlapping particles on the ellipse with seeded, reproducible
// placement. The simulation core only requires the resulting state to
// satisfy the non-overlap precondition; everything about the sampling
// policy lives here, outside the engine.
package ensemble

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/ellipsim/internal/geometry"
	"github.com/san-kum/ellipsim/internal/particle"
)

// ErrPlacement indicates the generator exhausted its placement
// attempts under the requested packing density. Typical at high
// eccentricity or high N; the fix is fewer or smaller particles, not
// retries inside the core.
var ErrPlacement = errors.New("ensemble: particle placement attempts exhausted")

// Params describes one generated ensemble.
type Params struct {
	N      int
	Mass   float64
	Radius float64
	// VMax bounds the uniform angular-velocity draw.
	VMax float64
	Seed int64
	// MaxAttempts caps rejection sampling per particle (default 1000).
	MaxAttempts int
}

// Generate places N particles with rejection sampling and draws their
// angular velocities uniformly from [−VMax, VMax]. The same seed
// always yields the same ensemble.
func Generate(e *geometry.Ellipse, p Params) (*particle.System, error) {
	if p.N <= 0 {
		return nil, fmt.Errorf("ensemble: N must be positive, got %d", p.N)
	}
	if p.Mass <= 0 || p.Radius <= 0 {
		return nil, fmt.Errorf("ensemble: mass and radius must be positive, got %g, %g", p.Mass, p.Radius)
	}
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1000
	}

	// Quick density check: total particle extent cannot exceed the
	// perimeter, and rejection sampling gets hopeless well before that.
	if occupied := float64(p.N) * 2 * p.Radius; occupied >= e.Perimeter() {
		return nil, fmt.Errorf("%w: %d particles of radius %g need %g arc units on a perimeter of %g",
			ErrPlacement, p.N, p.Radius, occupied, e.Perimeter())
	}

	rng := rand.New(rand.NewSource(p.Seed))
	placed := make([]particle.Particle, 0, p.N)

	for i := 0; i < p.N; i++ {
		ok := false
		for try := 0; try < attempts; try++ {
			phi := rng.Float64() * 2 * math.Pi
			if !fits(e, placed, phi, p.Radius) {
				continue
			}
			placed = append(placed, particle.Particle{
				ID:     i,
				Mass:   p.Mass,
				Radius: p.Radius,
				Phi:    phi,
				PhiDot: (2*rng.Float64() - 1) * p.VMax,
			})
			ok = true
			break
		}
		if !ok {
			return nil, fmt.Errorf("%w: placed %d of %d after %d attempts each",
				ErrPlacement, len(placed), p.N, attempts)
		}
	}

	return particle.NewSystem(e, placed)
}

func fits(e *geometry.Ellipse, placed []particle.Particle, phi, radius float64) bool {
	for i := range placed {
		dphi := geometry.WrapDelta(placed[i].Phi - phi)
		gap := e.ArcGap(phi+dphi/2, dphi)
		if gap <= placed[i].Radius+radius {
			return false
		}
	}
	return true
}
