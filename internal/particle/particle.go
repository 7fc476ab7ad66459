// Package particle defines the per-particle state on the ellipse and
// the system-level aggregates the rest of the engine conserves.
package particle

import (
	"fmt"
	"math"

	"github.com/san-kum/ellipsim/internal/geometry"
)

// Particle is a point particle constrained to the curve.
// Phi is the true polar angle and is stored unwrapped so that
// continuity across the 0/2π seam is preserved; use geometry.Wrap at
// presentation boundaries.
type Particle struct {
	ID     int
	Mass   float64
	Radius float64
	Phi    float64
	PhiDot float64
}

// Position returns the embedding position r(φ)·(cos φ, sin φ).
func (p *Particle) Position(e *geometry.Ellipse) (x, y float64) {
	r := e.Radius(p.Phi)
	sin, cos := math.Sincos(p.Phi)
	return r * cos, r * sin
}

// Velocity returns the embedding velocity d/dt of Position,
// a function of (φ, φ̇) only.
func (p *Particle) Velocity(e *geometry.Ellipse) (vx, vy float64) {
	r := e.Radius(p.Phi)
	// dr/dφ = −r·g'/(2g)
	dr := -r * e.Christoffel(p.Phi)
	sin, cos := math.Sincos(p.Phi)
	vx = (dr*cos - r*sin) * p.PhiDot
	vy = (dr*sin + r*cos) * p.PhiDot
	return vx, vy
}

// KineticEnergy returns ½·m·g(φ)·φ̇².
func (p *Particle) KineticEnergy(e *geometry.Ellipse) float64 {
	return 0.5 * p.Mass * e.Metric(p.Phi) * p.PhiDot * p.PhiDot
}

// Momentum returns the transported momentum m·√g(φ)·φ̇, the signed
// mass-weighted arc speed. The free geodesic flow conserves it exactly
// (energy conservation fixes √g·|φ̇| and the sign of φ̇ cannot flip),
// which the raw conjugate momentum m·g·φ̇ does not satisfy, so this is
// the quantity the engine tracks and restores.
func (p *Particle) Momentum(e *geometry.Ellipse) float64 {
	return p.Mass * math.Sqrt(e.Metric(p.Phi)) * p.PhiDot
}

// System is the full simulation state: an ordered particle collection
// plus the simulation clock.
type System struct {
	Ellipse   *geometry.Ellipse
	Particles []Particle
	Time      float64
}

// NewSystem validates the initial particle set. Particles must have
// positive mass and radius and distinct IDs; overlap at t=0 is the
// ensemble generator's contract and is checked here as a precondition.
func NewSystem(e *geometry.Ellipse, particles []Particle) (*System, error) {
	seen := make(map[int]bool, len(particles))
	for i := range particles {
		p := &particles[i]
		if p.Mass <= 0 {
			return nil, fmt.Errorf("particle: particle %d has non-positive mass %g", p.ID, p.Mass)
		}
		if p.Radius <= 0 {
			return nil, fmt.Errorf("particle: particle %d has non-positive radius %g", p.ID, p.Radius)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("particle: duplicate particle id %d", p.ID)
		}
		seen[p.ID] = true
	}
	s := &System{Ellipse: e, Particles: particles}
	for i := range particles {
		for j := i + 1; j < len(particles); j++ {
			if s.Overlap(i, j) > 0 {
				return nil, fmt.Errorf("particle: particles %d and %d overlap at t=0",
					particles[i].ID, particles[j].ID)
			}
		}
	}
	return s, nil
}

// Overlap returns how far the surface-to-surface arc gap between
// particles i and j is negative, i.e. a positive value is the overlap
// depth and ≤ 0 means no contact.
func (s *System) Overlap(i, j int) float64 {
	pi, pj := &s.Particles[i], &s.Particles[j]
	dphi := geometry.WrapDelta(pj.Phi - pi.Phi)
	gap := s.Ellipse.ArcGap(pi.Phi+dphi/2, dphi)
	return pi.Radius + pj.Radius - gap
}

// TotalEnergy returns Σᵢ ½·mᵢ·g(φᵢ)·φ̇ᵢ².
func (s *System) TotalEnergy() float64 {
	sum := 0.0
	for i := range s.Particles {
		sum += s.Particles[i].KineticEnergy(s.Ellipse)
	}
	return sum
}

// TotalMomentum returns Σᵢ mᵢ·√g(φᵢ)·φ̇ᵢ.
func (s *System) TotalMomentum() float64 {
	sum := 0.0
	for i := range s.Particles {
		sum += s.Particles[i].Momentum(s.Ellipse)
	}
	return sum
}

// Clone deep-copies the system.
func (s *System) Clone() *System {
	ps := make([]Particle, len(s.Particles))
	copy(ps, s.Particles)
	return &System{Ellipse: s.Ellipse, Particles: ps, Time: s.Time}
}

// IsValid reports whether every coordinate is finite.
func (s *System) IsValid() bool {
	for i := range s.Particles {
		p := &s.Particles[i]
		if math.IsNaN(p.Phi) || math.IsInf(p.Phi, 0) ||
			math.IsNaN(p.PhiDot) || math.IsInf(p.PhiDot, 0) {
			return false
		}
	}
	return true
}
