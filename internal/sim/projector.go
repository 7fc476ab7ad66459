package sim

import (
	"math"

	"github.com/san-kum/ellipsim/internal/particle"
)

// Projector periodically restores the system totals to the run's
// initial energy E₀ and momentum P₀. The symplectic stepper keeps the
// short-term error bounded, but floating-point rounding in millions of
// collision events accumulates a slow drift that would invalidate long
// campaigns.
//
// The correction is the minimal-perturbation least-squares adjustment
// of all φ̇ᵢ subject to the two conservation constraints, solved by
// Newton iteration on the constraint multipliers (a 2×2 Gram solve per
// iteration). When the velocity-only system is degenerate (one
// particle, or every particle carrying the same arc speed √g·φ̇), it
// falls back to an exact closed-form repair in arc-speed variables.
type Projector struct {
	Tolerance float64
	MaxIter   int
}

// NewProjector uses tol for both the trigger guard and the convergence
// target.
func NewProjector(tol float64) *Projector {
	return &Projector{Tolerance: tol, MaxIter: 25}
}

// Project adjusts the system in place so that total energy and total
// transported momentum match (e0, p0) within the tolerance. A state
// already within tolerance is left untouched. Non-convergence returns
// a ProjectionError carrying the measured drift and lastSuccess, the
// time of the previous successful projection.
func (pr *Projector) Project(s *particle.System, e0, p0, lastSuccess float64) error {
	if pr.converged(s, e0, p0) {
		return nil
	}

	// Attempts run on a clone so a diverging Newton cannot leave a
	// half-corrected state behind.
	trial := s.Clone()
	if pr.projectVelocities(trial, e0, p0) && trial.IsValid() {
		s.Particles = trial.Particles
		return nil
	}
	trial = s.Clone()
	if pr.projectPair(trial, e0, p0) && trial.IsValid() {
		s.Particles = trial.Particles
		return nil
	}

	return &ProjectionError{
		Time:           s.Time,
		LastProjection: lastSuccess,
		EnergyDrift:    relDrift(s.TotalEnergy(), e0),
		MomentumDrift:  relDrift(s.TotalMomentum(), p0),
	}
}

func (pr *Projector) converged(s *particle.System, e0, p0 float64) bool {
	return relDrift(s.TotalEnergy(), e0) <= pr.Tolerance &&
		relDrift(s.TotalMomentum(), p0) <= pr.Tolerance
}

func relDrift(x, x0 float64) float64 {
	return math.Abs(x-x0) / math.Max(1, math.Abs(x0))
}

// projectVelocities runs the multiplier Newton on δφ̇ = Jᵀλ. Both
// constraints are functions of φ̇ with Jacobian rows (mᵢgᵢφ̇ᵢ) for the
// energy and (mᵢ√gᵢ) for the momentum, so each iteration solves the
// 2×2 Gram system. Returns false when the Gram matrix is singular,
// which happens exactly when the rows are proportional: every arc
// speed √gᵢ·φ̇ᵢ equal, or a single particle.
func (pr *Projector) projectVelocities(s *particle.System, e0, p0 float64) bool {
	n := len(s.Particles)
	ag := make([]float64, n) // mᵢ·g(φᵢ)
	as := make([]float64, n) // mᵢ·√g(φᵢ)
	for i := range s.Particles {
		p := &s.Particles[i]
		g := s.Ellipse.Metric(p.Phi)
		ag[i] = p.Mass * g
		as[i] = p.Mass * math.Sqrt(g)
	}

	for iter := 0; iter < pr.MaxIter; iter++ {
		rE := s.TotalEnergy() - e0
		rP := s.TotalMomentum() - p0
		if relDrift(s.TotalEnergy(), e0) <= pr.Tolerance && relDrift(s.TotalMomentum(), p0) <= pr.Tolerance {
			return true
		}

		var gA, gB, gC float64 // Gram matrix [[gA,gB],[gB,gC]]
		for i := range s.Particles {
			de := ag[i] * s.Particles[i].PhiDot
			gA += de * de
			gB += de * as[i]
			gC += as[i] * as[i]
		}

		det := gA*gC - gB*gB
		if det <= 1e-14*gA*gC || det == 0 {
			return false
		}

		l1 := (-gC*rE + gB*rP) / det
		l2 := (gB*rE - gA*rP) / det
		for i := range s.Particles {
			s.Particles[i].PhiDot += ag[i]*s.Particles[i].PhiDot*l1 + as[i]*l2
		}
	}
	return false
}

// projectPair is the degenerate-case fallback. In arc-speed variables
// vᵢ = √gᵢ·φ̇ᵢ the constraints read Σ½mᵢvᵢ² = E₀ and Σmᵢvᵢ = P₀, a
// sphere and a hyperplane, so the repair is exact rather than
// iterative. A lone particle has both targets pinned by the same
// quantity (E = P²/2m), so matching the momentum settles it; with more
// particles the two heaviest absorb the residual, which reduces to a
// quadratic in one speed. A negative discriminant means the pair
// cannot absorb the residual and the projection has genuinely failed.
func (pr *Projector) projectPair(s *particle.System, e0, p0 float64) bool {
	n := len(s.Particles)
	v := make([]float64, n)
	sg := make([]float64, n)
	for i := range s.Particles {
		p := &s.Particles[i]
		sg[i] = math.Sqrt(s.Ellipse.Metric(p.Phi))
		v[i] = sg[i] * p.PhiDot
	}

	if n == 1 {
		p := &s.Particles[0]
		p.PhiDot = p0 / (p.Mass * sg[0])
		return pr.converged(s, e0, p0)
	}

	j, k := 0, 1
	if s.Particles[k].Mass > s.Particles[j].Mass {
		j, k = k, j
	}
	for i := 2; i < n; i++ {
		switch m := s.Particles[i].Mass; {
		case m > s.Particles[j].Mass:
			j, k = i, j
		case m > s.Particles[k].Mass:
			k = i
		}
	}

	eRest, pRest := e0, p0
	for i := range s.Particles {
		if i == j || i == k {
			continue
		}
		m := s.Particles[i].Mass
		eRest -= 0.5 * m * v[i] * v[i]
		pRest -= m * v[i]
	}

	// mⱼvⱼ + mₖvₖ = pRest and ½(mⱼvⱼ² + mₖvₖ²) = eRest collapse to a
	// quadratic in vₖ after eliminating vⱼ.
	mj, mk := s.Particles[j].Mass, s.Particles[k].Mass
	qa := mk * (mk + mj) / (2 * mj)
	qb := -pRest * mk / mj
	qc := pRest*pRest/(2*mj) - eRest
	disc := qb*qb - 4*qa*qc
	if math.IsNaN(disc) {
		return false
	}
	if disc < 0 {
		// The equal-speed state sits exactly at the tangency of the
		// line and the sphere, so rounding can push the discriminant
		// marginally negative; take the tangent root and let the
		// convergence check decide whether the miss is material.
		disc = 0
	}
	root := math.Sqrt(disc)
	vk := (-qb + root) / (2 * qa)
	if alt := (-qb - root) / (2 * qa); math.Abs(alt-v[k]) < math.Abs(vk-v[k]) {
		vk = alt
	}
	vj := (pRest - mk*vk) / mj

	s.Particles[j].PhiDot = vj / sg[j]
	s.Particles[k].PhiDot = vk / sg[k]
	return pr.converged(s, e0, p0)
}
