package particle

import (
	"math"
	"testing"

	"github.com/san-kum/ellipsim/internal/geometry"
)

func TestPositionOnAxes(t *testing.T) {
	e := geometry.MustNew(2.0, 1.0)
	p := Particle{ID: 0, Mass: 1, Radius: 0.05}

	p.Phi = 0
	x, y := p.Position(e)
	if math.Abs(x-2.0) > 1e-14 || math.Abs(y) > 1e-14 {
		t.Errorf("position at φ=0: (%g, %g), expected (2, 0)", x, y)
	}

	p.Phi = math.Pi / 2
	x, y = p.Position(e)
	if math.Abs(x) > 1e-12 || math.Abs(y-1.0) > 1e-12 {
		t.Errorf("position at φ=π/2: (%g, %g), expected (0, 1)", x, y)
	}
}

func TestPositionOnCurve(t *testing.T) {
	e := geometry.MustNew(2.0, 1.0)
	for phi := 0.0; phi < 2*math.Pi; phi += 0.17 {
		p := Particle{Mass: 1, Radius: 0.01, Phi: phi}
		x, y := p.Position(e)
		c := x*x/4 + y*y
		if math.Abs(c-1) > 1e-12 {
			t.Errorf("φ=%g: point (%g, %g) off the ellipse, constraint = %g", phi, x, y, c)
		}
	}
}

func TestVelocityMatchesFiniteDifference(t *testing.T) {
	e := geometry.MustNew(2.0, 1.0)
	p := Particle{Mass: 1, Radius: 0.01, Phi: 0.7, PhiDot: 1.3}

	vx, vy := p.Velocity(e)

	h := 1e-6
	plus := Particle{Phi: p.Phi + h*p.PhiDot}
	minus := Particle{Phi: p.Phi - h*p.PhiDot}
	xp, yp := plus.Position(e)
	xm, ym := minus.Position(e)
	fdx := (xp - xm) / (2 * h)
	fdy := (yp - ym) / (2 * h)

	if math.Abs(vx-fdx) > 1e-6 || math.Abs(vy-fdy) > 1e-6 {
		t.Errorf("velocity (%g, %g) vs finite difference (%g, %g)", vx, vy, fdx, fdy)
	}
}

func TestKineticEnergyAndMomentum(t *testing.T) {
	e := geometry.MustNew(2.0, 1.0)
	p := Particle{Mass: 2.0, Radius: 0.01, Phi: 0.4, PhiDot: -0.8}

	g := e.Metric(0.4)
	if got, want := p.KineticEnergy(e), 0.5*2.0*g*0.64; math.Abs(got-want) > 1e-14 {
		t.Errorf("kinetic energy %g, want %g", got, want)
	}
	if got, want := p.Momentum(e), 2.0*math.Sqrt(g)*-0.8; math.Abs(got-want) > 1e-14 {
		t.Errorf("momentum %g, want %g", got, want)
	}

	// The transported momentum is the signed mass-weighted arc speed,
	// so |P| must agree with √(2mE) everywhere on the curve.
	if got, want := math.Abs(p.Momentum(e)), math.Sqrt(2*p.Mass*p.KineticEnergy(e)); math.Abs(got-want) > 1e-14 {
		t.Errorf("|momentum| %g, want √(2mE) = %g", got, want)
	}

	// On a circle the model metric coincides with the embedding one, so
	// the metric energy must equal ½m|v|² there.
	c := geometry.MustNew(1.5, 1.5)
	vx, vy := p.Velocity(c)
	ke := 0.5 * p.Mass * (vx*vx + vy*vy)
	if math.Abs(ke-p.KineticEnergy(c)) > 1e-12 {
		t.Errorf("embedding energy %g vs metric energy %g on circle", ke, p.KineticEnergy(c))
	}
}

func TestNewSystemRejectsInvalidParticles(t *testing.T) {
	e := geometry.MustNew(2.0, 1.0)
	cases := []struct {
		name string
		ps   []Particle
	}{
		{"zero mass", []Particle{{ID: 0, Mass: 0, Radius: 0.1}}},
		{"negative radius", []Particle{{ID: 0, Mass: 1, Radius: -0.1}}},
		{"duplicate id", []Particle{
			{ID: 3, Mass: 1, Radius: 0.05, Phi: 0},
			{ID: 3, Mass: 1, Radius: 0.05, Phi: 2},
		}},
		{"initial overlap", []Particle{
			{ID: 0, Mass: 1, Radius: 0.2, Phi: 0},
			{ID: 1, Mass: 1, Radius: 0.2, Phi: 0.1},
		}},
	}
	for _, c := range cases {
		if _, err := NewSystem(e, c.ps); err == nil {
			t.Errorf("%s: expected error", c.name)
		}
	}
}

func TestOverlapAcrossSeam(t *testing.T) {
	e := geometry.MustNew(2.0, 1.0)
	s := &System{Ellipse: e, Particles: []Particle{
		{ID: 0, Mass: 1, Radius: 0.05, Phi: 2*math.Pi - 0.02},
		{ID: 1, Mass: 1, Radius: 0.05, Phi: 0.02},
	}}
	// Angular separation is 0.04 through the seam, with g ≈ b² = 1
	// there, so the gap is ≈0.04 < 0.1 and the pair overlaps.
	if s.Overlap(0, 1) <= 0 {
		t.Error("expected overlap across the 0/2π seam")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	e := geometry.MustNew(2.0, 1.0)
	s, err := NewSystem(e, []Particle{{ID: 0, Mass: 1, Radius: 0.05, Phi: 1, PhiDot: 0.5}})
	if err != nil {
		t.Fatal(err)
	}
	c := s.Clone()
	c.Particles[0].Phi = 99
	if s.Particles[0].Phi == 99 {
		t.Error("clone shares particle storage")
	}
}

func TestIsValid(t *testing.T) {
	e := geometry.MustNew(2.0, 1.0)
	s := &System{Ellipse: e, Particles: []Particle{{ID: 0, Mass: 1, Radius: 0.05}}}
	if !s.IsValid() {
		t.Error("finite state reported invalid")
	}
	s.Particles[0].PhiDot = math.NaN()
	if s.IsValid() {
		t.Error("NaN state reported valid")
	}
}
