// Package geometry provides the differential geometry of an ellipse
// parametrized by the true polar angle φ.
//
// The embedding position of a point at angle φ is r(φ)·(cos φ, sin φ)
// with r(φ) = ab/√(a²sin²φ + b²cos²φ). The induced metric coefficient
// g(φ) = a²sin²φ + b²cos²φ converts angular rates to physical speeds:
// a particle with angular velocity φ̇ moves at physical speed √g·φ̇.
// All functions are pure; an Ellipse is immutable after construction.
package geometry

import (
	"fmt"
	"math"
)

// Ellipse holds the semi-axes of the curve and values derived from them.
// Construct with New; the zero value is not usable.
type Ellipse struct {
	A, B float64

	a2, b2    float64
	perimeter float64
}

// New validates the semi-axes and precomputes the perimeter.
// Requires a ≥ b > 0.
func New(a, b float64) (*Ellipse, error) {
	if a <= 0 || b <= 0 {
		return nil, fmt.Errorf("geometry: semi-axes must be positive, got a=%g b=%g", a, b)
	}
	if b > a {
		return nil, fmt.Errorf("geometry: semi-minor axis exceeds semi-major, got a=%g b=%g", a, b)
	}
	e := &Ellipse{A: a, B: b, a2: a * a, b2: b * b}
	e.perimeter = ramanujanPerimeter(a, b)
	return e, nil
}

// MustNew is New for compile-time-known axes; it panics on invalid input.
func MustNew(a, b float64) *Ellipse {
	e, err := New(a, b)
	if err != nil {
		panic(err)
	}
	return e
}

// Metric returns g(φ) = a²sin²φ + b²cos²φ.
// Bounded below by b² > 0, so no caller needs a zero guard.
func (e *Ellipse) Metric(phi float64) float64 {
	sin, cos := math.Sincos(phi)
	return e.a2*sin*sin + e.b2*cos*cos
}

// MetricDerivative returns dg/dφ = (a²−b²)·sin(2φ).
func (e *Ellipse) MetricDerivative(phi float64) float64 {
	return (e.a2 - e.b2) * math.Sin(2*phi)
}

// Christoffel returns Γ(φ) = g'(φ)/(2g(φ)), the coefficient of the
// geodesic equation φ̈ = −Γ(φ)·φ̇².
func (e *Ellipse) Christoffel(phi float64) float64 {
	return e.MetricDerivative(phi) / (2 * e.Metric(phi))
}

// Radius returns the polar radius r(φ) = ab/√g(φ).
func (e *Ellipse) Radius(phi float64) float64 {
	return e.A * e.B / math.Sqrt(e.Metric(phi))
}

// Curvature returns the local curvature κ(φ) = ab/g(φ)^(3/2).
func (e *Ellipse) Curvature(phi float64) float64 {
	g := e.Metric(phi)
	return e.A * e.B / (g * math.Sqrt(g))
}

// Eccentricity returns √(1−(b/a)²); zero for a circle.
func (e *Ellipse) Eccentricity() float64 {
	return math.Sqrt(1 - e.b2/e.a2)
}

// Perimeter returns the total circumference, computed once at
// construction from Ramanujan's rational approximation of the
// elliptic integral.
func (e *Ellipse) Perimeter() float64 {
	return e.perimeter
}

// ArcGap converts the angular separation dphi at mean angle mid into
// an embedding-space arc length using the local metric.
func (e *Ellipse) ArcGap(mid, dphi float64) float64 {
	return math.Abs(dphi) * math.Sqrt(e.Metric(mid))
}

func ramanujanPerimeter(a, b float64) float64 {
	h := (a - b) / (a + b)
	h *= h
	return math.Pi * (a + b) * (1 + 3*h/(10+math.Sqrt(4-3*h)))
}

// Wrap projects an unwrapped angle into [0, 2π). Positions stay
// unwrapped internally; this is for presentation boundaries only.
func Wrap(phi float64) float64 {
	w := math.Mod(phi, 2*math.Pi)
	if w < 0 {
		w += 2 * math.Pi
	}
	return w
}

// WrapDelta returns the shortest signed angular separation in (−π, π].
func WrapDelta(dphi float64) float64 {
	w := math.Mod(dphi, 2*math.Pi)
	if w <= -math.Pi {
		w += 2 * math.Pi
	} else if w > math.Pi {
		w -= 2 * math.Pi
	}
	return w
}
