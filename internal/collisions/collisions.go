// Package collisions detects and resolves pairwise contacts between
// particles on the ellipse.
//
// Detection works on the shortest wrapped angular separation converted
// to an embedding arc length through the local metric. Resolution is
// an elastic exchange carried out on the signed arc speeds
// vᵢ = √g(φᵢ)·φ̇ᵢ: parallel transport along a curve rescales a tangent
// component by exactly the √g ratio, so in arc-speed variables the
// pair update is the standard 1-D elastic collision with the bare
// masses. Both the kinetic energy ½Σmᵢvᵢ² and the transported momentum
// Σmᵢvᵢ are then conserved to floating-point precision for any
// eccentricity. The free flow between contacts conserves both as well,
// since each particle's arc speed is a first integral of the geodesic
// equation.
package collisions

import (
	"math"
	"sort"
	"sync"

	"github.com/san-kum/ellipsim/internal/compute"
	"github.com/san-kum/ellipsim/internal/geometry"
	"github.com/san-kum/ellipsim/internal/particle"
)

// contactTol is the surface slack, relative to the combined radii, at
// which a pair counts as touching. Detection fires once the gap is
// inside the slack and the step-size prediction stops tracking such
// pairs, so an approaching pair reaches a resolvable contact in
// finitely many steps instead of the controller shrinking the step
// geometrically with the gap.
const contactTol = 1e-6

func slack(ri, rj float64) float64 { return contactTol * (ri + rj) }

// Pair identifies two overlapping particles by index into the system,
// with the measured overlap depth. The depth may be marginally
// negative for a pair caught inside the contact slack.
type Pair struct {
	I, J    int
	Overlap float64
}

// Detector scans for overlapping pairs. Workers controls parallelism
// of the read-only scan; 0 means one worker per CPU, 1 forces serial.
type Detector struct {
	Workers int
}

// Detect returns all overlapping pairs in deterministic order: sorted
// by the wrapped angular position of the first particle, then by IDs.
// The scan is read-only and parallelized over the outer index; writes
// happen only in Resolve, which is single-threaded.
func (d *Detector) Detect(s *particle.System) []Pair {
	n := len(s.Particles)
	if n < 2 {
		return nil
	}

	// Pairs further apart than the widest possible contact angle can be
	// skipped without touching the metric: √g ≥ b everywhere.
	maxRadius := 0.0
	for i := range s.Particles {
		if r := s.Particles[i].Radius; r > maxRadius {
			maxRadius = r
		}
	}
	cutoff := 2 * maxRadius / s.Ellipse.B

	var mu sync.Mutex
	var pairs []Pair

	compute.ParallelFor(d.Workers, n, 8, func(start, end int) {
		var local []Pair
		for i := start; i < end; i++ {
			pi := &s.Particles[i]
			for j := i + 1; j < n; j++ {
				pj := &s.Particles[j]
				dphi := geometry.WrapDelta(pj.Phi - pi.Phi)
				if math.Abs(dphi) > cutoff {
					continue
				}
				gap := s.Ellipse.ArcGap(pi.Phi+dphi/2, dphi)
				if over := pi.Radius + pj.Radius - gap; over > -slack(pi.Radius, pj.Radius) {
					local = append(local, Pair{I: i, J: j, Overlap: over})
				}
			}
		}
		if len(local) > 0 {
			mu.Lock()
			pairs = append(pairs, local...)
			mu.Unlock()
		}
	})

	sort.Slice(pairs, func(a, b int) bool {
		pa, pb := pairs[a], pairs[b]
		wa := geometry.Wrap(s.Particles[pa.I].Phi)
		wb := geometry.Wrap(s.Particles[pb.I].Phi)
		if wa != wb {
			return wa < wb
		}
		ia, ja := s.Particles[pa.I].ID, s.Particles[pa.J].ID
		ib, jb := s.Particles[pb.I].ID, s.Particles[pb.J].ID
		if ia != ib {
			return ia < ib
		}
		return ja < jb
	})
	return pairs
}

// Resolve applies the arc-speed elastic exchange to each pair in
// order. Pairs sharing a particle are handled sequentially by
// construction. A pair that is no longer approaching when its turn
// comes (stale detection, or an earlier resolution in the same pass
// reversed the closure) is skipped and re-examined next step.
// Returns the number of collisions applied.
func Resolve(s *particle.System, pairs []Pair) int {
	resolved := 0
	for _, pr := range pairs {
		pi, pj := &s.Particles[pr.I], &s.Particles[pr.J]

		dphi := geometry.WrapDelta(pj.Phi - pi.Phi)
		if dphi*(pj.PhiDot-pi.PhiDot) >= 0 {
			continue // separating or grazing, not a collision
		}

		sg1 := math.Sqrt(s.Ellipse.Metric(pi.Phi))
		sg2 := math.Sqrt(s.Ellipse.Metric(pj.Phi))
		m1, m2 := pi.Mass, pj.Mass
		sum := m1 + m2

		v1, v2 := sg1*pi.PhiDot, sg2*pj.PhiDot
		pi.PhiDot = ((m1-m2)*v1 + 2*m2*v2) / (sum * sg1)
		pj.PhiDot = ((m2-m1)*v2 + 2*m1*v1) / (sum * sg2)
		resolved++
	}
	return resolved
}

// MinTimeToContact estimates the smallest time until any approaching
// pair's surfaces meet, from relative angular speed through the local
// metric. Reports ok=false when no pair is approaching.
func MinTimeToContact(s *particle.System) (tau float64, pair Pair, ok bool) {
	n := len(s.Particles)
	tau = math.Inf(1)
	for i := 0; i < n; i++ {
		pi := &s.Particles[i]
		for j := i + 1; j < n; j++ {
			pj := &s.Particles[j]
			dphi := geometry.WrapDelta(pj.Phi - pi.Phi)
			rel := pj.PhiDot - pi.PhiDot
			if dphi*rel >= 0 {
				continue
			}
			mid := pi.Phi + dphi/2
			gap := s.Ellipse.ArcGap(mid, dphi) - pi.Radius - pj.Radius
			if gap <= slack(pi.Radius, pj.Radius) {
				continue // inside the contact slack, the resolver owns this pair
			}
			closing := math.Abs(rel) * math.Sqrt(s.Ellipse.Metric(mid))
			if t := gap / closing; t < tau {
				tau = t
				pair = Pair{I: i, J: j}
				ok = true
			}
		}
	}
	return tau, pair, ok
}
