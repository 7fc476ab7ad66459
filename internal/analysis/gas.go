// Package analysis computes summary statistics over stored runs:
// conservation drift, collision rates, and spatial occupancy along
// the curve.
package analysis

import (
	"math"

	"github.com/san-kum/ellipsim/internal/geometry"
)

// DriftStats summarizes how far a conserved series wanders from its
// initial value.
type DriftStats struct {
	Initial float64
	Final   float64
	Max     float64
	Mean    float64
}

// Drift measures |x(t) - x(0)| over a series. An empty series yields
// zeros.
func Drift(series []float64) DriftStats {
	if len(series) == 0 {
		return DriftStats{}
	}
	st := DriftStats{Initial: series[0], Final: series[len(series)-1]}
	sum := 0.0
	for _, v := range series {
		d := math.Abs(v - series[0])
		sum += d
		if d > st.Max {
			st.Max = d
		}
	}
	st.Mean = sum / float64(len(series))
	return st
}

// CollisionRate is total collisions per unit simulated time.
func CollisionRate(times []float64, collisions []int) float64 {
	if len(times) < 2 {
		return 0
	}
	span := times[len(times)-1] - times[0]
	if span <= 0 {
		return 0
	}
	total := 0
	for _, c := range collisions {
		total += c
	}
	return float64(total) / span
}

// MeanSpeed returns the ensemble- and time-averaged embedding speed
// from the stored snapshot series.
func MeanSpeed(e *geometry.Ellipse, phi, phidot [][]float64) float64 {
	count := 0
	sum := 0.0
	for k := range phi {
		for i := range phi[k] {
			sum += math.Abs(phidot[k][i]) * math.Sqrt(e.Metric(phi[k][i]))
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// DensityHistogram bins wrapped particle angles across all snapshots.
// Uniform mixing shows up as near-equal occupancy per bin once the
// bins are arc-length weighted by the caller; the raw angular
// histogram is what gets plotted.
func DensityHistogram(phi [][]float64, bins int) []float64 {
	if bins <= 0 {
		return nil
	}
	hist := make([]float64, bins)
	total := 0
	for k := range phi {
		for i := range phi[k] {
			w := geometry.Wrap(phi[k][i]) // [0, 2π)
			b := int(w / (2 * math.Pi) * float64(bins))
			if b >= bins {
				b = bins - 1
			}
			hist[b]++
			total++
		}
	}
	if total > 0 {
		for b := range hist {
			hist[b] /= float64(total)
		}
	}
	return hist
}
