package analysis

import (
	"math"
	"testing"

	"github.com/san-kum/ellipsim/internal/geometry"
)

func TestDriftConstantSeries(t *testing.T) {
	st := Drift([]float64{2.5, 2.5, 2.5})
	if st.Max != 0 || st.Mean != 0 {
		t.Errorf("constant series should have zero drift, got max=%g mean=%g", st.Max, st.Mean)
	}
	if st.Initial != 2.5 || st.Final != 2.5 {
		t.Errorf("endpoints wrong: %+v", st)
	}
}

func TestDriftTracksMaxExcursion(t *testing.T) {
	st := Drift([]float64{1.0, 1.1, 0.7, 1.0})
	if math.Abs(st.Max-0.3) > 1e-15 {
		t.Errorf("max drift = %g, want 0.3", st.Max)
	}
	if math.Abs(st.Mean-0.1) > 1e-15 {
		t.Errorf("mean drift = %g, want 0.1", st.Mean)
	}
}

func TestDriftEmpty(t *testing.T) {
	if st := Drift(nil); st != (DriftStats{}) {
		t.Errorf("empty series should yield zero stats, got %+v", st)
	}
}

func TestCollisionRate(t *testing.T) {
	times := []float64{0, 1, 2, 3, 4}
	collisions := []int{0, 3, 1, 0, 4}
	got := CollisionRate(times, collisions)
	if math.Abs(got-2.0) > 1e-15 {
		t.Errorf("rate = %g, want 2.0", got)
	}
	if CollisionRate(times[:1], collisions[:1]) != 0 {
		t.Error("single snapshot should yield zero rate")
	}
}

func TestMeanSpeedOnCircle(t *testing.T) {
	e := geometry.MustNew(1, 1)
	phi := [][]float64{{0, math.Pi}, {0.5, 1.5}}
	phidot := [][]float64{{0.5, -0.5}, {0.5, -0.5}}
	// On the unit circle speed is |phidot|.
	got := MeanSpeed(e, phi, phidot)
	if math.Abs(got-0.5) > 1e-15 {
		t.Errorf("mean speed = %g, want 0.5", got)
	}
}

func TestDensityHistogramNormalized(t *testing.T) {
	phi := [][]float64{{0.1, math.Pi, -0.1}}
	hist := DensityHistogram(phi, 4)
	if len(hist) != 4 {
		t.Fatalf("want 4 bins, got %d", len(hist))
	}
	sum := 0.0
	for _, h := range hist {
		sum += h
	}
	if math.Abs(sum-1.0) > 1e-15 {
		t.Errorf("histogram sums to %g, want 1", sum)
	}
	// -0.1 wraps into the last bin.
	if hist[3] == 0 {
		t.Error("negative angle should land in the last bin after wrapping")
	}
}
