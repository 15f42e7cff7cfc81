package dissim

import "math"

// DistanceMetric provides distance computation with a reduced-distance form
// for tree pruning (e.g., squared Euclidean skips the sqrt). DistToRdist and
// RdistToDist convert between the two spaces so bounds can be compared in
// either.
type DistanceMetric interface {
	Distance(a, b []float64) float64
	ReducedDistance(a, b []float64) float64

	// DistToRdist converts a true distance to reduced-distance space.
	DistToRdist(d float64) float64
	// RdistToDist converts a reduced distance back to a true distance.
	RdistToDist(rd float64) float64
}

// EuclideanMetric computes the Euclidean (L2) distance.
// ReducedDistance returns squared Euclidean distance (skips sqrt).
type EuclideanMetric struct{}

func (EuclideanMetric) Distance(a, b []float64) float64 {
	return math.Sqrt(euclideanSumOfSquares(a, b))
}

func (EuclideanMetric) ReducedDistance(a, b []float64) float64 {
	return euclideanSumOfSquares(a, b)
}

func (EuclideanMetric) DistToRdist(d float64) float64  { return d * d }
func (EuclideanMetric) RdistToDist(rd float64) float64 { return math.Sqrt(rd) }

func euclideanSumOfSquares(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// SEuclideanMetric computes the standardized Euclidean distance: squared
// per-feature differences are divided by the variances in V before summing.
// V must have one entry per feature. A zero variance yields Inf or NaN
// distances; the degeneracy is the caller's to interpret.
type SEuclideanMetric struct {
	V []float64
}

func (m SEuclideanMetric) Distance(a, b []float64) float64 {
	return math.Sqrt(m.ReducedDistance(a, b))
}

func (m SEuclideanMetric) ReducedDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d / m.V[i]
	}
	return sum
}

func (SEuclideanMetric) DistToRdist(d float64) float64  { return d * d }
func (SEuclideanMetric) RdistToDist(rd float64) float64 { return math.Sqrt(rd) }
