package dissim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// defaultLeafSize is the leaf size used for the spatial indexes backing the
// nearest-neighbor estimators.
const defaultLeafSize = 40

// KLDiv estimates the Kullback–Leibler divergence D(P‖Q) between two
// distributions from samples alone, without fitting densities. x holds
// observations drawn from P, y observations drawn from Q, both as rows of
// matching feature count; 1-D samples may be passed either as a single row
// or as one value per row. k is the neighbor order of the estimate (k = 1
// uses each point's nearest neighbor).
//
// The estimator follows Pérez-Cruz, "Kullback-Leibler Divergence Estimation
// of Continuous Distributions" (2008), using the k-th nearest-neighbor
// distances within x and from x into y:
//
//	D = -d/n Σᵢ log(rₖ(xᵢ)/sₖ(xᵢ)) + log(m/(n-1))
//
// Equation 14 of the paper is missing the negative sign on the first
// right-hand-side term; the sign used here is the corrected one.
//
// The estimate converges almost surely to the true divergence as samples
// grow, but at finite sizes it is noisy and can be negative even though a
// true divergence cannot. It is not symmetric: KLDiv(x, y, k) and
// KLDiv(y, x, k) measure different things and generally differ.
//
// Fewer than five observations on either side returns NaN with a nil error.
// A feature count of MaxFeatures or more fails with *DimensionalityError,
// and mismatched feature counts with *ShapeMismatchError.
func KLDiv(x, y [][]float64, k int) (float64, error) {
	out, err := KLDivMulti(x, y, []int{k})
	if err != nil {
		return math.NaN(), err
	}
	return out[0], nil
}

// KLDivMulti estimates the divergence at several neighbor orders in one
// pass, sharing the spatial indexes and distance fields across all of them.
// The i-th result is identical to KLDiv(x, y, ks[i]).
func KLDivMulti(x, y [][]float64, ks []int) ([]float64, error) {
	if len(ks) == 0 {
		return nil, fmt.Errorf("dissim: at least one neighbor order is required")
	}
	maxK := ks[0]
	for _, k := range ks {
		if k < 1 {
			return nil, fmt.Errorf("dissim: neighbor order must be >= 1, got %d", k)
		}
		if k > maxK {
			maxK = k
		}
	}

	xs, ys, err := normalizePair(x, y)
	if err != nil {
		return nil, err
	}
	if xs.d >= MaxFeatures {
		return nil, &DimensionalityError{Features: xs.d}
	}

	out := make([]float64, len(ks))
	if xs.n < minViableRows || ys.n < minViableRows {
		for i := range out {
			out[i] = math.NaN()
		}
		return out, nil
	}

	xtree := NewKDTree(xs.data, xs.n, xs.d, EuclideanMetric{}, defaultLeafSize)
	ytree := NewKDTree(ys.data, ys.n, ys.d, EuclideanMetric{}, defaultLeafSize)

	// One query sized for the largest order serves every k. r[i][j] is the
	// distance from xᵢ to its j-th nearest member of x, with j = 0 the point
	// itself; s[i][j] is the distance from xᵢ to its (j+1)-th nearest member
	// of y.
	kq := maxK + 1
	_, r := queryKNNParallel(xtree, xs.data, xs.n, min(kq, xs.n), knnQueryWorkers)
	_, s := queryKNNParallel(ytree, xs.data, xs.n, min(kq, ys.n), knnQueryWorkers)

	n := float64(xs.n)
	m := float64(ys.n)
	d := float64(xs.d)

	logRatios := make([]float64, xs.n)
	for j, k := range ks {
		// An order beyond the available neighbors has no distance to read;
		// the sample is too small to support it.
		if k > xs.n-1 || k > ys.n {
			out[j] = math.NaN()
			continue
		}
		for i := 0; i < xs.n; i++ {
			logRatios[i] = math.Log(r[i][k] / s[i][k-1])
		}
		out[j] = -floats.Sum(logRatios)*d/n + math.Log(m/(n-1))
	}

	return out, nil
}
