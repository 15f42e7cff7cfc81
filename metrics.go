package dissim

import "math"

// SEuclidean computes the standardized Euclidean distance between the means
// of two samples: squared per-feature mean differences are scaled by the
// per-feature variance of x before summing. x acts as the reference sample;
// swapping the operands changes the scaling and therefore the result.
//
// The statistic is cheap and robust but looks only at the first moment of y.
// Two candidate samples with equal means and wildly different spreads are
// indistinguishable to it. Range: [0, ∞).
func SEuclidean(x, y [][]float64) (float64, error) {
	xs, ys, err := normalizePair(x, y)
	if err != nil {
		return math.NaN(), err
	}

	metric := SEuclideanMetric{V: xs.featureVariances()}
	return metric.Distance(xs.featureMeans(), ys.featureMeans()), nil
}

// NearestNeighbor computes the nearest-neighbor concordance between two
// samples: the fraction of points in the pooled sample whose nearest
// neighbor belongs to the same sample as the point itself. Both samples are
// standardized by the square root of the product of their per-feature
// standard deviations before pooling.
//
// Values near 0.5 mean the samples are well mixed; values near 1 mean each
// sample keeps to itself. Range: [0, 1].
func NearestNeighbor(x, y [][]float64) (float64, error) {
	xs, ys, err := normalizePair(x, y)
	if err != nil {
		return math.NaN(), err
	}

	xs, ys = standardizePair(xs, ys)
	pooled := pool(xs, ys)

	// k = 2: the first neighbor of a pooled point is the point itself.
	tree := NewKDTree(pooled.data, pooled.n, pooled.d, EuclideanMetric{}, defaultLeafSize)
	idx, _ := queryKNNParallel(tree, pooled.data, pooled.n, min(2, pooled.n), knnQueryWorkers)

	same := 0
	for i, neighbors := range idx {
		nearest := -1
		for _, cand := range neighbors {
			if cand != i {
				nearest = cand
				break
			}
		}
		if nearest == -1 {
			continue
		}
		if (i < xs.n) == (nearest < xs.n) {
			same++
		}
	}

	return float64(same) / float64(pooled.n), nil
}

// ZechAslan computes the Zech–Aslan energy distance between two samples: the
// sum of within-sample and cross-sample potentials built from logarithmic
// pairwise distances, with distances standardized per feature by the product
// of the two samples' standard deviations.
//
// The statistic grows as the samples separate. It is centered so that
// similar samples score near zero, and it can be negative. Duplicate points
// contribute log(0) = -Inf potentials; that degeneracy is reported as is.
// Range: (-∞, ∞).
func ZechAslan(x, y [][]float64) (float64, error) {
	xs, ys, err := normalizePair(x, y)
	if err != nil {
		return math.NaN(), err
	}

	sx := xs.featureStdDevs()
	sy := ys.featureStdDevs()
	v := make([]float64, xs.d)
	for j := range v {
		v[j] = sx[j] * sy[j]
	}
	metric := SEuclideanMetric{V: v}

	nx := float64(xs.n)
	ny := float64(ys.n)

	// Within-sample potentials sum each unordered pair once.
	var phiX, phiY, phiXY float64
	for i := 0; i < xs.n; i++ {
		for j := i + 1; j < xs.n; j++ {
			phiX -= math.Log(metric.Distance(xs.row(i), xs.row(j)))
		}
	}
	phiX /= nx * (nx - 1)

	for i := 0; i < ys.n; i++ {
		for j := i + 1; j < ys.n; j++ {
			phiY -= math.Log(metric.Distance(ys.row(i), ys.row(j)))
		}
	}
	phiY /= ny * (ny - 1)

	for i := 0; i < xs.n; i++ {
		for j := 0; j < ys.n; j++ {
			phiXY += math.Log(metric.Distance(xs.row(i), ys.row(j)))
		}
	}
	phiXY /= nx * ny

	return phiX + phiY + phiXY, nil
}
