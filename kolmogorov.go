package dissim

import "math"

// KolmogorovSmirnov computes a multidimensional Kolmogorov–Smirnov statistic
// between two samples, after Fasano and Franceschini (1987). Around each
// observation the feature space splits into 2^d quadrants; the statistic is
// the largest difference between the two samples' empirical quadrant
// fractions, maximized over origins drawn from either sample.
//
// Cost is O(n·(n+m)·d) time with 2^d counters per side, so it suits the low
// dimensionalities the rest of this package targets. Range: [0, 1].
func KolmogorovSmirnov(x, y [][]float64) (float64, error) {
	xs, ys, err := normalizePair(x, y)
	if err != nil {
		return math.NaN(), err
	}
	return math.Max(ksPivot(xs, ys), ksPivot(ys, xs)), nil
}

// ksPivot maximizes the quadrant fraction difference over origins drawn
// from x. Each origin counts itself in its all-bits-set quadrant, matching
// the usual empirical CDF convention of counting the point at its own
// corner.
func ksPivot(x, y sample) float64 {
	nQuad := 1 << uint(x.d)
	countX := make([]float64, nQuad)
	countY := make([]float64, nQuad)

	var maxDiff float64
	for o := 0; o < x.n; o++ {
		origin := x.row(o)
		for q := range countX {
			countX[q] = 0
			countY[q] = 0
		}
		for i := 0; i < x.n; i++ {
			countX[quadrantOf(origin, x.row(i))]++
		}
		for i := 0; i < y.n; i++ {
			countY[quadrantOf(origin, y.row(i))]++
		}
		for q := 0; q < nQuad; q++ {
			diff := math.Abs(countX[q]/float64(x.n) - countY[q]/float64(y.n))
			if diff > maxDiff {
				maxDiff = diff
			}
		}
	}
	return maxDiff
}

// quadrantOf encodes which quadrant around origin the point falls in:
// bit j is set when point[j] >= origin[j].
func quadrantOf(origin, point []float64) int {
	code := 0
	for j := range origin {
		if point[j] >= origin[j] {
			code |= 1 << uint(j)
		}
	}
	return code
}
