package dissim

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MaxFeatures is the smallest feature count rejected by the nearest-neighbor
// based estimators. Past ten or so dimensions, nearest-neighbor distances
// concentrate and the density estimates underneath KLDiv lose their meaning.
const MaxFeatures = 10

// minViableRows is the smallest sample size with enough statistical support
// for a dissimilarity estimate. Samples below it yield NaN rather than an
// error: in gridded use, short samples are a data property, not a bug.
const minViableRows = 5

// sample is a dense observation matrix in flat row-major form:
// n observations of d features each.
type sample struct {
	data []float64
	n, d int
}

func (s sample) row(i int) []float64 { return s.data[i*s.d : (i+1)*s.d] }

// newSample canonicalizes raw rows into a sample. A single-row input is
// treated as a 1-D series laid out sideways and is transposed into a column,
// so both orientations of a 1-D sample canonicalize to (n, 1).
func newSample(rows [][]float64) sample {
	if len(rows) == 1 {
		col := rows[0]
		flat := make([]float64, len(col))
		copy(flat, col)
		return sample{data: flat, n: len(col), d: 1}
	}
	n := len(rows)
	d := 0
	if n > 0 {
		d = len(rows[0])
	}
	flat := make([]float64, n*d)
	for i, row := range rows {
		copy(flat[i*d:(i+1)*d], row)
	}
	return sample{data: flat, n: n, d: d}
}

// normalizePair canonicalizes both operands and enforces the shared feature
// count every dissimilarity requires.
func normalizePair(x, y [][]float64) (sample, sample, error) {
	xs := newSample(x)
	ys := newSample(y)
	if xs.d != ys.d {
		return sample{}, sample{}, &ShapeMismatchError{XFeatures: xs.d, YFeatures: ys.d}
	}
	return xs, ys, nil
}

// Column reshapes a 1-D series into the observations-by-features form the
// dissimilarities accept: n observations of a single feature.
func Column(values []float64) [][]float64 {
	out := make([][]float64, len(values))
	for i, v := range values {
		out[i] = []float64{v}
	}
	return out
}

// featureColumn copies feature j into dst, allocating when dst is nil.
func (s sample) featureColumn(j int, dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, s.n)
	}
	for i := 0; i < s.n; i++ {
		dst[i] = s.data[i*s.d+j]
	}
	return dst
}

// featureMeans returns the per-feature sample means.
func (s sample) featureMeans() []float64 {
	out := make([]float64, s.d)
	col := make([]float64, s.n)
	for j := 0; j < s.d; j++ {
		out[j] = stat.Mean(s.featureColumn(j, col), nil)
	}
	return out
}

// featureStdDevs returns the per-feature sample standard deviations
// (n-1 denominator).
func (s sample) featureStdDevs() []float64 {
	out := make([]float64, s.d)
	col := make([]float64, s.n)
	for j := 0; j < s.d; j++ {
		out[j] = stat.StdDev(s.featureColumn(j, col), nil)
	}
	return out
}

// featureVariances returns the per-feature sample variances (n-1 denominator).
func (s sample) featureVariances() []float64 {
	out := make([]float64, s.d)
	col := make([]float64, s.n)
	for j := 0; j < s.d; j++ {
		out[j] = stat.Variance(s.featureColumn(j, col), nil)
	}
	return out
}

// scaled returns a copy of the sample with every feature divided by its
// entry in scale.
func (s sample) scaled(scale []float64) sample {
	out := make([]float64, len(s.data))
	for i := 0; i < s.n; i++ {
		for j := 0; j < s.d; j++ {
			out[i*s.d+j] = s.data[i*s.d+j] / scale[j]
		}
	}
	return sample{data: out, n: s.n, d: s.d}
}

// standardizePair rescales both samples by the square root of the product of
// their per-feature standard deviations. The pooled-sample statistics use
// this shared scaling so that neither sample's units dominate the geometry.
// A feature that is constant in either sample scales to NaN or Inf and the
// degeneracy propagates to the statistic.
func standardizePair(x, y sample) (sample, sample) {
	sx := x.featureStdDevs()
	sy := y.featureStdDevs()
	scale := make([]float64, x.d)
	for j := range scale {
		scale[j] = math.Sqrt(sx[j] * sy[j])
	}
	return x.scaled(scale), y.scaled(scale)
}

// pool concatenates two samples sharing a feature count. Rows of x come
// first, so pooled index i belongs to x exactly when i < x.n.
func pool(x, y sample) sample {
	data := make([]float64, 0, len(x.data)+len(y.data))
	data = append(data, x.data...)
	data = append(data, y.data...)
	return sample{data: data, n: x.n + y.n, d: x.d}
}
