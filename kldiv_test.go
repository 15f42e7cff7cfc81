package dissim

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// normalColumn draws n observations from N(mu, sigma) as single-feature rows.
func normalColumn(rng *rand.Rand, mu, sigma float64, n int) [][]float64 {
	dist := distuv.Normal{Mu: mu, Sigma: sigma, Src: rng}
	out := make([][]float64, n)
	for i := range out {
		out[i] = []float64{dist.Rand()}
	}
	return out
}

// normalRows draws n standard-normal observations of d features.
func normalRows(rng *rand.Rand, n, d int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		row := make([]float64, d)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
		out[i] = row
	}
	return out
}

// analyticKLDiv integrates p(x)·log(p(x)/q(x)) numerically between the 1e-5
// and 1-1e-5 quantiles common to both distributions.
func analyticKLDiv(p, q distuv.Normal) float64 {
	const a = 1e-5
	lo := math.Max(p.Quantile(a), q.Quantile(a))
	hi := math.Min(p.Quantile(1-a), q.Quantile(1-a))
	return quad.Fixed(func(t float64) float64 {
		pt := p.Prob(t)
		return pt * math.Log(pt/q.Prob(t))
	}, lo, hi, 500, nil, 0)
}

// --- Input handling ---

func TestKLDiv_ShapeInvariance(t *testing.T) {
	rng := rand.New(rand.NewPCG(101, 0))
	xv := make([]float64, 40)
	yv := make([]float64, 50)
	for i := range xv {
		xv[i] = rng.NormFloat64()
	}
	for i := range yv {
		yv[i] = rng.NormFloat64() + 0.5
	}

	// A 1-D sample passed as one row and as one column is the same sample.
	asRow, err := KLDiv([][]float64{xv}, [][]float64{yv}, 1)
	if err != nil {
		t.Fatalf("row form: %v", err)
	}
	asCol, err := KLDiv(Column(xv), Column(yv), 1)
	if err != nil {
		t.Fatalf("column form: %v", err)
	}
	if asRow != asCol {
		t.Errorf("row form %v != column form %v", asRow, asCol)
	}
}

func TestKLDiv_ShapeMismatch(t *testing.T) {
	x := [][]float64{{1, 2}, {3, 4}, {5, 6}, {7, 8}, {9, 10}}
	y := [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {1, 1, 1}, {2, 2, 2}}
	_, err := KLDiv(x, y, 1)
	var shapeErr *ShapeMismatchError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected ShapeMismatchError, got %v", err)
	}
}

func TestKLDiv_TooFewRowsIsNaN(t *testing.T) {
	rng := rand.New(rand.NewPCG(102, 0))
	small := normalColumn(rng, 0, 1, 4)
	big := normalColumn(rng, 0, 1, 20)

	for _, pair := range [][2][][]float64{{small, big}, {big, small}, {small, small}} {
		got, err := KLDiv(pair[0], pair[1], 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !math.IsNaN(got) {
			t.Errorf("expected NaN for undersized sample, got %v", got)
		}
	}

	out, err := KLDivMulti(small, big, []int{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range out {
		if !math.IsNaN(v) {
			t.Errorf("out[%d] = %v, want NaN", i, v)
		}
	}
}

func TestKLDiv_DimensionalityLimit(t *testing.T) {
	rng := rand.New(rand.NewPCG(103, 0))

	// 10 features is over the limit, even when the sample is also short.
	for _, n := range []int{4, 12} {
		x := normalRows(rng, n, 10)
		y := normalRows(rng, n, 10)
		_, err := KLDiv(x, y, 1)
		var dimErr *DimensionalityError
		if !errors.As(err, &dimErr) {
			t.Fatalf("n=%d: expected DimensionalityError, got %v", n, err)
		}
		if dimErr.Features != 10 {
			t.Errorf("n=%d: Features = %d, want 10", n, dimErr.Features)
		}
	}

	// 9 features is still allowed.
	x := normalRows(rng, 30, 9)
	y := normalRows(rng, 30, 9)
	got, err := KLDiv(x, y, 1)
	if err != nil {
		t.Fatalf("9 features: unexpected error %v", err)
	}
	if math.IsNaN(got) {
		t.Error("9 features: expected a value, got NaN")
	}
}

func TestKLDiv_NeighborOrderValidation(t *testing.T) {
	rng := rand.New(rand.NewPCG(104, 0))
	x := normalColumn(rng, 0, 1, 10)
	y := normalColumn(rng, 0, 1, 10)

	if _, err := KLDiv(x, y, 0); err == nil {
		t.Error("k=0: expected an error")
	}
	if _, err := KLDiv(x, y, -3); err == nil {
		t.Error("k=-3: expected an error")
	}
	if _, err := KLDivMulti(x, y, nil); err == nil {
		t.Error("empty neighbor orders: expected an error")
	}
}

func TestKLDiv_NeighborOrderBeyondSampleIsNaN(t *testing.T) {
	rng := rand.New(rand.NewPCG(105, 0))
	x := normalColumn(rng, 0, 1, 6)
	y := normalColumn(rng, 0, 1, 6)

	out, err := KLDivMulti(x, y, []int{1, 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.IsNaN(out[0]) {
		t.Error("k=1 on 6 rows should produce a value, got NaN")
	}
	if !math.IsNaN(out[1]) {
		t.Errorf("k=10 on 6 rows should produce NaN, got %v", out[1])
	}
}

// --- Estimator semantics ---

func TestKLDivMulti_MatchesSingleOrders(t *testing.T) {
	rng := rand.New(rand.NewPCG(106, 0))
	x := normalRows(rng, 300, 2)
	y := normalRows(rng, 280, 2)

	ks := []int{1, 2, 5}
	multi, err := KLDivMulti(x, y, ks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, k := range ks {
		single, err := KLDiv(x, y, k)
		if err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		if multi[i] != single {
			t.Errorf("k=%d: multi %v != single %v", k, multi[i], single)
		}
	}
}

func TestKLDiv_Asymmetric(t *testing.T) {
	rng := rand.New(rand.NewPCG(107, 0))
	x := normalColumn(rng, 0, 1, 200)
	y := normalColumn(rng, 3, 0.5, 200)

	fwd, err := KLDiv(x, y, 1)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	rev, err := KLDiv(y, x, 1)
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if math.IsNaN(fwd) || math.IsNaN(rev) {
		t.Fatalf("expected finite estimates, got %v and %v", fwd, rev)
	}
	if fwd == rev {
		t.Errorf("KLDiv should be asymmetric, got %v both ways", fwd)
	}
}

func TestKLDiv_SelfDivergenceNearZero(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical test")
	}
	rng := rand.New(rand.NewPCG(108, 0))
	const n, trials = 5000, 6

	for _, k := range []int{1, 5} {
		var sum float64
		for trial := 0; trial < trials; trial++ {
			x := normalColumn(rng, 0, 1, n)
			y := normalColumn(rng, 0, 1, n)
			got, err := KLDiv(x, y, k)
			if err != nil {
				t.Fatalf("k=%d trial=%d: %v", k, trial, err)
			}
			sum += got
		}
		mean := sum / trials
		if math.Abs(mean) > 0.2 {
			t.Errorf("k=%d: mean self-divergence = %v, want ~0", k, mean)
		}
	}
}

func TestKLDiv_AccuracyVsAnalytic(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical test")
	}
	rng := rand.New(rand.NewPCG(109, 0))
	p := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}
	q := distuv.Normal{Mu: 0.2, Sigma: 0.9, Src: rng}
	analytic := analyticKLDiv(p, q)

	const n, trials = 500, 200
	sums := make([]float64, 2)
	for trial := 0; trial < trials; trial++ {
		x := make([][]float64, n)
		y := make([][]float64, n)
		for i := 0; i < n; i++ {
			x[i] = []float64{p.Rand()}
			y[i] = []float64{q.Rand()}
		}
		out, err := KLDivMulti(x, y, []int{1, 2})
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		sums[0] += out[0]
		sums[1] += out[1]
	}

	mean := (sums[0] + sums[1]) / (2 * trials)
	if math.Abs(mean-analytic) > 0.1 {
		t.Errorf("mean estimate over k=1,2 = %v, analytic = %v", mean, analytic)
	}
}

func TestKLDiv_DifferentSampleSizes(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical test")
	}
	rng := rand.New(rand.NewPCG(110, 0))
	p := distuv.Normal{Mu: 2, Sigma: 1, Src: rng}
	q := distuv.Normal{Mu: 2.6, Sigma: 1.4, Src: rng}
	analytic := analyticKLDiv(p, q)

	const n, trials = 3000, 10
	draw := func(dist distuv.Normal, count int) [][]float64 {
		out := make([][]float64, count)
		for i := range out {
			out[i] = []float64{dist.Rand()}
		}
		return out
	}

	for _, sizes := range [][2]int{{n, n}, {2 * n, n}, {n, 2 * n}} {
		var sum float64
		for trial := 0; trial < trials; trial++ {
			got, err := KLDiv(draw(p, sizes[0]), draw(q, sizes[1]), 1)
			if err != nil {
				t.Fatalf("sizes %v trial %d: %v", sizes, trial, err)
			}
			sum += got
		}
		mean := sum / trials
		if math.Abs(mean-analytic) > 0.1 {
			t.Errorf("sizes %v: mean estimate = %v, analytic = %v", sizes, mean, analytic)
		}
	}
}

func TestKLDiv_MultivariateNormals(t *testing.T) {
	// The pinned values are what the estimator converges to between
	// N(0, I) and N([0.5, -0.5], [[0.5, 0.1], [0.1, 0.3]]) at this sample
	// size; they match figure 2 of Pérez-Cruz (2008).
	if testing.Short() {
		t.Skip("statistical test")
	}
	rng := rand.New(rand.NewPCG(111, 0))
	sigma := mat.NewSymDense(2, []float64{0.5, 0.1, 0.1, 0.3})
	qdist, ok := distmv.NewNormal([]float64{0.5, -0.5}, sigma, rng)
	if !ok {
		t.Fatal("covariance matrix is not positive definite")
	}

	const n, trials = 10000, 8
	var sumPQ, sumQP float64
	for trial := 0; trial < trials; trial++ {
		p := normalRows(rng, n, 2)
		q := make([][]float64, n)
		for i := range q {
			q[i] = qdist.Rand(nil)
		}

		pq, err := KLDiv(p, q, 1)
		if err != nil {
			t.Fatalf("trial %d forward: %v", trial, err)
		}
		qp, err := KLDiv(q, p, 1)
		if err != nil {
			t.Fatalf("trial %d reverse: %v", trial, err)
		}
		sumPQ += pq
		sumQP += qp
	}

	if got := sumPQ / trials; math.Abs(got-1.39) > 0.1 {
		t.Errorf("mean KLDiv(p, q) = %v, want 1.39 ± 0.1", got)
	}
	if got := sumQP / trials; math.Abs(got-0.62) > 0.1 {
		t.Errorf("mean KLDiv(q, p) = %v, want 0.62 ± 0.1", got)
	}
}
