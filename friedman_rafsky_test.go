package dissim

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func TestFriedmanRafsky_SeparatedClumps(t *testing.T) {
	rng := rand.New(rand.NewPCG(401, 0))
	n := 50
	x := make([][]float64, n)
	y := make([][]float64, n)
	for i := 0; i < n; i++ {
		x[i] = []float64{rng.Float64(), rng.Float64()}
		y[i] = []float64{rng.Float64() + 50, rng.Float64() + 50}
	}

	// Distant clumps join through a single bridging edge, so cross = 1 and
	// the statistic is 1 - 2/(n+m).
	got, err := FriedmanRafsky(x, y)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got, 0.98, floatTol) {
		t.Errorf("FriedmanRafsky = %v, want 0.98", got)
	}
}

func TestFriedmanRafskyMST_EnginesAgree(t *testing.T) {
	rng := rand.New(rand.NewPCG(402, 0))
	x := normalRows(rng, 150, 3)
	y := normalRows(rng, 150, 3)

	// Continuous data has no tied distances, so the spanning tree is unique
	// and every engine must produce the identical statistic.
	engines := []MSTAlgorithm{MSTBrute, MSTBoruvkaKDTree, MSTBoruvkaBallTree}
	results := make([]float64, len(engines))
	for i, algo := range engines {
		got, err := FriedmanRafskyMST(x, y, algo)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", algo, err)
		}
		results[i] = got
	}
	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Errorf("%s = %v, %s = %v; engines disagree",
				engines[i], results[i], engines[0], results[0])
		}
	}
}

func TestFriedmanRafskyMST_AutoMatchesBruteAboveCutover(t *testing.T) {
	rng := rand.New(rand.NewPCG(403, 0))
	x := normalRows(rng, 300, 2)
	y := normalRows(rng, 300, 2)

	// Pooled size 600 sends the auto engine down the Borůvka path.
	auto, err := FriedmanRafsky(x, y)
	if err != nil {
		t.Fatalf("auto: %v", err)
	}
	brute, err := FriedmanRafskyMST(x, y, MSTBrute)
	if err != nil {
		t.Fatalf("brute: %v", err)
	}
	if auto != brute {
		t.Errorf("auto engine = %v, brute = %v", auto, brute)
	}
}

func TestFriedmanRafsky_MixedSamplesNearHalf(t *testing.T) {
	rng := rand.New(rand.NewPCG(404, 0))
	x := normalRows(rng, 100, 2)
	y := normalRows(rng, 100, 2)

	got, err := FriedmanRafsky(x, y)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got < 0.3 || got > 0.7 {
		t.Errorf("FriedmanRafsky = %v, want ~0.5 for well-mixed samples", got)
	}
}

func TestFriedmanRafsky_ScaleInvariant(t *testing.T) {
	rng := rand.New(rand.NewPCG(405, 0))
	x := normalRows(rng, 40, 2)
	y := normalRows(rng, 40, 2)

	scale := func(rows [][]float64) [][]float64 {
		out := make([][]float64, len(rows))
		for i, r := range rows {
			s := make([]float64, len(r))
			for j, v := range r {
				s[j] = 4 * v
			}
			out[i] = s
		}
		return out
	}

	plain, err := FriedmanRafsky(x, y)
	if err != nil {
		t.Fatalf("plain: %v", err)
	}
	scaled, err := FriedmanRafsky(scale(x), scale(y))
	if err != nil {
		t.Fatalf("scaled: %v", err)
	}
	if plain != scaled {
		t.Errorf("FriedmanRafsky not scale invariant: %v vs %v", plain, scaled)
	}
}

func TestFriedmanRafsky_ConstantFeatureIsNaN(t *testing.T) {
	x := [][]float64{{1, 5}, {2, 5}, {3, 5}}
	y := [][]float64{{4, 5}, {6, 5}, {8, 5}}

	got, err := FriedmanRafsky(x, y)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(got) {
		t.Errorf("FriedmanRafsky = %v, want NaN for a constant feature", got)
	}
}

func TestFriedmanRafsky_EmptyInputsAreNaN(t *testing.T) {
	got, err := FriedmanRafsky([][]float64{}, [][]float64{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(got) {
		t.Errorf("FriedmanRafsky = %v, want NaN for empty samples", got)
	}
}

func TestFriedmanRafskyMST_UnknownEngine(t *testing.T) {
	x := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	y := [][]float64{{2, 1}, {4, 3}, {6, 5}}

	got, err := FriedmanRafskyMST(x, y, MSTAlgorithm("kruskal"))
	if err == nil {
		t.Fatal("expected an error for an unknown engine")
	}
	if !math.IsNaN(got) {
		t.Errorf("FriedmanRafskyMST = %v, want NaN alongside the error", got)
	}
}

func TestFriedmanRafsky_ShapeMismatch(t *testing.T) {
	x := [][]float64{{1, 2}, {3, 4}}
	y := [][]float64{{1, 2, 3}, {4, 5, 6}}
	_, err := FriedmanRafsky(x, y)
	var shapeErr *ShapeMismatchError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected ShapeMismatchError, got %v", err)
	}
}
