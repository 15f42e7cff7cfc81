package dissim

import (
	"fmt"
	"math"
)

// MSTAlgorithm selects how the Friedman–Rafsky statistic builds its minimum
// spanning tree. Every choice produces the same statistic; they trade
// construction strategies.
type MSTAlgorithm string

const (
	// MSTAuto picks brute-force Prim for small pooled samples and dual-tree
	// Borůvka over a KD-tree for large ones.
	MSTAuto MSTAlgorithm = "auto"
	// MSTBrute runs Prim's algorithm over the complete distance graph.
	MSTBrute MSTAlgorithm = "brute"
	// MSTBoruvkaKDTree runs dual-tree Borůvka over a KD-tree.
	MSTBoruvkaKDTree MSTAlgorithm = "boruvka_kdtree"
	// MSTBoruvkaBallTree runs dual-tree Borůvka over a ball tree.
	MSTBoruvkaBallTree MSTAlgorithm = "boruvka_balltree"
)

// boruvkaCutover is the pooled sample size where MSTAuto switches from
// brute-force Prim to dual-tree Borůvka.
const boruvkaCutover = 512

// FriedmanRafsky computes the Friedman–Rafsky runs statistic between two
// samples: build the minimum spanning tree of the pooled, standardized
// sample, and count the edges whose endpoints come from different samples.
// Well-mixed samples cross often; separated samples are joined by a single
// bridging edge.
//
// The returned value is 1 - (1 + cross)/(n + m), so it grows as the samples
// separate. Range: [0, 1).
func FriedmanRafsky(x, y [][]float64) (float64, error) {
	return FriedmanRafskyMST(x, y, MSTAuto)
}

// FriedmanRafskyMST is FriedmanRafsky with an explicit spanning-tree engine.
func FriedmanRafskyMST(x, y [][]float64, algo MSTAlgorithm) (float64, error) {
	xs, ys, err := normalizePair(x, y)
	if err != nil {
		return math.NaN(), err
	}
	if xs.n+ys.n == 0 {
		return math.NaN(), nil
	}

	xs, ys = standardizePair(xs, ys)
	pooled := pool(xs, ys)

	// Standardizing a constant feature produces non-finite coordinates.
	// No spanning tree is meaningful over those, and Borůvka's candidate
	// search cannot terminate on them.
	for _, v := range pooled.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return math.NaN(), nil
		}
	}

	edges, err := spanningTreeEdges(pooled, algo)
	if err != nil {
		return math.NaN(), err
	}

	cross := 0
	for _, e := range edges {
		if (int(e[0]) < xs.n) != (int(e[1]) < xs.n) {
			cross++
		}
	}

	return 1 - (1+float64(cross))/float64(pooled.n), nil
}

// spanningTreeEdges resolves MSTAuto into a concrete engine based on the
// pooled sample size, then builds the tree.
func spanningTreeEdges(s sample, algo MSTAlgorithm) ([][3]float64, error) {
	resolved := algo
	if resolved == MSTAuto {
		if s.n >= boruvkaCutover {
			resolved = MSTBoruvkaKDTree
		} else {
			resolved = MSTBrute
		}
	}

	switch resolved {
	case MSTBrute:
		return primMST(s.data, s.n, s.d, EuclideanMetric{}), nil
	case MSTBoruvkaKDTree:
		tree := NewKDTree(s.data, s.n, s.d, EuclideanMetric{}, defaultLeafSize)
		return newBoruvkaMST(tree, EuclideanMetric{}).spanningTree(), nil
	case MSTBoruvkaBallTree:
		tree := NewBallTree(s.data, s.n, s.d, EuclideanMetric{}, defaultLeafSize)
		return newBoruvkaMST(tree, EuclideanMetric{}).spanningTree(), nil
	default:
		return nil, fmt.Errorf("dissim: unknown spanning-tree algorithm %q", string(algo))
	}
}
