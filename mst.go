package dissim

import "math"

// primMST computes the minimum spanning tree of the complete distance graph
// over the points using Prim's algorithm, evaluating distances on the fly
// with O(n) memory instead of an n×n matrix. data is flat row-major with n
// rows and dims columns.
//
// Returns (n-1) edges as [from, to, weight] in the order the tree grew.
// Ties choose the lowest-index candidate, so equal inputs always produce the
// same tree. Duplicate points produce zero-weight edges; they are kept, since
// spanning-tree statistics need exactly n-1 edges.
func primMST(data []float64, n, dims int, metric DistanceMetric) [][3]float64 {
	if n <= 1 {
		return nil
	}

	inTree := make([]bool, n)
	currentDistances := make([]float64, n)
	currentSources := make([]int, n)

	for j := 0; j < n; j++ {
		currentDistances[j] = math.Inf(1)
	}

	currentNode := 0
	edges := make([][3]float64, 0, n-1)

	for i := 1; i < n; i++ {
		inTree[currentNode] = true

		newDistance := math.Inf(1)
		sourceNode := 0
		newNode := -1

		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}

			// Relax j through the newly added node, then consider it as
			// the next attachment.
			d := metric.Distance(
				data[currentNode*dims:(currentNode+1)*dims],
				data[j*dims:(j+1)*dims],
			)
			if d < currentDistances[j] {
				currentDistances[j] = d
				currentSources[j] = currentNode
			}
			if currentDistances[j] < newDistance {
				newDistance = currentDistances[j]
				sourceNode = currentSources[j]
				newNode = j
			}
		}

		// No finite candidate (NaN distances from degenerate input): attach
		// the first remaining node so the walk still terminates with n-1 edges.
		if newNode == -1 {
			for j := 0; j < n; j++ {
				if !inTree[j] {
					newNode = j
					sourceNode = currentSources[j]
					newDistance = currentDistances[j]
					break
				}
			}
		}

		edges = append(edges, [3]float64{
			float64(sourceNode),
			float64(newNode),
			newDistance,
		})

		currentNode = newNode
	}

	return edges
}
