package dissim

import "math"

// boruvkaMST holds the state for dual-tree Borůvka MST construction over the
// plain distance graph of the points in a spatial tree. Each round finds the
// minimum outgoing edge of every component with a single dual-tree traversal,
// then merges; the tree finishes in O(log n) rounds.
//
// Candidate distances and node bounds live in true distance space. The
// tree's MinRdist* bounds arrive in reduced space and are converted before
// comparison.
type boruvkaMST struct {
	tree   BoruvkaTree
	metric DistanceMetric

	numPoints   int
	numFeatures int
	numNodes    int

	// Per-point data (indexed by original point index).
	componentOfPoint  []int
	candidateNeighbor []int
	candidatePoint    []int
	candidateDist     []float64

	// Per-node data.
	componentOfNode []int
	bounds          []float64 // true distance space

	uf         *unionFind
	components []int

	edges    [][3]float64
	numEdges int
}

func newBoruvkaMST(tree BoruvkaTree, metric DistanceMetric) *boruvkaMST {
	n := tree.NumPoints()
	numNodes := tree.NumNodes()

	s := &boruvkaMST{
		tree:        tree,
		metric:      metric,
		numPoints:   n,
		numFeatures: tree.NumFeatures(),
		numNodes:    numNodes,

		componentOfPoint:  make([]int, n),
		candidateNeighbor: make([]int, n),
		candidatePoint:    make([]int, n),
		candidateDist:     make([]float64, n),
		componentOfNode:   make([]int, numNodes),
		bounds:            make([]float64, numNodes),

		uf:    newUnionFind(n),
		edges: make([][3]float64, 0, max(n-1, 0)),
	}

	s.initializeComponents()
	s.seedCandidates()

	return s
}

func (s *boruvkaMST) initializeComponents() {
	for i := 0; i < s.numPoints; i++ {
		s.componentOfPoint[i] = i
		s.candidateNeighbor[i] = -1
		s.candidatePoint[i] = -1
		s.candidateDist[i] = math.MaxFloat64
	}
	for i := 0; i < s.numNodes; i++ {
		s.componentOfNode[i] = -(i + 1) // negative = mixed/unknown
	}
}

// seedCandidates primes each singleton component with its nearest neighbor
// from a single KNN sweep, so the first Borůvka round starts with tight
// bounds instead of a full traversal from scratch.
func (s *boruvkaMST) seedCandidates() {
	n := s.numPoints
	k := min(2, n)

	data := s.tree.Data()
	knnIdx, knnDist := s.tree.QueryKNN(data, n, k)

	for i := 0; i < n; i++ {
		for j := 0; j < len(knnIdx[i]); j++ {
			m := knnIdx[i][j]
			if m == i {
				continue
			}
			if knnDist[i][j] < s.candidateDist[i] {
				s.candidatePoint[i] = i
				s.candidateNeighbor[i] = m
				s.candidateDist[i] = knnDist[i][j]
			}
		}
	}

	s.updateComponents()

	for i := 0; i < s.numNodes; i++ {
		s.bounds[i] = math.MaxFloat64
	}
}

func (s *boruvkaMST) updateComponents() int {
	comps := s.uf.components()

	// For each component, try to add its best candidate edge.
	for _, component := range comps {
		source := s.candidatePoint[component]
		sink := s.candidateNeighbor[component]
		if source == -1 || sink == -1 {
			continue
		}
		srcComp := s.uf.find(source)
		sinkComp := s.uf.find(sink)
		if srcComp == sinkComp {
			s.candidatePoint[component] = -1
			s.candidateNeighbor[component] = -1
			s.candidateDist[component] = math.MaxFloat64
			continue
		}

		s.edges = append(s.edges, [3]float64{float64(source), float64(sink), s.candidateDist[component]})
		s.numEdges++

		s.uf.union(source, sink)
		s.candidateDist[component] = math.MaxFloat64

		if s.numEdges == s.numPoints-1 {
			s.components = s.uf.components()
			return len(s.components)
		}
	}

	// Propagate union-find results to componentOfPoint.
	for i := 0; i < s.numPoints; i++ {
		s.componentOfPoint[i] = s.uf.find(i)
	}

	// Set componentOfNode bottom-up.
	nodeData := s.tree.NodeDataArray()
	idxArray := s.tree.IdxArray()

	for n := s.numNodes - 1; n >= 0; n-- {
		nd := nodeData[n]
		if nd.IdxStart >= nd.IdxEnd && n != 0 {
			continue // gap entry in the array-form tree
		}
		if nd.IsLeaf {
			comp := s.componentOfPoint[idxArray[nd.IdxStart]]
			allSame := true
			for i := nd.IdxStart + 1; i < nd.IdxEnd; i++ {
				if s.componentOfPoint[idxArray[i]] != comp {
					allSame = false
					break
				}
			}
			if allSame {
				s.componentOfNode[n] = comp
			}
		} else {
			left, right := s.tree.ChildNodes(n)
			if s.componentOfNode[left] == s.componentOfNode[right] && s.componentOfNode[left] >= 0 {
				s.componentOfNode[n] = s.componentOfNode[left]
			}
		}
	}

	// Bounds only hold within a single traversal round.
	s.components = s.uf.components()
	for i := 0; i < s.numNodes; i++ {
		s.bounds[i] = math.MaxFloat64
	}

	return len(s.components)
}

func (s *boruvkaMST) dualTreeTraversal(node1, node2 int) {
	// MinRdistDual returns reduced distance; convert to true distance for comparison.
	nodeDist := s.metric.RdistToDist(s.tree.MinRdistDual(node1, node2))

	// Prune: if node distance >= current bound, nothing useful here.
	if nodeDist >= s.bounds[node1] {
		return
	}
	// Prune: if both nodes are in the same component.
	if s.componentOfNode[node1] == s.componentOfNode[node2] && s.componentOfNode[node1] >= 0 {
		return
	}

	nd := s.tree.NodeDataArray()
	node1Info := nd[node1]
	node2Info := nd[node2]

	// Case 1: Both leaves.
	if node1Info.IsLeaf && node2Info.IsLeaf {
		s.processLeafPair(node1, node2)
		return
	}

	// Case 2a: node1 is a leaf, or node2 is larger → descend into node2.
	if node1Info.IsLeaf || (!node2Info.IsLeaf && nodeSize(node2Info) > nodeSize(node1Info)) {
		left, right := s.tree.ChildNodes(node2)
		leftDist := s.metric.RdistToDist(s.tree.MinRdistDual(node1, left))
		rightDist := s.metric.RdistToDist(s.tree.MinRdistDual(node1, right))
		if leftDist < rightDist {
			s.dualTreeTraversal(node1, left)
			s.dualTreeTraversal(node1, right)
		} else {
			s.dualTreeTraversal(node1, right)
			s.dualTreeTraversal(node1, left)
		}
		return
	}

	// Case 2b: node2 is a leaf, or node1 is larger → descend into node1.
	left, right := s.tree.ChildNodes(node1)
	leftDist := s.metric.RdistToDist(s.tree.MinRdistDual(left, node2))
	rightDist := s.metric.RdistToDist(s.tree.MinRdistDual(right, node2))
	if leftDist < rightDist {
		s.dualTreeTraversal(left, node2)
		s.dualTreeTraversal(right, node2)
	} else {
		s.dualTreeTraversal(right, node2)
		s.dualTreeTraversal(left, node2)
	}
}

func nodeSize(nd NodeData) float64 {
	// For KD-tree (radius==0), use point count as size proxy.
	if nd.Radius > 0 {
		return nd.Radius
	}
	return float64(nd.IdxEnd - nd.IdxStart)
}

func (s *boruvkaMST) processLeafPair(node1, node2 int) {
	nd := s.tree.NodeDataArray()
	idxArray := s.tree.IdxArray()
	data := s.tree.Data()
	dims := s.numFeatures

	n1 := nd[node1]
	n2 := nd[node2]

	newUpperBound := 0.0
	newLowerBound := math.MaxFloat64

	for i := n1.IdxStart; i < n1.IdxEnd; i++ {
		p := idxArray[i]
		comp1 := s.componentOfPoint[p]
		pSlice := data[p*dims : (p+1)*dims]

		for j := n2.IdxStart; j < n2.IdxEnd; j++ {
			q := idxArray[j]
			if comp1 == s.componentOfPoint[q] {
				continue
			}

			d := s.metric.Distance(pSlice, data[q*dims:(q+1)*dims])
			if d < s.candidateDist[comp1] {
				s.candidateDist[comp1] = d
				s.candidateNeighbor[comp1] = q
				s.candidatePoint[comp1] = p
			}
		}

		// Every point of node1 contributes its component's candidate to the
		// bound, or the bound would under-estimate components not improved
		// by this particular leaf pair.
		if s.candidateDist[comp1] > newUpperBound {
			newUpperBound = s.candidateDist[comp1]
		}
		if s.candidateDist[comp1] < newLowerBound {
			newLowerBound = s.candidateDist[comp1]
		}
	}

	// A ball node can tighten the bound to lower+diameter; a KD node has no
	// radius, so only the plain upper bound is valid there.
	newBound := newUpperBound
	if r := nd[node1].Radius; r > 0 {
		newBound = math.Min(newUpperBound, newLowerBound+2*r)
	}

	if newBound < s.bounds[node1] {
		s.bounds[node1] = newBound
		s.propagateBoundsUp(node1)
	}
}

func (s *boruvkaMST) propagateBoundsUp(node int) {
	nd := s.tree.NodeDataArray()

	for node > 0 {
		parent := (node - 1) / 2
		left := 2*parent + 1
		right := 2*parent + 2

		parentInfo := nd[parent]
		boundMax := math.Max(s.bounds[left], s.bounds[right])

		newBound := boundMax
		if parentInfo.Radius > 0 {
			boundMin := math.Min(
				s.bounds[left]+2*(parentInfo.Radius-nd[left].Radius),
				s.bounds[right]+2*(parentInfo.Radius-nd[right].Radius),
			)
			if boundMin > 0 {
				newBound = math.Min(boundMax, boundMin)
			}
		}

		if newBound < s.bounds[parent] {
			s.bounds[parent] = newBound
			node = parent
		} else {
			break
		}
	}
}

// spanningTree runs Borůvka rounds until one component remains and returns
// the n-1 MST edges as [from, to, weight].
func (s *boruvkaMST) spanningTree() [][3]float64 {
	numComponents := len(s.components)
	if numComponents == 0 {
		numComponents = s.numPoints
	}

	for numComponents > 1 && s.numEdges < s.numPoints-1 {
		s.dualTreeTraversal(0, 0)
		numComponents = s.updateComponents()
	}

	return s.edges
}
