package dissim

// NodeData describes a single node in a spatial tree.
type NodeData struct {
	IdxStart, IdxEnd int
	IsLeaf           bool
	Radius           float64 // ball tree radius; 0 for KD-tree
}

// SpatialTree is the read interface shared by KD-trees and Ball trees. The
// nearest-neighbor dissimilarities build one index per sample and query it
// for k-NN distance fields; a tree is read-only after construction and safe
// for concurrent queries.
type SpatialTree interface {
	// QueryKNN finds the k nearest neighbors for each row in queryData.
	// queryData is flat row-major with queryRows rows.
	// Results are sorted by distance, with ties broken by original point
	// index, so equal inputs always produce equal outputs.
	QueryKNN(queryData []float64, queryRows, k int) (indices [][]int, distances [][]float64)

	// Data returns the flat row-major point data owned by the tree.
	Data() []float64

	// NumPoints returns the number of points in the tree.
	NumPoints() int

	// NumFeatures returns the dimensionality of each point.
	NumFeatures() int

	// IdxArray returns the permutation array mapping tree-order positions
	// back to original point indices.
	IdxArray() []int

	// NodeDataArray returns per-node metadata indexed by node id. Ids follow
	// the array-form binary tree layout (children of i at 2i+1 and 2i+2), so
	// the slice may contain zero-valued gap entries where a branch ended
	// early; a gap entry has IdxStart == IdxEnd.
	NodeDataArray() []NodeData
}

// BoruvkaTree extends SpatialTree with the bound queries needed by dual-tree
// Borůvka minimum-spanning-tree construction.
type BoruvkaTree interface {
	SpatialTree

	// MinRdistDual returns a lower bound (in reduced-distance space) on the
	// distance between any point in node1 and any point in node2.
	MinRdistDual(node1, node2 int) float64

	// MinRdistPoint returns a lower bound (in reduced-distance space) on the
	// distance between a point and any point in the given node.
	MinRdistPoint(node int, point []float64) float64

	// NumNodes returns one past the highest node id in use, which is the
	// length of NodeDataArray and the size any per-node array must have.
	NumNodes() int

	// ChildNodes returns the left and right child node indices.
	// Behavior is undefined for leaf nodes.
	ChildNodes(node int) (left, right int)
}
