package dissim

// unionFind is a disjoint-set structure tracking the connected components of
// the spanning forest during Borůvka rounds. It uses union by rank and path
// halving, and keeps a root flag per element so the live component roots can
// be listed without a full scan of parents.
type unionFind struct {
	parent      []int
	rank        []int
	isComponent []bool // true if this element is a component root
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	rank := make([]int, n)
	isComp := make([]bool, n)
	for i := range parent {
		parent[i] = i
		isComp[i] = true
	}
	return &unionFind{parent: parent, rank: rank, isComponent: isComp}
}

func (uf *unionFind) find(x int) int {
	// Path halving: every other node points to its grandparent.
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(x, y int) {
	xr := uf.find(x)
	yr := uf.find(y)
	if xr == yr {
		return
	}
	if uf.rank[xr] < uf.rank[yr] {
		uf.parent[xr] = yr
		uf.isComponent[xr] = false
	} else if uf.rank[xr] > uf.rank[yr] {
		uf.parent[yr] = xr
		uf.isComponent[yr] = false
	} else {
		uf.parent[yr] = xr
		uf.isComponent[yr] = false
		uf.rank[xr]++
	}
}

// components returns the list of current component root indices.
func (uf *unionFind) components() []int {
	var out []int
	for i, v := range uf.isComponent {
		if v {
			out = append(out, i)
		}
	}
	return out
}
