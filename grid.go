package dissim

import (
	"fmt"
	"math"

	"gorgonia.org/tensor"
)

// GridSource supplies candidate observations for every position of a gridded
// dataset: the access layer between the dispatcher and however the data is
// actually stored. Implementations must be safe for concurrent SampleAt
// calls, since grid positions are evaluated in parallel.
type GridSource interface {
	// GridShape returns the extent of every grid axis, excluding the record
	// axis that SampleAt gathers.
	GridShape() []int

	// NumVars returns the number of variables (features) per observation.
	NumVars() int

	// SampleAt returns the observations at a grid position as record-major
	// rows of NumVars() values each. NaN and ±Inf entries mark missing
	// values; the dispatcher drops rows containing any.
	SampleAt(pos []int) [][]float64
}

// ArrayGrid is an in-memory GridSource over one dense float64 tensor per
// variable. Every tensor shares the shape (records, grid axes...): the
// record axis leads, the way time leads in time-major climate data.
type ArrayGrid struct {
	vars    [][]float64 // flat backing of each variable tensor
	shape   []int       // grid axes, record axis stripped
	records int
	size    int // product of the grid axes
}

// NewArrayGrid wraps the given variable tensors. All tensors must be
// float64, share one shape, and carry at least a record axis and one grid
// axis.
func NewArrayGrid(vars ...*tensor.Dense) (*ArrayGrid, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("dissim: an ArrayGrid needs at least one variable")
	}

	s0 := vars[0].Shape()
	if len(s0) < 2 {
		return nil, fmt.Errorf("dissim: ArrayGrid variables need a record axis and at least one grid axis, got shape %v", s0)
	}

	g := &ArrayGrid{
		vars:    make([][]float64, len(vars)),
		records: s0[0],
	}
	g.shape = make([]int, len(s0)-1)
	copy(g.shape, s0[1:])
	g.size = 1
	for _, ex := range g.shape {
		g.size *= ex
	}

	for i, v := range vars {
		if v.Dtype() != tensor.Float64 {
			return nil, fmt.Errorf("dissim: ArrayGrid variable %d has dtype %v, want float64", i, v.Dtype())
		}
		if !v.Shape().Eq(s0) {
			return nil, fmt.Errorf("dissim: ArrayGrid variables must share one shape, got %v and %v", s0, v.Shape())
		}
		g.vars[i] = v.Data().([]float64)
	}

	return g, nil
}

func (g *ArrayGrid) GridShape() []int {
	out := make([]int, len(g.shape))
	copy(out, g.shape)
	return out
}

func (g *ArrayGrid) NumVars() int { return len(g.vars) }

// SampleAt gathers the full record axis at the given grid position, one row
// per record with one column per variable.
func (g *ArrayGrid) SampleAt(pos []int) [][]float64 {
	flatPos := ravel(pos, g.shape)
	rows := make([][]float64, g.records)
	for t := 0; t < g.records; t++ {
		row := make([]float64, len(g.vars))
		for vi, data := range g.vars {
			row[vi] = data[t*g.size+flatPos]
		}
		rows[t] = row
	}
	return rows
}

// ravel converts per-axis coordinates into a flat row-major index.
func ravel(pos, shape []int) int {
	flat := 0
	for i, ex := range shape {
		flat = flat*ex + pos[i]
	}
	return flat
}

// unravel converts a flat row-major index into per-axis coordinates.
func unravel(flat int, shape []int) []int {
	pos := make([]int, len(shape))
	for i := len(shape) - 1; i >= 0; i-- {
		pos[i] = flat % shape[i]
		flat /= shape[i]
	}
	return pos
}

// compressRows drops rows containing any non-finite value, the row-wise
// analogue of masking invalid entries in the gridded data layer.
func compressRows(rows [][]float64) [][]float64 {
	out := make([][]float64, 0, len(rows))
	for _, r := range rows {
		valid := true
		for _, v := range r {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				valid = false
				break
			}
		}
		if valid {
			out = append(out, r)
		}
	}
	return out
}
