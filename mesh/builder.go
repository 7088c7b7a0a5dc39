package mesh

import (
	"fmt"
	"math"

	"github.com/notargets/gocitcom/types"
	"github.com/notargets/gocitcom/utils"
)

// Grid is a structured block of elements. The last axis is vertical.
type Grid struct {
	Elems  []int     // Elements per axis
	Lo, Hi []float64 // Coordinate bounds per axis
	Metric Metric
}

// SurfaceBC is the condition on the bottom or top surface: a Dirichlet
// temperature (any of TBX, TBY, TBZ), a prescribed flux (FBZ), or nothing.
type SurfaceBC struct {
	Flag  types.NodeFlag
	Value float64
}

type Boundary struct {
	Bottom, Top SurfaceBC
}

func NewLine(nz int, lo, hi float64) Grid {
	return Grid{Elems: []int{nz}, Lo: []float64{lo}, Hi: []float64{hi}, Metric: Cartesian{}}
}

func NewBox(elems []int, lo, hi []float64) Grid {
	return Grid{Elems: elems, Lo: lo, Hi: hi, Metric: Cartesian{}}
}

// NewShell is a spherical patch with axes (colatitude, [longitude,] radius).
func NewShell(elems []int, lo, hi []float64) Grid {
	return Grid{Elems: elems, Lo: lo, Hi: hi, Metric: Spherical{}}
}

func (g Grid) Dim() int { return len(g.Elems) }

func (g Grid) Validate() (err error) {
	dim := g.Dim()
	if dim < 1 || dim > 3 {
		return fmt.Errorf("%w: grid dimension %d", ErrTopologyMismatch, dim)
	}
	if len(g.Lo) != dim || len(g.Hi) != dim {
		return fmt.Errorf("%w: %d axes but %d/%d bounds", ErrTopologyMismatch, dim, len(g.Lo), len(g.Hi))
	}
	for d := 0; d < dim; d++ {
		if g.Elems[d] < 1 {
			return fmt.Errorf("%w: axis %d has %d elements", ErrTopologyMismatch, d, g.Elems[d])
		}
		if !(g.Hi[d] > g.Lo[d]) {
			return fmt.Errorf("%w: axis %d bounds [%g,%g]", ErrTopologyMismatch, d, g.Lo[d], g.Hi[d])
		}
	}
	if _, ok := g.Metric.(Spherical); ok {
		if g.Lo[dim-1] <= 0 {
			return fmt.Errorf("%w: inner radius %g", ErrTopologyMismatch, g.Lo[dim-1])
		}
		if dim > 2 && (g.Lo[0] <= 0 || g.Hi[0] >= math.Pi) {
			return fmt.Errorf("%w: colatitude range [%g,%g] touches a pole",
				ErrTopologyMismatch, g.Lo[0], g.Hi[0])
		}
	}
	return
}

// Nodes is the node count along each axis.
func (g Grid) Nodes() (n []int) {
	n = make([]int, g.Dim())
	for d, ne := range g.Elems {
		n[d] = ne + 1
	}
	return
}

func (g Grid) coord(d, i int) float64 {
	return g.Lo[d] + (g.Hi[d]-g.Lo[d])*float64(i)/float64(g.Elems[d])
}

// Partition splits the grid along axis 0 into ncaps caps. A seam node is
// owned by the lower numbered cap; the other copies are flagged SKIP.
func Partition(g Grid, bc Boundary, ncaps int) (caps []*Cap, err error) {
	if err = g.Validate(); err != nil {
		return
	}
	if ncaps < 1 || ncaps > g.Elems[0] {
		return nil, fmt.Errorf("%w: %d caps for %d elements along axis 0",
			ErrTopologyMismatch, ncaps, g.Elems[0])
	}
	topo, err := NewTopology(g.Dim())
	if err != nil {
		return
	}
	var (
		rs = NewRefShape(topo)
		pm = utils.NewPartitionMap(ncaps, g.Elems[0])
	)
	caps = make([]*Cap, ncaps)
	for id := 0; id < ncaps; id++ {
		e0, e1 := pm.GetBucketRange(id)
		if caps[id], err = newCap(g, bc, topo, rs, id, e0, e1); err != nil {
			return nil, err
		}
	}
	return
}

func newCap(g Grid, bc Boundary, topo Topology, rs *RefShape, id, e0, e1 int) (c *Cap, err error) {
	var (
		dim     = g.Dim()
		vert    = dim - 1
		gn      = g.Nodes()
		ln      = append([]int{}, gn...)
		le      = append([]int{}, g.Elems...)
		nno     = 1
		nel     = 1
		lidx    = make([]int, dim)
		lastCap = e1 == g.Elems[0]
	)
	ln[0], le[0] = e1-e0+1, e1-e0
	for d := 0; d < dim; d++ {
		nno *= ln[d]
		nel *= le[d]
	}
	c = &Cap{
		ID:       id,
		Topo:     topo,
		Shape:    rs,
		Metric:   g.Metric,
		X:        make([][]float64, dim),
		IEN:      make([][]int, nel),
		GlobalID: make([]int, nno),
		Flags:    make([]types.NodeFlag, nno),
		TB:       make([]float64, nno),
		Flux:     make([]float64, nno),
		Depth:    make([]float64, nno),
		Layer:    make([]int, nel),
		NLayers:  g.Elems[vert],
	}
	for d := range c.X {
		c.X[d] = make([]float64, nno)
	}
	// Nodes, axis 0 fastest
	for n := 0; n < nno; n++ {
		unflatten(n, ln, lidx)
		lidx[0] += e0
		gid := flatten(lidx, gn)
		c.GlobalID[n] = gid
		for d := 0; d < dim; d++ {
			c.X[d][n] = g.coord(d, lidx[d])
		}
		c.Depth[n] = g.Hi[vert] - c.X[vert][n]
		switch lidx[vert] {
		case 0:
			c.applyBC(n, vert, bc.Bottom)
		case g.Elems[vert]:
			c.applyBC(n, vert, bc.Top)
		}
		lidx[0] -= e0
		if (lidx[0] == 0 && e0 > 0) || (lidx[0] == ln[0]-1 && !lastCap) {
			c.Seam.Local = append(c.Seam.Local, n)
			c.Seam.Global = append(c.Seam.Global, gid)
		}
		if lidx[0] == 0 && e0 > 0 {
			c.Flags[n] |= types.SKIP
		}
	}
	// Elements
	for e := 0; e < nel; e++ {
		unflatten(e, le, lidx)
		c.Layer[e] = lidx[vert]
		if vert == 0 {
			c.Layer[e] += e0
		}
		c.IEN[e] = make([]int, topo.Nodes)
		corner := make([]int, dim)
		for a := 0; a < topo.Nodes; a++ {
			for d := 0; d < dim; d++ {
				corner[d] = lidx[d] + (a>>d)&1
			}
			c.IEN[e][a] = flatten(corner, ln)
		}
	}
	c.buildScatter()
	if err = c.computeGeometry(); err != nil {
		return nil, err
	}
	return
}

// applyBC marks a surface node. A fixed temperature is carried by the marker
// of the vertical axis whatever marker the surface was given.
func (c *Cap) applyBC(n, vert int, bc SurfaceBC) {
	switch {
	case bc.Flag.Dirichlet():
		c.Flags[n] |= bc.Flag&^(types.TBX|types.TBY|types.TBZ) | types.TemperatureBC(vert)
		c.TB[n] = bc.Value
	case bc.Flag.Flux():
		c.Flags[n] |= bc.Flag
		c.Flux[n] = bc.Value
	default:
		c.Flags[n] |= bc.Flag
	}
}

func flatten(idx, n []int) (k int) {
	for d := len(n) - 1; d >= 0; d-- {
		k = k*n[d] + idx[d]
	}
	return
}

func unflatten(k int, n, idx []int) {
	for d := range n {
		idx[d] = k % n[d]
		k /= n[d]
	}
}
