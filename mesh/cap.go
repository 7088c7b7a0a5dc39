package mesh

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gocitcom/parallel"
	"github.com/notargets/gocitcom/types"
)

// Cap is one independently iterable patch of the mesh. A rank owns one or
// more caps; seam nodes appear in every cap that touches them.
type Cap struct {
	ID       int
	Topo     Topology
	Shape    *RefShape
	Metric   Metric
	X        [][]float64 // [d][node] computational coordinates
	IEN      [][]int     // [e][a] local node of element node a
	GlobalID []int
	Flags    []types.NodeFlag
	TB       []float64 // Dirichlet temperature per node
	Flux     []float64 // Prescribed flux per node
	Depth    []float64 // Distance below the top surface per node
	Layer    []int     // Vertical layer of each element
	NLayers  int
	Seam     parallel.Seam

	Size   [][]float64     // [e][d] physical edge length
	Area   []float64       // [e] element volume
	GNx    [][][][]float64 // [e][d][a][qp] computational derivatives
	DOmega [][]float64     // [e][qp] quadrature weight x Jacobian x volume factor
	ScaleQ [][][]float64   // [e][qp][d]
	Mass   []float64       // Lumped mass, complete only after AssembleMass

	scatter *sparse.CSR // NNodes x NElems*Nodes
}

func (c *Cap) NNodes() int { return len(c.GlobalID) }
func (c *Cap) NElems() int { return len(c.IEN) }

// Scatter sums element-ordered values (index e*Nodes+a) into the node array.
// dst is overwritten.
func (c *Cap) Scatter(elemental, dst []float64) {
	for i := range dst {
		dst[i] = 0
	}
	c.scatter.MulVecTo(dst, false, elemental)
}

func (c *Cap) buildScatter() {
	var (
		ends = c.Topo.Nodes
		dok  = sparse.NewDOK(c.NNodes(), c.NElems()*ends)
	)
	for e, ien := range c.IEN {
		for a, node := range ien {
			dok.Set(node, e*ends+a, 1)
		}
	}
	c.scatter = dok.ToCSR()
}

// computeGeometry fills the per element derivative, weight and size tables.
func (c *Cap) computeGeometry() (err error) {
	var (
		dim  = c.Topo.Dim
		ends = c.Topo.Nodes
		vpts = c.Topo.QPoints
		rs   = c.Shape
		nel  = c.NElems()
		J    = mat.NewDense(dim, dim, nil)
		Jinv = mat.NewDense(dim, dim, nil)
		x    = make([]float64, dim)
	)
	c.Size = make([][]float64, nel)
	c.Area = make([]float64, nel)
	c.GNx = make([][][][]float64, nel)
	c.DOmega = make([][]float64, nel)
	c.ScaleQ = make([][][]float64, nel)
	for e, ien := range c.IEN {
		c.GNx[e] = make([][][]float64, dim)
		for d := range c.GNx[e] {
			c.GNx[e][d] = make([][]float64, ends)
			for a := range c.GNx[e][d] {
				c.GNx[e][d][a] = make([]float64, vpts)
			}
		}
		c.DOmega[e] = make([]float64, vpts)
		c.ScaleQ[e] = make([][]float64, vpts)
		for q := 0; q < vpts; q++ {
			for i := 0; i < dim; i++ {
				x[i] = 0
				for j := 0; j < dim; j++ {
					var dxdr float64
					for a, node := range ien {
						dxdr += c.X[i][node] * rs.DN[j][a][q]
					}
					J.Set(i, j, dxdr)
				}
				for a, node := range ien {
					x[i] += c.X[i][node] * rs.N[a][q]
				}
			}
			det := mat.Det(J)
			if det <= 0 {
				return fmt.Errorf("%w: element %d of cap %d has Jacobian %g",
					ErrTopologyMismatch, e, c.ID, det)
			}
			if err = Jinv.Inverse(J); err != nil {
				return fmt.Errorf("element %d of cap %d: %w", e, c.ID, err)
			}
			for a := 0; a < ends; a++ {
				for d := 0; d < dim; d++ {
					var g float64
					for j := 0; j < dim; j++ {
						g += rs.DN[j][a][q] * Jinv.At(j, d)
					}
					c.GNx[e][d][a][q] = g
				}
			}
			c.ScaleQ[e][q] = make([]float64, dim)
			c.Metric.Scale(x, c.ScaleQ[e][q])
			c.DOmega[e][q] = rs.W[q] * det * VolumeFactor(c.ScaleQ[e][q])
			c.Area[e] += c.DOmega[e][q]
		}
		// Edge lengths measured at the element center
		c.Size[e] = make([]float64, dim)
		scale := make([]float64, dim)
		for d := 0; d < dim; d++ {
			x[d] = 0
			for a, node := range ien {
				x[d] += c.X[d][node] * rs.NCenter[a]
			}
		}
		c.Metric.Scale(x, scale)
		for d := 0; d < dim; d++ {
			lo, hi := math.Inf(1), math.Inf(-1)
			for _, node := range ien {
				lo, hi = math.Min(lo, c.X[d][node]), math.Max(hi, c.X[d][node])
			}
			c.Size[e][d] = (hi - lo) / scale[d]
		}
	}
	return
}

// FaceGamma returns the face area element at each face quadrature point of
// the bottom or top face of element e. Weights are not included.
func (c *Cap) FaceGamma(e, side int) (dGamma []float64) {
	var (
		dim   = c.Topo.Dim
		rs    = c.Shape
		face  = c.Topo.Faces[side]
		ien   = c.IEN[e]
		x     = make([]float64, dim)
		scale = make([]float64, dim)
	)
	dGamma = make([]float64, c.Topo.FacePoints)
	if dim == 1 {
		dGamma[0] = 1
		return
	}
	T := mat.NewDense(dim, dim-1, nil)
	var G mat.Dense
	for fp := range dGamma {
		for i := 0; i < dim; i++ {
			x[i] = 0
			for fa, a := range face {
				x[i] += c.X[i][ien[a]] * rs.FaceN[fa][fp]
			}
			for k := 0; k < dim-1; k++ {
				var dxdr float64
				for fa, a := range face {
					dxdr += c.X[i][ien[a]] * rs.FaceDN[k][fa][fp]
				}
				T.Set(i, k, dxdr)
			}
		}
		G.Mul(T.T(), T)
		c.Metric.Scale(x, scale)
		jac := math.Sqrt(math.Abs(mat.Det(&G)))
		for k := 0; k < dim-1; k++ {
			jac /= scale[k]
		}
		dGamma[fp] = jac
	}
	return
}
