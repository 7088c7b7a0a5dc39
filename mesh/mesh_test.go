package mesh

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gocitcom/parallel"
	"github.com/notargets/gocitcom/types"
	"github.com/notargets/gocitcom/utils"
)

func TestGaussLegendre(t *testing.T) {
	{ // Test two point rule
		X, W := GaussLegendre(2)
		assert.InDeltaSlice(t, []float64{-1 / math.Sqrt(3), 1 / math.Sqrt(3)}, X, 1.e-12)
		assert.InDeltaSlice(t, []float64{1, 1}, W, 1.e-12)
	}
	{ // Test three point rule
		X, W := GaussLegendre(3)
		assert.InDeltaSlice(t, []float64{-math.Sqrt(0.6), 0, math.Sqrt(0.6)}, X, 1.e-12)
		assert.InDeltaSlice(t, []float64{5. / 9, 8. / 9, 5. / 9}, W, 1.e-12)
	}
	{ // Test exactness to degree 2N-1
		for N := 1; N < 8; N++ {
			X, W := GaussLegendre(N)
			for p := 0; p < 2*N; p++ {
				var sum float64
				for i := range X {
					sum += W[i] * math.Pow(X[i], float64(p))
				}
				exact := 0.
				if p%2 == 0 {
					exact = 2 / float64(p+1)
				}
				assert.InDelta(t, exact, sum, 1.e-12)
			}
		}
	}
}

func TestTopology(t *testing.T) {
	_, err := NewTopology(4)
	assert.ErrorIs(t, err, ErrTopologyMismatch)
	topo, err := NewTopology(3)
	require.NoError(t, err)
	assert.Equal(t, 8, topo.Nodes)
	assert.Equal(t, 8, topo.QPoints)
	assert.Equal(t, 4, topo.FaceNodes)
	assert.Equal(t, []int{0, 1, 2, 3}, topo.Faces[Bottom])
	assert.Equal(t, []int{4, 5, 6, 7}, topo.Faces[Top])
	fa, ok := topo.FaceLocal(Top, 6)
	assert.True(t, ok)
	assert.Equal(t, 2, fa)
	_, ok = topo.FaceLocal(Bottom, 6)
	assert.False(t, ok)
	topo1, _ := NewTopology(1)
	assert.Equal(t, []int{0}, topo1.Faces[Bottom])
	assert.Equal(t, []int{1}, topo1.Faces[Top])
}

func TestRefShape(t *testing.T) {
	for dim := 1; dim <= 3; dim++ {
		topo, _ := NewTopology(dim)
		rs := NewRefShape(topo)
		for q := 0; q < topo.QPoints; q++ {
			var sum float64
			dsum := make([]float64, dim)
			for a := 0; a < topo.Nodes; a++ {
				sum += rs.N[a][q]
				for d := 0; d < dim; d++ {
					dsum[d] += rs.DN[d][a][q]
				}
			}
			assert.InDelta(t, 1., sum, 1.e-14)
			assert.InDeltaSlice(t, make([]float64, dim), dsum, 1.e-14)
		}
		assert.InDelta(t, math.Pow(2, float64(dim)), floatSum(rs.W), 1.e-14)
		assert.InDeltaSlice(t, utils.ConstArray(1/float64(topo.Nodes), topo.Nodes), rs.NCenter, 1.e-14)
		assert.Equal(t, topo.FacePoints, len(rs.FaceW))
		assert.InDelta(t, math.Pow(2, float64(dim-1)), floatSum(rs.FaceW), 1.e-14)
	}
}

func TestLinePartition(t *testing.T) {
	bc := Boundary{
		Bottom: SurfaceBC{Flag: types.TBZ, Value: 1},
		Top:    SurfaceBC{Flag: types.TBZ, Value: 0},
	}
	caps, err := Partition(NewLine(4, 0, 1), bc, 2)
	require.NoError(t, err)
	require.Len(t, caps, 2)
	c0, c1 := caps[0], caps[1]
	assert.Equal(t, []int{0, 1, 2}, c0.GlobalID)
	assert.Equal(t, []int{2, 3, 4}, c1.GlobalID)
	assert.Equal(t, []int{2}, c0.Seam.Global)
	assert.Equal(t, []int{0}, c1.Seam.Local)
	assert.True(t, c1.Flags[0].Skip())
	assert.False(t, c0.Flags[2].Skip())
	assert.True(t, c0.Flags[0].Dirichlet())
	assert.Equal(t, 1., c0.TB[0])
	assert.True(t, c1.Flags[2].Dirichlet())
	assert.Equal(t, types.TBX, c0.Flags[0]) // Vertical is axis 0 on a line
	assert.Equal(t, []int{0, 1}, c0.Layer)
	assert.Equal(t, []int{2, 3}, c1.Layer)
	assert.Equal(t, 4, c1.NLayers)
	assert.InDelta(t, 0.25, c0.Size[0][0], 1.e-14)
	assert.InDeltaSlice(t, []float64{1, 0.75, 0.5}, c0.Depth, 1.e-14)
	assert.InDelta(t, 0.25, c0.Area[1], 1.e-14)
	{ // Test lumped mass with a serial exchange
		AssembleMass(caps, parallel.Serial{})
		assert.InDeltaSlice(t, []float64{0.125, 0.25, 0.25}, c0.Mass, 1.e-14)
		assert.InDeltaSlice(t, []float64{0.25, 0.25, 0.125}, c1.Mass, 1.e-14)
		var total float64
		for _, c := range caps {
			for n, m := range c.Mass {
				if !c.Flags[n].Skip() {
					total += m
				}
			}
		}
		assert.InDelta(t, 1., total, 1.e-14)
	}
	{ // Test lumped mass with one cap per rank
		var (
			comms = parallel.NewGroup(2)
			fresh [][]*Cap
		)
		for range comms {
			cc, _ := Partition(NewLine(4, 0, 1), bc, 2)
			fresh = append(fresh, cc)
		}
		err = parallel.Launch(comms, func(comm parallel.Collective) error {
			r := comm.Rank()
			AssembleMass(fresh[r][r:r+1], comm)
			return nil
		})
		require.NoError(t, err)
		assert.InDeltaSlice(t, c0.Mass, fresh[0][0].Mass, 1.e-14)
		assert.InDeltaSlice(t, c1.Mass, fresh[1][1].Mass, 1.e-14)
	}
	_, err = Partition(NewLine(4, 0, 1), bc, 5)
	assert.ErrorIs(t, err, ErrTopologyMismatch)
	_, err = Partition(NewLine(4, 1, 0), bc, 1)
	assert.ErrorIs(t, err, ErrTopologyMismatch)
}

func TestBoxGeometry(t *testing.T) {
	caps, err := Partition(NewBox([]int{3, 2}, []float64{0, 0}, []float64{3, 1}), Boundary{}, 1)
	require.NoError(t, err)
	c := caps[0]
	assert.Equal(t, 12, c.NNodes())
	assert.Equal(t, 6, c.NElems())
	assert.InDelta(t, 3., floatSum(c.Area), 1.e-13)
	{ // Test derivatives reproduce a linear field
		for e, ien := range c.IEN {
			for q := 0; q < c.Topo.QPoints; q++ {
				var gx, gz float64
				for a, node := range ien {
					f := 2*c.X[0][node] - 3*c.X[1][node]
					gx += c.GNx[e][0][a][q] * f
					gz += c.GNx[e][1][a][q] * f
				}
				assert.InDelta(t, 2., gx, 1.e-12)
				assert.InDelta(t, -3., gz, 1.e-12)
			}
		}
	}
	{ // Test face lengths
		dG := c.FaceGamma(0, Top)
		var length float64
		for fp, g := range dG {
			length += g * c.Shape.FaceW[fp]
		}
		assert.InDelta(t, 1., length, 1.e-13)
	}
	{ // Test scatter sums element contributions over whatever dst held
		elemental := utils.ConstArray(1, c.NElems()*c.Topo.Nodes)
		dst := utils.ConstArray(7, c.NNodes())
		c.Scatter(elemental, dst)
		assert.Equal(t, 1., dst[0])
		assert.Equal(t, 2., dst[1])
		assert.Equal(t, 4., dst[5])
	}
}

func TestShellGeometry(t *testing.T) {
	var (
		th0, th1 = 0.5, 1.5
		r0, r1   = 0.55, 1.
	)
	caps, err := Partition(NewShell([]int{4, 3}, []float64{th0, r0}, []float64{th1, r1}), Boundary{}, 2)
	require.NoError(t, err)
	var area float64
	for _, c := range caps {
		area += floatSum(c.Area)
	}
	assert.InDelta(t, (th1-th0)*(r1*r1-r0*r0)/2, area, 1.e-12)
	c := caps[0]
	{ // Test physical edge lengths at the element center
		rc := r0 + (r1-r0)/6
		assert.InDelta(t, (th1-th0)/4*rc, c.Size[0][0], 1.e-12)
		assert.InDelta(t, (r1-r0)/3, c.Size[0][1], 1.e-12)
	}
	{ // Test arc length of a top face
		e := len(c.IEN) - 1
		dG := c.FaceGamma(e, Top)
		var length float64
		for fp, g := range dG {
			length += g * c.Shape.FaceW[fp]
		}
		assert.InDelta(t, (th1-th0)/4*r1, length, 1.e-12)
	}
	{ // Test scale factors
		scale := make([]float64, 3)
		Spherical{}.Scale([]float64{math.Pi / 2, 0, 2}, scale)
		assert.InDeltaSlice(t, []float64{0.5, 0.5, 1}, scale, 1.e-14)
		assert.InDelta(t, 4., VolumeFactor(scale), 1.e-14)
	}
	_, err = Partition(NewShell([]int{2, 2, 2}, []float64{0, 0, 0.5}, []float64{1, 1, 1}), Boundary{}, 1)
	assert.ErrorIs(t, err, ErrTopologyMismatch)
}

func floatSum(x []float64) (s float64) {
	for _, v := range x {
		s += v
	}
	return
}

func TestSurfaceMarkers(t *testing.T) {
	bc := Boundary{
		Bottom: SurfaceBC{Flag: types.FBZ, Value: 0.5},
		Top:    SurfaceBC{Flag: types.TBZ, Value: 0},
	}
	{ // Test a 2D box marks the top with the axis 1 temperature marker
		caps, err := Partition(NewBox([]int{1, 1}, []float64{0, 0}, []float64{1, 1}), bc, 1)
		require.NoError(t, err)
		c := caps[0]
		assert.Equal(t, []types.NodeFlag{types.FBZ, types.FBZ, types.TBY, types.TBY}, c.Flags)
		assert.Equal(t, []float64{0.5, 0.5, 0, 0}, c.Flux)
	}
	{ // Test a 3D box keeps TBZ
		caps, err := Partition(NewBox([]int{1, 1, 1}, []float64{0, 0, 0}, []float64{1, 1, 1}), bc, 1)
		require.NoError(t, err)
		c := caps[0]
		for n := 4; n < 8; n++ {
			assert.Equal(t, types.TBZ, c.Flags[n])
		}
		assert.Equal(t, types.FBZ, c.Flags[0])
	}
}
