package mesh

// RefShape holds the reference element tables: basis values and derivatives
// at the volume and face quadrature points and at the element center.
type RefShape struct {
	Topo    Topology
	R       [][]float64   // [qp][d] reference coordinates
	W       []float64     // [qp]
	N       [][]float64   // [a][qp]
	DN      [][][]float64 // [d][a][qp]
	NCenter []float64     // [a]
	FaceR   [][]float64   // [fp][d] over the Dim-1 tangential axes
	FaceW   []float64     // [fp]
	FaceN   [][]float64   // [fa][fp]
	FaceDN  [][][]float64 // [d][fa][fp]
}

func NewRefShape(topo Topology) (rs *RefShape) {
	var (
		dim    = topo.Dim
		gx, gw = GaussLegendre(2)
	)
	rs = &RefShape{Topo: topo}
	rs.R, rs.W = tensorRule(dim, gx, gw)
	rs.N, rs.DN = basisTables(dim, rs.R)
	center, _ := basisTables(dim, [][]float64{make([]float64, dim)})
	rs.NCenter = make([]float64, topo.Nodes)
	for a := range rs.NCenter {
		rs.NCenter[a] = center[a][0]
	}
	rs.FaceR, rs.FaceW = tensorRule(dim-1, gx, gw)
	rs.FaceN, rs.FaceDN = basisTables(dim-1, rs.FaceR)
	return
}

// tensorRule builds the product rule with point q taking gx[bit d of q] on axis d.
func tensorRule(dim int, gx, gw []float64) (R [][]float64, W []float64) {
	np := 1
	for d := 0; d < dim; d++ {
		np *= len(gx)
	}
	R = make([][]float64, np)
	W = make([]float64, np)
	for q := 0; q < np; q++ {
		R[q] = make([]float64, dim)
		W[q] = 1
		qq := q
		for d := 0; d < dim; d++ {
			R[q][d] = gx[qq%len(gx)]
			W[q] *= gw[qq%len(gx)]
			qq /= len(gx)
		}
	}
	return
}

// basisTables evaluates N_a = prod_d (1 + s_d r_d)/2 and its reference
// derivatives at each point.
func basisTables(dim int, R [][]float64) (N [][]float64, DN [][][]float64) {
	var (
		nodes = 1 << dim
		np    = len(R)
	)
	N = make([][]float64, nodes)
	DN = make([][][]float64, dim)
	for d := range DN {
		DN[d] = make([][]float64, nodes)
	}
	factor := make([]float64, dim)
	for a := 0; a < nodes; a++ {
		N[a] = make([]float64, np)
		for d := 0; d < dim; d++ {
			DN[d][a] = make([]float64, np)
		}
		for q, r := range R {
			prod := 1.
			for d := 0; d < dim; d++ {
				factor[d] = 0.5 * (1 + Sign(a, d)*r[d])
				prod *= factor[d]
			}
			N[a][q] = prod
			for k := 0; k < dim; k++ {
				dprod := 0.5 * Sign(a, k)
				for d := 0; d < dim; d++ {
					if d != k {
						dprod *= factor[d]
					}
				}
				DN[k][a][q] = dprod
			}
		}
	}
	return
}
