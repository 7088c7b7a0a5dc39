package Energy

// Kinematics supplies the squared strain rate invariant of each element of
// a cap.
type Kinematics interface {
	StrainRateSquared(cs *CapState, dst []float64)
}

// QuadratureStrainRate averages 2 e:e over the quadrature points of each
// element, with e the symmetric velocity gradient. Curvature terms of the
// spherical metric are left out.
type QuadratureStrainRate struct{}

func (QuadratureStrainRate) StrainRateSquared(cs *CapState, dst []float64) {
	var (
		c    = cs.Cap
		dim  = c.Topo.Dim
		vpts = c.Topo.QPoints
		grad = make([][]float64, dim)
	)
	for i := range grad {
		grad[i] = make([]float64, dim)
	}
	for e, ien := range c.IEN {
		var sum float64
		for q := 0; q < vpts; q++ {
			scale := c.ScaleQ[e][q]
			for i := 0; i < dim; i++ {
				for j := 0; j < dim; j++ {
					var g float64
					for a, node := range ien {
						g += c.GNx[e][j][a][q] * cs.V[i][node]
					}
					grad[i][j] = g * scale[j]
				}
			}
			for i := 0; i < dim; i++ {
				for j := 0; j < dim; j++ {
					eij := 0.5 * (grad[i][j] + grad[j][i])
					sum += 2 * eij * eij
				}
			}
		}
		dst[e] = sum / float64(vpts)
	}
}
