package mesh

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// GaussLegendre returns the N point Gauss-Legendre nodes and weights on
// [-1,1], from the eigen decomposition of the Jacobi matrix.
func GaussLegendre(N int) (X, W []float64) {
	if N < 1 {
		panic("Gauss-Legendre rule needs at least one point")
	}
	if N == 1 {
		return []float64{0}, []float64{2}
	}
	// Zero main diagonal, off diagonal i/sqrt(4i^2-1)
	JJ := mat.NewSymDense(N, nil)
	for i := 1; i < N; i++ {
		ip := float64(i)
		d1 := ip / math.Sqrt(4*ip*ip-1)
		JJ.SetSym(i-1, i, d1)
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(JJ, true); !ok {
		panic("eigenvalue decomposition failed")
	}
	X = eig.Values(nil)
	VVr := mat.NewDense(N, N, nil)
	eig.VectorsTo(VVr)
	W = make([]float64, N)
	for i := range W {
		v := VVr.At(0, i)
		W[i] = 2 * v * v
	}
	return
}
