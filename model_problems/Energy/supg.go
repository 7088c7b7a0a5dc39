package Energy

import "math"

// StabilizationCoefficient is the upwind weight of one element. uc is the
// velocity at the element center and size the physical edge lengths. Below a
// squared speed of 1e-6 there is no upwinding.
func StabilizationCoefficient(uc, size []float64, diffusivity float64) (adiff float64) {
	var (
		twodiff = 2 * diffusivity
		unorm   float64
		sum     float64
	)
	for d, u := range uc {
		flux := math.Abs(u * size[d])
		if flux > twodiff {
			sum += flux * (1 - twodiff/flux)
		}
		unorm += u * u
	}
	if unorm > 1.e-6 {
		adiff = sum / (2 * unorm)
	}
	return
}

// PetrovGalerkin fills PG[a][q] = N[a][q] + adiff sum_d u[d][q] GNx[d][a][q] scale[q][d].
func PetrovGalerkin(PG, N [][]float64, GNx [][][]float64, u, scale [][]float64, adiff float64) {
	for a := range PG {
		if adiff == 0 {
			copy(PG[a], N[a])
			continue
		}
		for q := range PG[a] {
			var prod float64
			for d := range GNx {
				prod += u[d][q] * GNx[d][a][q] * scale[q][d]
			}
			PG[a][q] = N[a][q] + adiff*prod
		}
	}
}
