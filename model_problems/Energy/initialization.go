package Energy

import (
	"math"

	"github.com/notargets/gocitcom/InputParameters"
	"github.com/notargets/gocitcom/mesh"
)

// InitializeSolution sets the conductive temperature profile plus a single
// mode perturbation, the uniform viscosity, and composition in the bottom
// layer when heat production is enriched.
func InitializeSolution(st *State, g mesh.Grid, params *InputParameters.EnergyParameters) {
	var (
		dim  = g.Dim()
		vert = dim - 1
	)
	for _, cs := range st.Caps {
		c := cs.Cap
		for i := range cs.T {
			z := normalized(g, vert, c.X[vert][i])
			T := params.BotTBCVal + (params.TopTBCVal-params.BotTBCVal)*z
			if dim > 1 {
				x := normalized(g, 0, c.X[0][i])
				T += params.PerturbMag * math.Cos(math.Pi*x) * math.Sin(math.Pi*z)
			}
			cs.T[i] = T
		}
		for e := range cs.EVi {
			for q := range cs.EVi[e] {
				cs.EVi[e][q] = params.Visc0
			}
			if params.TracerEnriched && c.Layer[e] == 0 {
				cs.Comp[e] = 1
			}
		}
	}
	ConformBCs(st)
}

// ConvectionCell prescribes the velocity of one overturning cell in the
// plane of axis 0 and the vertical axis, from the stream function
// A sin(pi x) sin(pi z) in normalized coordinates. A 1D mesh gets a uniform
// upward velocity A.
func ConvectionCell(st *State, g mesh.Grid, amplitude float64) {
	var (
		dim  = g.Dim()
		vert = dim - 1
	)
	for _, cs := range st.Caps {
		c := cs.Cap
		for i := range cs.T {
			for d := range cs.V {
				cs.V[d][i] = 0
			}
			if dim == 1 {
				cs.V[0][i] = amplitude
				continue
			}
			var (
				x = normalized(g, 0, c.X[0][i])
				z = normalized(g, vert, c.X[vert][i])
			)
			cs.V[0][i] = amplitude * math.Sin(math.Pi*x) * math.Cos(math.Pi*z)
			cs.V[vert][i] = -amplitude * math.Cos(math.Pi*x) * math.Sin(math.Pi*z)
		}
	}
}

func normalized(g mesh.Grid, d int, x float64) float64 {
	return (x - g.Lo[d]) / (g.Hi[d] - g.Lo[d])
}
