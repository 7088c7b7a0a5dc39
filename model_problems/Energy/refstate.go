package Energy

import (
	"fmt"

	"github.com/notargets/gocitcom/InputParameters"
)

// RefState is the reference profile, one entry per vertical level (layers+1).
type RefState struct {
	Expansivity []float64
	Density     []float64
}

// NewRefState uses the given profiles, or a uniform unit profile when both
// are empty.
func NewRefState(nLayers int, expansivity, density []float64) (rs RefState, err error) {
	levels := nLayers + 1
	if len(expansivity) == 0 && len(density) == 0 {
		rs = RefState{Expansivity: make([]float64, levels), Density: make([]float64, levels)}
		for i := 0; i < levels; i++ {
			rs.Expansivity[i], rs.Density[i] = 1, 1
		}
		return
	}
	if len(expansivity) != levels || len(density) != levels {
		err = fmt.Errorf("%w: reference state needs %d levels, have %d expansivity and %d density",
			InputParameters.ErrInvalidParameter, levels, len(expansivity), len(density))
		return
	}
	rs = RefState{Expansivity: expansivity, Density: density}
	return
}

// LayerFactor is 0.25 (a_ez + a_ez+1)(rho_ez + rho_ez+1) for layer ez.
func (rs RefState) LayerFactor(ez int) float64 {
	return 0.25 * (rs.Expansivity[ez] + rs.Expansivity[ez+1]) * (rs.Density[ez] + rs.Density[ez+1])
}
