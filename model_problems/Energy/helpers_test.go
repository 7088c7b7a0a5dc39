package Energy

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/notargets/gocitcom/InputParameters"
	"github.com/notargets/gocitcom/mesh"
	"github.com/notargets/gocitcom/parallel"
	"github.com/notargets/gocitcom/utils"
)

var near = utils.Near

func nullLog() (*logrus.Entry, *test.Hook) {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.TraceLevel)
	return logrus.NewEntry(l), hook
}

func advectionParams() (p *InputParameters.EnergyParameters) {
	p = InputParameters.NewEnergyParameters()
	p.InputDiffusivity = 0
	return
}

func newCaps(t *testing.T, g mesh.Grid, bc mesh.Boundary, ncaps int) (caps []*mesh.Cap) {
	caps, err := mesh.Partition(g, bc, ncaps)
	require.NoError(t, err)
	return
}

// newSerialSolver builds a single rank solver over all caps of the grid.
func newSerialSolver(t *testing.T, p *InputParameters.EnergyParameters, g mesh.Grid,
	bc mesh.Boundary, ncaps int) (s *Solver, hook *test.Hook) {
	caps := newCaps(t, g, bc, ncaps)
	ref, err := NewRefState(caps[0].NLayers, nil, nil)
	require.NoError(t, err)
	log, hook := nullLog()
	s, err = NewSolver(p, caps, ref, nil, parallel.Serial{}, log)
	require.NoError(t, err)
	return
}

// setByGlobal sets a nodal field from a function of the global node id, so
// seam copies agree.
func setByGlobal(st *State, field func(cs *CapState) []float64, f func(gid int) float64) {
	for _, cs := range st.Caps {
		for i, gid := range cs.Cap.GlobalID {
			field(cs)[i] = f(gid)
		}
	}
}

func temperature(cs *CapState) []float64 { return cs.T }

// globalSum adds T over the nodes each cap owns.
func globalSum(st *State) (sum float64) {
	for _, cs := range st.Caps {
		for i, t := range cs.T {
			if !cs.Cap.Flags[i].Skip() {
				sum += t
			}
		}
	}
	return
}
