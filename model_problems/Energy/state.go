package Energy

import (
	"math"

	"github.com/notargets/gocitcom/mesh"
	"github.com/notargets/gocitcom/parallel"
)

// CapState holds the fields living on one cap.
type CapState struct {
	Cap   *mesh.Cap
	T     []float64   // Temperature
	Tdot  []float64   // Time derivative of T
	DTdot []float64   // Correction to Tdot from the last assembly
	V     [][]float64 // [d][node] velocity, physical components
	EVi   [][]float64 // [e][qp] effective viscosity
	Comp  []float64   // [e] composition, used with enriched heat production
	Phase [][]float64 // [horizon][node] phase fraction
	// Per element heating from the last call to HeatSources.Process
	HeatVisc, HeatAdi, HeatLatent []float64

	elemental []float64 // [e*Nodes+a] residual scratch
	t1, tdot1 []float64 // Snapshot for rollback
	strainSqr []float64
}

// State is the simulation state container. It owns every field; the
// integrator, assembler and filter mutate it in turn.
type State struct {
	Caps       []*CapState
	Elapsed    float64
	Timestep   float64
	DtReduced  float64 // Reduction left by the last step's rollbacks
	TotalSteps int
	Rollbacks  int // Rollbacks needed by the last step
	Tmax       float64
	KeepGoing  bool
}

func NewState(caps []*mesh.Cap, nHorizons int) (st *State) {
	st = &State{
		Caps:      make([]*CapState, len(caps)),
		DtReduced: 1,
		KeepGoing: true,
	}
	for n, c := range caps {
		var (
			nno  = c.NNodes()
			nel  = c.NElems()
			vpts = c.Topo.QPoints
		)
		cs := &CapState{
			Cap:        c,
			T:          make([]float64, nno),
			Tdot:       make([]float64, nno),
			DTdot:      make([]float64, nno),
			V:          make([][]float64, c.Topo.Dim),
			EVi:        make([][]float64, nel),
			Comp:       make([]float64, nel),
			Phase:      make([][]float64, nHorizons),
			HeatVisc:   make([]float64, nel),
			HeatAdi:    make([]float64, nel),
			HeatLatent: make([]float64, nel),
			elemental:  make([]float64, nel*c.Topo.Nodes),
			t1:         make([]float64, nno),
			tdot1:      make([]float64, nno),
			strainSqr:  make([]float64, nel),
		}
		for d := range cs.V {
			cs.V[d] = make([]float64, nno)
		}
		for e := range cs.EVi {
			cs.EVi[e] = make([]float64, vpts)
		}
		for h := range cs.Phase {
			cs.Phase[h] = make([]float64, nno)
		}
		for e := range cs.HeatLatent {
			cs.HeatLatent[e] = 1
		}
		st.Caps[n] = cs
	}
	return
}

func (st *State) snapshot() {
	for _, cs := range st.Caps {
		copy(cs.t1, cs.T)
		copy(cs.tdot1, cs.Tdot)
	}
}

func (st *State) restore() {
	for _, cs := range st.Caps {
		copy(cs.T, cs.t1)
		copy(cs.Tdot, cs.tdot1)
	}
}

// GlobalTmax is the largest temperature over all caps of all ranks. A NaN
// anywhere makes the result NaN.
func (st *State) GlobalTmax(comm parallel.Collective) float64 {
	tmax := math.Inf(-1)
	for _, cs := range st.Caps {
		for _, t := range cs.T {
			if math.IsNaN(t) {
				tmax = t
				break
			}
			tmax = math.Max(tmax, t)
		}
		if math.IsNaN(tmax) {
			break
		}
	}
	return comm.MaxFloat(tmax)
}

func (st *State) seams() (seams []parallel.Seam, values [][]float64) {
	values = make([][]float64, len(st.Caps))
	for n, cs := range st.Caps {
		values[n] = cs.DTdot
	}
	return mesh.Seams(st.caps()), values
}

func (st *State) caps() (caps []*mesh.Cap) {
	caps = make([]*mesh.Cap, len(st.Caps))
	for n, cs := range st.Caps {
		caps[n] = cs.Cap
	}
	return
}
