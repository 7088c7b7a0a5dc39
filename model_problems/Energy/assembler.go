package Energy

import (
	"github.com/sirupsen/logrus"

	"github.com/notargets/gocitcom/InputParameters"
	"github.com/notargets/gocitcom/mesh"
	"github.com/notargets/gocitcom/parallel"
)

// Assembler builds the SUPG residual of the energy equation and turns it
// into a correction to Tdot.
type Assembler struct {
	topo   mesh.Topology
	params *InputParameters.EnergyParameters
	comm   parallel.Collective
	log    *logrus.Entry
	// Element scratch, sized by the topology
	pg, u, tx [][]float64 // [a][qp], [d][qp], [d][qp]
	dT, uc    []float64
	eres      []float64
	dGamma    [2][]float64
	kappa     float64
}

type residualKernel func(cs *CapState, e int, Q float64)

func NewAssembler(topo mesh.Topology, params *InputParameters.EnergyParameters,
	comm parallel.Collective, log *logrus.Entry) (as *Assembler) {
	as = &Assembler{
		topo:   topo,
		params: params,
		comm:   comm,
		log:    log,
		pg:     make([][]float64, topo.Nodes),
		u:      make([][]float64, topo.Dim),
		tx:     make([][]float64, topo.Dim),
		dT:     make([]float64, topo.QPoints),
		uc:     make([]float64, topo.Dim),
		eres:   make([]float64, topo.Nodes),
	}
	for a := range as.pg {
		as.pg[a] = make([]float64, topo.QPoints)
	}
	for d := 0; d < topo.Dim; d++ {
		as.u[d] = make([]float64, topo.QPoints)
		as.tx[d] = make([]float64, topo.QPoints)
	}
	return
}

// Assemble leaves the Tdot correction in DTdot of every cap: the residual is
// scattered, completed across seams, then divided by the lumped mass.
// Dirichlet nodes get exactly zero. It is a collective call.
func (as *Assembler) Assemble(st *State, diffusivity float64) {
	as.kappa = diffusivity
	kernel := residualKernel(as.advectiveResidual)
	if diffusivity != 0 {
		kernel = as.diffusiveResidual
	}
	for _, cs := range st.Caps {
		ends := cs.Cap.Topo.Nodes
		for e := range cs.Cap.IEN {
			as.elementTerms(cs, e, diffusivity)
			kernel(cs, e, as.heatProduction(cs, e))
			as.fluxFaces(cs, e)
			copy(cs.elemental[e*ends:(e+1)*ends], as.eres)
		}
		cs.Cap.Scatter(cs.elemental, cs.DTdot)
	}
	as.comm.ExchangeNodes(st.seams())
	for _, cs := range st.Caps {
		c := cs.Cap
		for i := range cs.DTdot {
			if c.Flags[i].Dirichlet() {
				cs.DTdot[i] = 0
			} else {
				cs.DTdot[i] /= c.Mass[i]
			}
		}
	}
}

// elementTerms evaluates the Petrov-Galerkin weights and the quadrature point
// values of velocity, Tdot and the scaled temperature gradient.
func (as *Assembler) elementTerms(cs *CapState, e int, diffusivity float64) {
	var (
		c     = cs.Cap
		rs    = c.Shape
		ien   = c.IEN[e]
		gnx   = c.GNx[e]
		scale = c.ScaleQ[e]
	)
	for d := range as.uc {
		as.uc[d] = 0
		for a, node := range ien {
			as.uc[d] += rs.NCenter[a] * cs.V[d][node]
		}
	}
	for q := range as.dT {
		as.dT[q] = 0
		for d := range as.u {
			as.u[d][q], as.tx[d][q] = 0, 0
		}
	}
	for a, node := range ien {
		var (
			T  = cs.T[node]
			DT = cs.Tdot[node]
		)
		if c.Flags[node].Dirichlet() {
			DT = 0
		}
		for q := range as.dT {
			sfn := rs.N[a][q]
			as.dT[q] += DT * sfn
			for d := range as.u {
				as.tx[d][q] += gnx[d][a][q] * T * scale[q][d]
				as.u[d][q] += cs.V[d][node] * sfn
			}
		}
	}
	adiff := StabilizationCoefficient(as.uc, c.Size[e], diffusivity)
	PetrovGalerkin(as.pg, rs.N, gnx, as.u, scale, adiff)
}

// heatProduction is Q0, optionally enriched by composition, plus viscous
// minus adiabatic heating, times the latent factor.
func (as *Assembler) heatProduction(cs *CapState, e int) (Q float64) {
	p := as.params
	Q = p.Q0
	if p.TracerEnriched {
		Q = Q*(1-cs.Comp[e]) + cs.Comp[e]*p.Q0Enriched
	}
	Q += cs.HeatVisc[e]
	Q -= cs.HeatAdi[e]
	Q *= cs.HeatLatent[e]
	return
}

func (as *Assembler) advectiveResidual(cs *CapState, e int, Q float64) {
	dO := cs.Cap.DOmega[e]
	for j := range as.eres {
		as.eres[j] = 0
		for q, w := range dO {
			adv := as.dT[q] - Q
			for d := range as.u {
				adv += as.u[d][q] * as.tx[d][q]
			}
			as.eres[j] -= as.pg[j][q] * w * adv
		}
	}
}

func (as *Assembler) diffusiveResidual(cs *CapState, e int, Q float64) {
	var (
		dO    = cs.Cap.DOmega[e]
		gnx   = cs.Cap.GNx[e]
		scale = cs.Cap.ScaleQ[e]
	)
	for j := range as.eres {
		as.eres[j] = 0
		for q, w := range dO {
			adv := as.dT[q] - Q
			var diff float64
			for d := range as.u {
				adv += as.u[d][q] * as.tx[d][q]
				diff += gnx[d][j][q] * as.tx[d][q] * scale[q][d]
			}
			as.eres[j] -= as.pg[j][q]*w*adv + as.kappa*w*diff
		}
	}
}

// fluxFaces adds the prescribed flux through the bottom or top face for every
// flux flagged node of element e. Face tables are built on first use.
func (as *Assembler) fluxFaces(cs *CapState, e int) {
	var (
		c   = cs.Cap
		rs  = c.Shape
		ien = c.IEN[e]
	)
	as.dGamma[mesh.Bottom], as.dGamma[mesh.Top] = nil, nil
	for a, node := range ien {
		if !c.Flags[node].Flux() {
			continue
		}
		side := as.topo.Side(a)
		aid, ok := as.topo.FaceLocal(side, a)
		if !ok {
			as.log.WithFields(logrus.Fields{
				"cap": c.ID, "element": e, "node": a, "side": side,
			}).Warn("flux node not found on its face, skipping")
			continue
		}
		if as.dGamma[side] == nil {
			as.dGamma[side] = c.FaceGamma(e, side)
		}
		face := as.topo.Faces[side]
		for j, dG := range as.dGamma[side] {
			var flux float64
			for k, b := range face {
				flux += c.Flux[ien[b]] * rs.FaceN[k][j]
			}
			as.eres[a] += dG * rs.FaceN[aid][j] * rs.FaceW[j] * flux
		}
	}
}
