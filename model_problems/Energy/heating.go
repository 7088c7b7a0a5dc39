package Energy

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/notargets/gocitcom/InputParameters"
	"github.com/notargets/gocitcom/parallel"
)

// HeatSources computes the viscous, adiabatic and latent heating of every
// element.
type HeatSources struct {
	params *InputParameters.EnergyParameters
	ref    RefState
	kin    Kinematics
	comm   parallel.Collective
	log    *logrus.Entry
}

func NewHeatSources(params *InputParameters.EnergyParameters, ref RefState, kin Kinematics,
	comm parallel.Collective, log *logrus.Entry) *HeatSources {
	if kin == nil {
		kin = QuadratureStrainRate{}
	}
	return &HeatSources{params: params, ref: ref, kin: kin, comm: comm, log: log}
}

// Process refreshes the per element heating arrays of every cap and returns
// the area weighted global totals. It is a collective call.
func (hs *HeatSources) Process(st *State) (visc, adi float64) {
	var localVisc, localAdi float64
	for _, cs := range st.Caps {
		hs.phaseFractions(cs)
		localVisc += hs.viscous(cs)
		localAdi += hs.adiabatic(cs)
		hs.latent(cs)
	}
	visc = hs.comm.SumFloat(localVisc)
	adi = hs.comm.SumFloat(localAdi)
	if hs.comm.Rank() == 0 {
		hs.log.WithFields(logrus.Fields{"adi": adi, "visc": visc}).Debug("total heating")
	}
	return
}

func (hs *HeatSources) viscous(cs *CapState) (total float64) {
	var (
		c    = cs.Cap
		vpts = c.Topo.QPoints
		temp = hs.params.DissipationNumber / hs.params.Atemp / float64(vpts)
	)
	hs.kin.StrainRateSquared(cs, cs.strainSqr)
	for e := range c.IEN {
		var visc float64
		for _, eta := range cs.EVi[e] {
			visc += eta
		}
		cs.HeatVisc[e] = temp * visc * cs.strainSqr[e]
		total += cs.HeatVisc[e] * c.Area[e]
	}
	return
}

func (hs *HeatSources) adiabatic(cs *CapState) (total float64) {
	var (
		c     = cs.Cap
		vr    = cs.V[c.Topo.Vertical()]
		temp2 = hs.params.DissipationNumber / float64(c.Topo.Nodes)
		ts    = hs.params.SurfaceT
	)
	for e, ien := range c.IEN {
		var temp float64
		for _, node := range ien {
			temp += vr[node] * (cs.T[node] + ts)
		}
		cs.HeatAdi[e] = temp * temp2 * hs.ref.LayerFactor(c.Layer[e])
		total += cs.HeatAdi[e] * c.Area[e]
	}
	return
}

// latent seeds the latent factor, accumulates every active horizon into the
// latent and adiabatic arrays, then inverts the latent factor.
func (hs *HeatSources) latent(cs *CapState) {
	if !hs.params.HorizonsActive() {
		for e := range cs.HeatLatent {
			cs.HeatLatent[e] = 1
		}
		return
	}
	var (
		p    = hs.params
		c    = cs.Cap
		vr   = cs.V[c.Topo.Vertical()]
		ends = float64(c.Topo.Nodes)
	)
	for e := range cs.HeatLatent {
		cs.HeatLatent[e] = 1
	}
	for h, hz := range p.Horizons {
		if !hz.Active() {
			continue
		}
		B := cs.Phase[h]
		temp1 := 2 * hz.Width * hz.Clapeyron * hz.Ra / p.Atemp
		for e, ien := range c.IEN {
			var temp2, temp3 float64
			for _, node := range ien {
				common := temp1 * (1 - B[node]) * B[node] * (cs.T[node] + p.SurfaceT) * p.DissipationNumber
				temp2 += common * vr[node]
				temp3 += common * hz.Clapeyron
			}
			cs.HeatAdi[e] += temp2 / ends
			cs.HeatLatent[e] += temp3 / ends
		}
	}
	for e := range cs.HeatLatent {
		cs.HeatLatent[e] = 1 / cs.HeatLatent[e]
	}
}

// phaseFractions evaluates 0.5 (1 + tanh(pi/width)) at every node, with
// pi = depth - z_ph - clapeyron (T - transT).
func (hs *HeatSources) phaseFractions(cs *CapState) {
	for h, hz := range hs.params.Horizons {
		if !hz.Active() {
			continue
		}
		B := cs.Phase[h]
		for node, depth := range cs.Cap.Depth {
			excess := depth - hz.Depth - hz.Clapeyron*(cs.T[node]-hz.TransT)
			B[node] = 0.5 * (1 + math.Tanh(excess/hz.Width))
		}
	}
}
