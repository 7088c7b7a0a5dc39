package Energy

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/notargets/gocitcom/InputParameters"
	"github.com/notargets/gocitcom/parallel"
	"github.com/notargets/gocitcom/utils"
)

// MaxRollbacks is the number of step halvings tried before the run is told
// to stop.
const MaxRollbacks = 5

// Predictor advances T by the explicit part of the step and clears Tdot.
func Predictor(st *State, gamma, dt float64) {
	for _, cs := range st.Caps {
		floats.AddScaled(cs.T, (1-gamma)*dt, cs.Tdot)
		for i := range cs.Tdot {
			cs.Tdot[i] = 0
		}
	}
}

// Corrector applies the assembled correction DTdot to T and Tdot.
func Corrector(st *State, gamma, dt float64) {
	for _, cs := range st.Caps {
		floats.AddScaled(cs.T, gamma*dt, cs.DTdot)
		floats.Add(cs.Tdot, cs.DTdot)
	}
}

// ConformBCs resets Dirichlet nodes to their prescribed temperature.
func ConformBCs(st *State) {
	for _, cs := range st.Caps {
		c := cs.Cap
		for i, f := range c.Flags {
			if f.Dirichlet() {
				cs.T[i] = c.TB[i]
			}
		}
	}
}

// Integrator runs the predictor-corrector cycle of one step, halving the
// step and retrying when the maximum temperature grows too fast.
type Integrator struct {
	params    *InputParameters.EnergyParameters
	heat      *HeatSources
	assembler *Assembler
	filter    *Filter
	comm      parallel.Collective
	log       *logrus.Entry
	// Totals from the last heating pass
	ViscHeating, AdiHeating float64
}

func NewIntegrator(params *InputParameters.EnergyParameters, heat *HeatSources, assembler *Assembler,
	filter *Filter, comm parallel.Collective, log *logrus.Entry) *Integrator {
	return &Integrator{
		params:    params,
		heat:      heat,
		assembler: assembler,
		filter:    filter,
		comm:      comm,
		log:       log,
	}
}

// Solve advances st by st.Timestep, less any rollback reduction. It returns
// true when MaxRollbacks were needed; the step is accepted regardless.
func (it *Integrator) Solve(st *State) (stop bool) {
	var (
		p         = it.params
		base      = st.Timestep
		rollbacks int
	)
	st.snapshot()
	tmax0 := st.GlobalTmax(it.comm)
	for {
		st.DtReduced = math.Pow(0.5, float64(rollbacks))
		st.Timestep = base * st.DtReduced
		if p.ADV {
			Predictor(st, p.AdvGamma, st.Timestep)
			for pass := 0; pass < p.AdvSubIterations; pass++ {
				it.ViscHeating, it.AdiHeating = it.heat.Process(st)
				it.assembler.Assemble(st, p.InputDiffusivity)
				Corrector(st, p.AdvGamma, st.Timestep)
				ConformBCs(st)
			}
		}
		st.Tmax = st.GlobalTmax(it.comm)
		if !it.diverged(tmax0, st.Tmax) || rollbacks == MaxRollbacks {
			break
		}
		st.restore()
		rollbacks++
		it.log.WithFields(logrus.Fields{
			"rollback": rollbacks, "Tmax": st.Tmax, "dt": base * math.Pow(0.5, float64(rollbacks)),
		}).Info("temperature varied too much, retrying with a smaller step")
	}
	st.Rollbacks = rollbacks
	if p.FilterTemp {
		fr := it.filter.Apply(st)
		it.log.WithFields(logrus.Fields{
			"Tmin": fr.Tmin, "Tmax": fr.Tmax, "interior": fr.Interior,
		}).Trace("filter")
	}
	st.TotalSteps++
	st.Elapsed += st.Timestep
	stop = rollbacks == MaxRollbacks
	if stop {
		st.KeepGoing = false
	}
	return
}

// diverged compares the new global maximum to the one before the step. A
// non finite maximum always counts; a non positive old maximum has no ratio.
func (it *Integrator) diverged(before, after float64) bool {
	if !utils.IsFinite(after) {
		return true
	}
	if before <= 0 {
		return false
	}
	return after/before > it.params.TMaxVaried
}
