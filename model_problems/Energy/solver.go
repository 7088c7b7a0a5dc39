package Energy

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/notargets/gocitcom/InputParameters"
	"github.com/notargets/gocitcom/mesh"
	"github.com/notargets/gocitcom/parallel"
)

// Solver owns the state of one rank and drives the energy equation.
type Solver struct {
	Params     *InputParameters.EnergyParameters
	State      *State
	Controller *TimestepController
	Heat       *HeatSources
	Assembler  *Assembler
	Filter     *Filter
	Integrator *Integrator
	comm       parallel.Collective
	log        *logrus.Entry
	steps      int
}

// NewSolver assembles the lumped mass and the diffusive timestep limit of the
// rank's caps, so every rank must call it.
func NewSolver(params *InputParameters.EnergyParameters, caps []*mesh.Cap, ref RefState, kin Kinematics,
	comm parallel.Collective, log *logrus.Entry) (s *Solver, err error) {
	if len(caps) == 0 {
		return nil, fmt.Errorf("%w: rank %d holds no caps", mesh.ErrTopologyMismatch, comm.Rank())
	}
	topo := caps[0].Topo
	for _, c := range caps[1:] {
		if c.Topo.Dim != topo.Dim {
			return nil, fmt.Errorf("%w: cap %d is %dD, cap %d is %dD",
				mesh.ErrTopologyMismatch, c.ID, c.Topo.Dim, caps[0].ID, topo.Dim)
		}
	}
	if len(ref.Expansivity) != caps[0].NLayers+1 {
		return nil, fmt.Errorf("%w: reference state has %d levels for %d layers",
			InputParameters.ErrInvalidParameter, len(ref.Expansivity), caps[0].NLayers)
	}
	log = log.WithField("rank", comm.Rank())
	s = &Solver{
		Params:     params,
		State:      NewState(caps, len(params.Horizons)),
		Controller: NewTimestepController(params, comm, log),
		Heat:       NewHeatSources(params, ref, kin, comm, log),
		Assembler:  NewAssembler(topo, params, comm, log),
		Filter:     NewFilter(comm, log),
		comm:       comm,
		log:        log,
	}
	s.Integrator = NewIntegrator(params, s.Heat, s.Assembler, s.Filter, comm, log)
	mesh.AssembleMass(caps, comm)
	s.Controller.Init(caps)
	return
}

// Step advances one adaptive timestep. The bool is false once any step of
// the run has raised the stop signal.
func (s *Solver) Step() (r Report, keepGoing bool) {
	st := s.State
	st.Timestep = s.Controller.Timestep(st.Caps, st.DtReduced)
	stop := s.Integrator.Solve(st)
	s.steps++
	r = Report{
		Step:        s.steps,
		TotalSteps:  st.TotalSteps,
		Rollbacks:   st.Rollbacks,
		Elapsed:     st.Elapsed,
		Timestep:    st.Timestep,
		Tmax:        st.Tmax,
		ViscHeating: s.Integrator.ViscHeating,
		AdiHeating:  s.Integrator.AdiHeating,
		Stop:        stop,
	}
	return r, st.KeepGoing
}

// Run steps until a stop is raised, maxstep steps were taken or maxtotstep
// is reached. The first minstep steps always run. Rank 0 publishes every
// report; a failing sink is logged and does not end the run.
func (s *Solver) Run(sinks ...Sink) (last Report) {
	p := s.Params
	for {
		r, keepGoing := s.Step()
		last = r
		if s.comm.Rank() == 0 {
			for _, sink := range sinks {
				if err := sink.Publish(r); err != nil {
					s.log.WithError(err).Warn("publishing report")
				}
			}
		}
		switch {
		case !keepGoing && r.Step >= p.MinStep:
			return
		case r.Step >= p.MaxStep, r.TotalSteps >= p.MaxTotStep:
			return
		}
	}
}
