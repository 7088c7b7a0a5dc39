package Energy

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/notargets/gocitcom/parallel"
)

// Filter removes temperature overshoot. It clamps to [0,1], snaps values
// within the global overshoot of either bound onto the bound, then spreads
// the change of the global sum evenly over the interior nodes. The sum is
// restored; the result is not a projection and interior values can leave
// [0,1] by the size of the correction.
type Filter struct {
	comm parallel.Collective
	log  *logrus.Entry
}

type FilterResult struct {
	Tmin, Tmax float64 // Global extremes before clamping, including 0
	Interior   int
	Correction float64
}

func NewFilter(comm parallel.Collective, log *logrus.Entry) *Filter {
	return &Filter{comm: comm, log: log}
}

// Apply is a collective call.
func (f *Filter) Apply(st *State) (fr FilterResult) {
	var (
		tsum0, tsum1 float64
		tmin, tmax   float64
		tnum         int
	)
	for _, cs := range st.Caps {
		flags := cs.Cap.Flags
		for i, t := range cs.T {
			if !flags[i].Skip() {
				tsum0 += t
			}
			if t < tmin {
				tmin = t
			}
			if t < 0 {
				cs.T[i] = 0
			}
			if t > tmax {
				tmax = t
			}
			if t > 1 {
				cs.T[i] = 1
			}
		}
	}
	fr.Tmin = f.comm.MinFloat(tmin)
	fr.Tmax = f.comm.MaxFloat(tmax)
	var (
		low  = math.Abs(fr.Tmin)
		high = 2 - fr.Tmax
	)
	for _, cs := range st.Caps {
		flags := cs.Cap.Flags
		for i := range cs.T {
			if cs.T[i] <= low {
				cs.T[i] = 0
			}
			if cs.T[i] >= high {
				cs.T[i] = 1
			}
			if !flags[i].Skip() {
				tsum1 += cs.T[i]
				if interior(cs.T[i]) {
					tnum++
				}
			}
		}
	}
	tdist := f.comm.SumFloat(tsum0 - tsum1)
	fr.Interior = f.comm.SumInt(tnum)
	if fr.Interior == 0 {
		f.log.WithField("discrepancy", tdist).Debug("no interior nodes, skipping redistribution")
		return
	}
	fr.Correction = tdist / float64(fr.Interior)
	for _, cs := range st.Caps {
		for i, t := range cs.T {
			if interior(t) {
				cs.T[i] += fr.Correction
			}
		}
	}
	return
}

func interior(t float64) bool { return t != 0 && t != 1 }
