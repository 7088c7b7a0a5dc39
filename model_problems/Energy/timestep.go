package Energy

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/notargets/gocitcom/InputParameters"
	"github.com/notargets/gocitcom/mesh"
	"github.com/notargets/gocitcom/parallel"
)

// TimestepController picks the stable step from the diffusive and advective
// limits of every element.
type TimestepController struct {
	params    *InputParameters.EnergyParameters
	comm      parallel.Collective
	log       *logrus.Entry
	diffusive float64
}

func NewTimestepController(params *InputParameters.EnergyParameters, comm parallel.Collective,
	log *logrus.Entry) *TimestepController {
	return &TimestepController{params: params, comm: comm, log: log, diffusive: math.Inf(1)}
}

// Init caches half the smallest squared edge length over all elements of all
// ranks. It is a collective call.
func (tc *TimestepController) Init(caps []*mesh.Cap) {
	local := math.Inf(1)
	for _, c := range caps {
		for _, size := range c.Size {
			for _, h := range size {
				local = math.Min(local, h*h)
			}
		}
	}
	tc.diffusive = 0.5 * tc.comm.MinFloat(local)
	tc.log.WithField("diffusive_dt", tc.diffusive).Debug("diffusion timestep")
}

func (tc *TimestepController) Diffusive() float64 { return tc.diffusive }

// Timestep returns finetune * min(reduced * advective, diffusive), reduced to
// the global minimum, or the fixed timestep when one is configured. An
// element at rest sets no advective limit.
//
// finetune scales the diffusive limit too, not only the advective one as in
// min(finetune * reduced * advective, diffusive), so dt <= finetune * diffusive
// holds for every velocity field.
func (tc *TimestepController) Timestep(caps []*CapState, reduced float64) (dt float64) {
	if tc.params.FixedTimestep != 0 {
		return tc.params.FixedTimestep
	}
	adv := math.Inf(1)
	for _, cs := range caps {
		c := cs.Cap
		for e, ien := range c.IEN {
			var uc float64
			for d := 0; d < c.Topo.Dim; d++ {
				var ud float64
				for a, node := range ien {
					ud += c.Shape.NCenter[a] * cs.V[d][node]
				}
				uc += math.Abs(ud) / c.Size[e][d]
			}
			if uc > 0 {
				adv = math.Min(adv, 0.5/uc)
			}
		}
	}
	dt = tc.params.FineTuneDt * math.Min(reduced*adv, tc.diffusive)
	return tc.comm.MinFloat(dt)
}
