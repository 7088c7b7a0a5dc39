package parallel

import (
	"math"
	"sync"

	"github.com/notargets/gocitcom/utils"
)

// Barrier is a reusable rendezvous for a fixed number of goroutines.
type Barrier struct {
	n, waiting, generation int
	mu                     sync.Mutex
	cond                   *sync.Cond
}

func NewBarrier(n int) *Barrier {
	b := &Barrier{n: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *Barrier) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()
	gen := b.generation
	b.waiting++
	if b.waiting == b.n {
		b.waiting = 0
		b.generation++
		b.cond.Broadcast()
		return
	}
	for gen == b.generation {
		b.cond.Wait()
	}
}

type seamValue struct {
	Rank, Global int
	Value        float64
}

type group struct {
	size    int
	barrier *Barrier
	fslots  []float64
	islots  []int
	mail    *utils.MailBox[seamValue]
}

// Comm is one rank of an in-process group. Each Comm must be driven by its
// own goroutine.
type Comm struct {
	rank int
	g    *group
}

// NewGroup returns the n ranks of a new in-process group.
func NewGroup(n int) (comms []Collective) {
	g := &group{
		size:    n,
		barrier: NewBarrier(n),
		fslots:  make([]float64, n),
		islots:  make([]int, n),
		mail:    utils.NewMailBox[seamValue](n),
	}
	comms = make([]Collective, n)
	for rank := 0; rank < n; rank++ {
		comms[rank] = &Comm{rank: rank, g: g}
	}
	return
}

func (c *Comm) Rank() int { return c.rank }
func (c *Comm) Size() int { return c.g.size }

// reduceFloat folds the slot values in rank order so every rank computes a
// bit-identical result.
func (c *Comm) reduceFloat(x float64, op func(a, b float64) float64) (r float64) {
	g := c.g
	g.fslots[c.rank] = x
	g.barrier.Wait()
	r = g.fslots[0]
	for n := 1; n < g.size; n++ {
		r = op(r, g.fslots[n])
	}
	g.barrier.Wait()
	return
}

func (c *Comm) MinFloat(x float64) float64 { return c.reduceFloat(x, math.Min) }
func (c *Comm) MaxFloat(x float64) float64 { return c.reduceFloat(x, math.Max) }

func (c *Comm) SumFloat(x float64) float64 {
	return c.reduceFloat(x, func(a, b float64) float64 { return a + b })
}

func (c *Comm) SumInt(x int) (r int) {
	g := c.g
	g.islots[c.rank] = x
	g.barrier.Wait()
	for n := 0; n < g.size; n++ {
		r += g.islots[n]
	}
	g.barrier.Wait()
	return
}

// ExchangeNodes sums the partial values in rank order, so every holder of a
// seam node ends up with the same bits.
func (c *Comm) ExchangeNodes(seams []Seam, values [][]float64) {
	var (
		g     = c.g
		mb    = g.mail
		sums  = seamSums(seams, values)
		parts = make(map[int][]float64, len(sums))
	)
	for gid, v := range sums {
		p := make([]float64, g.size)
		p[c.rank] = v
		parts[gid] = p
		mb.PostMessageToAll(c.rank, seamValue{Rank: c.rank, Global: gid, Value: v})
	}
	mb.DeliverMyMessages(c.rank)
	g.barrier.Wait()
	for _, msg := range mb.ReceiveMyMessages(c.rank) {
		if p, present := parts[msg.Global]; present {
			p[msg.Rank] = msg.Value
		}
	}
	g.barrier.Wait()
	mb.ClearMyMessages(c.rank)
	for gid, p := range parts {
		var sum float64
		for _, v := range p {
			sum += v
		}
		sums[gid] = sum
	}
	scatterSums(seams, values, sums)
}
