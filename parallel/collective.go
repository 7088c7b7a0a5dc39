package parallel

import (
	"errors"
	"fmt"
	"sync"
)

var ErrShortCollective = errors.New("collective call with mismatched participants")

// Seam lists the nodes of one cap that other caps also hold. Local and
// Global are parallel slices.
type Seam struct {
	Local  []int
	Global []int
}

// Collective is the group of ranks a solver runs inside. Every rank must make
// the same sequence of calls; a rank that skips one stalls the others.
type Collective interface {
	Rank() int
	Size() int
	MinFloat(x float64) float64
	MaxFloat(x float64) float64
	SumFloat(x float64) float64
	SumInt(x int) int
	// ExchangeNodes replaces every seam node value with the sum of that node's
	// partial values over all caps of all ranks. seams[c] indexes values[c].
	ExchangeNodes(seams []Seam, values [][]float64)
}

// Launch runs fn once per rank, each in its own goroutine, and returns the
// first error reported by any rank.
func Launch(comms []Collective, fn func(comm Collective) error) (err error) {
	var (
		wg   sync.WaitGroup
		errs = make([]error, len(comms))
	)
	for n, comm := range comms {
		wg.Add(1)
		go func(n int, comm Collective) {
			defer wg.Done()
			errs[n] = fn(comm)
		}(n, comm)
	}
	wg.Wait()
	for n, e := range errs {
		if e != nil {
			return fmt.Errorf("rank %d: %w", n, e)
		}
	}
	return
}

// seamSums adds up the partial seam values of all local caps, keyed by global id.
func seamSums(seams []Seam, values [][]float64) (sums map[int]float64) {
	if len(seams) != len(values) {
		panic(fmt.Errorf("%w: %d seams for %d value buffers",
			ErrShortCollective, len(seams), len(values)))
	}
	sums = make(map[int]float64)
	for c, seam := range seams {
		for i, lid := range seam.Local {
			sums[seam.Global[i]] += values[c][lid]
		}
	}
	return
}

func scatterSums(seams []Seam, values [][]float64, sums map[int]float64) {
	for c, seam := range seams {
		for i, lid := range seam.Local {
			values[c][lid] = sums[seam.Global[i]]
		}
	}
}
