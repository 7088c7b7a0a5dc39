package mesh

import "github.com/notargets/gocitcom/parallel"

// AssembleMass builds the row-sum lumped mass of every cap and completes the
// seam nodes across caps and ranks. It is a collective call.
func AssembleMass(caps []*Cap, comm parallel.Collective) {
	values := make([][]float64, len(caps))
	for n, c := range caps {
		ends := c.Topo.Nodes
		elemental := make([]float64, c.NElems()*ends)
		for e := range c.IEN {
			for a := 0; a < ends; a++ {
				var m float64
				for q, dO := range c.DOmega[e] {
					m += c.Shape.N[a][q] * dO
				}
				elemental[e*ends+a] = m
			}
		}
		c.Mass = make([]float64, c.NNodes())
		c.Scatter(elemental, c.Mass)
		values[n] = c.Mass
	}
	comm.ExchangeNodes(Seams(caps), values)
}

// Seams collects the seam lists of caps, in order.
func Seams(caps []*Cap) (seams []parallel.Seam) {
	seams = make([]parallel.Seam, len(caps))
	for n, c := range caps {
		seams[n] = c.Seam
	}
	return
}
