package mesh

import (
	"errors"
	"fmt"
)

var ErrTopologyMismatch = errors.New("topology mismatch")

const (
	Bottom = iota
	Top
)

// Topology describes the linear tensor-product Lagrange element used by every
// cap. Element node a sits at reference coordinate ±1 on axis d according to
// bit d of a. The last axis is vertical.
type Topology struct {
	Dim        int
	Nodes      int // Nodes per element
	QPoints    int // Volume quadrature points per element
	FaceNodes  int
	FacePoints int
	// Faces[side] holds the element nodes of the bottom/top face, in
	// face-local order
	Faces [2][]int
}

func NewTopology(dim int) (topo Topology, err error) {
	if dim < 1 || dim > 3 {
		err = fmt.Errorf("%w: dimension %d is not 1, 2 or 3", ErrTopologyMismatch, dim)
		return
	}
	topo = Topology{
		Dim:        dim,
		Nodes:      1 << dim,
		QPoints:    1 << dim,
		FaceNodes:  1 << (dim - 1),
		FacePoints: 1 << (dim - 1),
	}
	for a := 0; a < topo.Nodes; a++ {
		side := topo.Side(a)
		topo.Faces[side] = append(topo.Faces[side], a)
	}
	return
}

// Vertical is the axis normal to the bottom and top faces.
func (topo Topology) Vertical() int { return topo.Dim - 1 }

// Side reports whether element node a lies on the bottom or the top face.
func (topo Topology) Side(a int) int { return (a >> topo.Vertical()) & 1 }

// FaceLocal finds the face-local index of element node a on a side.
func (topo Topology) FaceLocal(side, a int) (fa int, ok bool) {
	if side < 0 || side > 1 {
		return 0, false
	}
	for fa = range topo.Faces[side] {
		if topo.Faces[side][fa] == a {
			return fa, true
		}
	}
	return 0, false
}

// Sign is the reference coordinate (±1) of element node a along axis d.
func Sign(a, d int) float64 {
	return float64(2*((a>>d)&1) - 1)
}
