package mesh

import "math"

// Metric maps a computational coordinate gradient to a physical one. Scale
// fills the factor for each axis at point x, so that a physical derivative
// along d is scale[d] * d/dx_d. The volume element is the product of the
// inverse factors.
type Metric interface {
	Scale(x, scale []float64)
	Name() string
}

type Cartesian struct{}

func (Cartesian) Name() string { return "cartesian" }

func (Cartesian) Scale(x, scale []float64) {
	for d := range scale {
		scale[d] = 1
	}
}

// Spherical coordinates are (colatitude, longitude, radius) with the radius
// always on the last axis. A 2D mesh is a (colatitude, radius) slice.
type Spherical struct{}

func (Spherical) Name() string { return "spherical" }

func (Spherical) Scale(x, scale []float64) {
	dim := len(scale)
	r := x[dim-1]
	scale[dim-1] = 1
	if dim > 1 {
		scale[0] = 1 / r
	}
	if dim > 2 {
		scale[1] = 1 / (r * math.Sin(x[0]))
	}
}

// VolumeFactor is the product of the inverse scale factors.
func VolumeFactor(scale []float64) (f float64) {
	f = 1
	for _, s := range scale {
		f /= s
	}
	return
}
