package utils

import "math"

func ConstArray(val float64, N int) (v []float64) {
	v = make([]float64, N)
	for i := range v {
		v[i] = val
	}
	return
}

// Near compares with a relative tolerance that falls back to an absolute one
// near zero. The default tolerance is 1e-8.
func Near(a, b float64, tolI ...float64) bool {
	tol := 1.e-08
	if len(tolI) != 0 {
		tol = tolI[0]
	}
	bound := math.Max(tol, tol*math.Abs(a))
	return math.Abs(a-b) <= bound
}

// IsFinite is false for NaN and both infinities.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
