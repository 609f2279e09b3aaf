package symptomrx

import "math"

// Vector is a sparse row with strictly increasing indices.
type Vector struct {
	Indices []int
	Values  []float64
}

// Dot returns the inner product of v with a dense weight slice.
func (v Vector) Dot(w []float64) float64 {
	var s float64
	for k, idx := range v.Indices {
		s += v.Values[k] * w[idx]
	}
	return s
}

// AddTo accumulates scale*v into dst.
func (v Vector) AddTo(dst []float64, scale float64) {
	for k, idx := range v.Indices {
		dst[idx] += scale * v.Values[k]
	}
}

// SquaredNorm returns the squared L2 norm.
func (v Vector) SquaredNorm() float64 {
	var s float64
	for _, x := range v.Values {
		s += x * x
	}
	return s
}

// NNZ reports the number of stored entries.
func (v Vector) NNZ() int { return len(v.Indices) }

func (v Vector) normalize() {
	n := math.Sqrt(v.SquaredNorm())
	if n == 0 {
		return
	}
	for k := range v.Values {
		v.Values[k] /= n
	}
}
