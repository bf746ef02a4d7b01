package bandit

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Diagonal ridge model helpers. A holds per-feature precision, b the
// reward-weighted feature sums; theta = b / A elementwise.

func diagTheta(a, b []float64) []float64 {
	theta := make([]float64, len(a))
	floats.DivTo(theta, b, a)
	return theta
}

// diagVariance returns sum_j x_j^2 / A_j.
func diagVariance(a, x []float64) float64 {
	sum := 0.0
	for j, xj := range x {
		sum += xj * xj / a[j]
	}
	return sum
}

// diagUpdate applies A += x^2 and b += r x.
func diagUpdate(a, b, x []float64, reward float64) {
	for j, xj := range x {
		a[j] += xj * xj
	}
	floats.AddScaled(b, reward, x)
}

func finiteAll(v []float64) bool {
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
