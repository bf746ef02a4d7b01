package bandit

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// ucbScore = theta·x + alpha * sqrt(sum x_j^2 / A_j)
func ucbScore(arm *linearArm, x []float64, alpha float64) float64 {
	mean := floats.Dot(diagTheta(arm.A, arm.B), x)
	return mean + alpha*math.Sqrt(diagVariance(arm.A, x))
}

// thompsonScore samples theta_j ~ N(b_j/A_j, sigma^2/A_j) and returns theta·x.
func thompsonScore(arm *linearArm, x []float64, sigma float64, src rand.Source) float64 {
	theta := diagTheta(arm.A, arm.B)
	for j := range theta {
		theta[j] = distuv.Normal{
			Mu:    theta[j],
			Sigma: sigma / math.Sqrt(arm.A[j]),
			Src:   src,
		}.Rand()
	}
	return floats.Dot(theta, x)
}
