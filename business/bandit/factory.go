package bandit

import (
	"fmt"
	"math/rand/v2"

	"adaptiveRouter/domain"
)

const defaultEpsilon = 0.1

// Classes lists every policy class NewPolicy can build.
var Classes = []string{
	ClassEpsilonGreedy,
	ClassUCB1,
	ClassThompsonSampling,
	ClassLinUCBDiag,
	ClassLinTSDiag,
}

// NewPolicy builds a policy by class name. Unset hyperparameters take the
// class defaults; a zero seed draws a random one.
func NewPolicy(class string, params domain.PolicyParams) (Policy, error) {
	seed := params.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	var opts []LinearOption
	if params.Regularization > 0 {
		opts = append(opts, WithRegularization(params.Regularization))
	}

	switch class {
	case ClassEpsilonGreedy:
		return NewEpsilonGreedy(valueOr(params.Epsilon, defaultEpsilon), seed), nil
	case ClassUCB1:
		return NewUCB1(), nil
	case ClassThompsonSampling:
		return NewThompsonSampling(seed), nil
	case ClassLinUCBDiag:
		return NewLinUCBDiag(valueOr(params.Alpha, defaultLinUCBAlpha), params.Dim, opts...), nil
	case ClassLinTSDiag:
		return NewLinTSDiag(valueOr(params.Sigma, defaultLinTSSigma), params.Dim, seed, opts...), nil
	default:
		return nil, fmt.Errorf("unknown policy class %q", class)
	}
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
