//go:build !integration

package bandit

import "adaptiveRouter/domain"

func domainParams() domain.PolicyParams {
	return domain.PolicyParams{Dim: 8, Seed: 3}
}
