package bandit

import (
	"fmt"
	"maps"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

const ClassThompsonSampling = "ThompsonSampling"

// Beta(1,1) prior for arms without observations.
const (
	priorAlpha = 1.0
	priorBeta  = 1.0
)

// ThompsonSampling is Beta-Bernoulli Thompson sampling. Rewards are clamped
// to [0,1] before they move the posterior.
type ThompsonSampling struct {
	armStats
	aParams map[string]float64
	bParams map[string]float64
	src     rand.Source
}

func NewThompsonSampling(seed uint64) *ThompsonSampling {
	return &ThompsonSampling{
		armStats: newArmStats(),
		aParams:  make(map[string]float64),
		bParams:  make(map[string]float64),
		src:      newLockedSource(seed),
	}
}

func (p *ThompsonSampling) ClassName() string { return ClassThompsonSampling }

func (p *ThompsonSampling) posterior(arm string) (float64, float64) {
	a, ok := p.aParams[arm]
	if !ok {
		a = priorAlpha
	}
	b, ok := p.bParams[arm]
	if !ok {
		b = priorBeta
	}
	return a, b
}

// Recommend draws one sample per candidate, in input order, and keeps the
// largest.
func (p *ThompsonSampling) Recommend(_ map[string]any, candidates []string) (choice string) {
	if len(candidates) == 0 {
		return ""
	}
	defer recoverRecommend(p.ClassName(), candidates, &choice)

	return argmaxFirst(candidates, func(arm string) float64 {
		a, b := p.posterior(arm)
		return distuv.Beta{Alpha: a, Beta: b, Src: p.src}.Rand()
	})
}

func (p *ThompsonSampling) Update(arm string, reward float64, _ map[string]any) error {
	if err := ValidateObservation(arm, reward); err != nil {
		return err
	}
	r := clampUnit(reward)
	a, b := p.posterior(arm)
	p.aParams[arm] = a + r
	p.bParams[arm] = b + (1 - r)
	p.observe(arm, reward)
	return nil
}

type thompsonState struct {
	armStatsState
	AParams map[string]float64 `json:"aParams"`
	BParams map[string]float64 `json:"bParams"`
}

func (p *ThompsonSampling) ExportState() map[string]any {
	return exportOrHeader(p.ClassName(), thompsonState{
		armStatsState: p.export(),
		AParams:       maps.Clone(p.aParams),
		BParams:       maps.Clone(p.bParams),
	})
}

func (p *ThompsonSampling) ImportState(state map[string]any) error {
	var st thompsonState
	if err := decodeState(state, p.ClassName(), &st); err != nil {
		return err
	}
	if err := st.validate(); err != nil {
		return fmt.Errorf("invalid %s state: %w", p.ClassName(), err)
	}
	for _, params := range []map[string]float64{st.AParams, st.BParams} {
		for arm, v := range params {
			if !(v > 0) || math.IsInf(v, 0) {
				return fmt.Errorf("invalid %s state: beta parameter for %q must be positive, got %v", p.ClassName(), arm, v)
			}
		}
	}

	p.armStats = st.toStats()
	p.aParams = make(map[string]float64, len(st.AParams))
	p.bParams = make(map[string]float64, len(st.BParams))
	maps.Copy(p.aParams, st.AParams)
	maps.Copy(p.bParams, st.BParams)
	return nil
}
