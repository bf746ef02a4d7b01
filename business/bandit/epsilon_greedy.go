package bandit

import (
	"fmt"
	"math/rand/v2"
)

const ClassEpsilonGreedy = "EpsilonGreedy"

// EpsilonGreedy explores a uniformly random candidate with probability
// epsilon and otherwise exploits the best running mean. Ties go to the
// earliest candidate, so epsilon=0 is fully deterministic.
type EpsilonGreedy struct {
	armStats
	epsilon float64
	rng     *rand.Rand
}

func NewEpsilonGreedy(epsilon float64, seed uint64) *EpsilonGreedy {
	return &EpsilonGreedy{
		armStats: newArmStats(),
		epsilon:  clampUnit(epsilon),
		rng:      rand.New(newLockedSource(seed)),
	}
}

func (p *EpsilonGreedy) ClassName() string { return ClassEpsilonGreedy }

func (p *EpsilonGreedy) Recommend(_ map[string]any, candidates []string) (choice string) {
	if len(candidates) == 0 {
		return ""
	}
	defer recoverRecommend(p.ClassName(), candidates, &choice)

	if p.epsilon > 0 && p.rng.Float64() < p.epsilon {
		return candidates[p.rng.IntN(len(candidates))]
	}
	return argmaxFirst(candidates, p.q)
}

func (p *EpsilonGreedy) Update(arm string, reward float64, _ map[string]any) error {
	if err := ValidateObservation(arm, reward); err != nil {
		return err
	}
	p.observe(arm, reward)
	return nil
}

type epsilonGreedyState struct {
	armStatsState
	Epsilon *float64 `json:"epsilon,omitempty"`
}

func (p *EpsilonGreedy) ExportState() map[string]any {
	eps := p.epsilon
	return exportOrHeader(p.ClassName(), epsilonGreedyState{
		armStatsState: p.export(),
		Epsilon:       &eps,
	})
}

func (p *EpsilonGreedy) ImportState(state map[string]any) error {
	var st epsilonGreedyState
	if err := decodeState(state, p.ClassName(), &st); err != nil {
		return err
	}
	if err := st.validate(); err != nil {
		return fmt.Errorf("invalid %s state: %w", p.ClassName(), err)
	}
	if st.Epsilon != nil && (*st.Epsilon < 0 || *st.Epsilon > 1) {
		return fmt.Errorf("invalid %s state: epsilon %v out of [0,1]", p.ClassName(), *st.Epsilon)
	}

	p.armStats = st.toStats()
	if st.Epsilon != nil {
		p.epsilon = *st.Epsilon
	}
	return nil
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
