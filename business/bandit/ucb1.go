package bandit

import (
	"fmt"
	"math"
)

const ClassUCB1 = "UCB1"

// UCB1 scores each arm as q + sqrt(2 ln(N) / n). Arms never pulled win
// outright, earliest candidate first.
type UCB1 struct {
	armStats
}

func NewUCB1() *UCB1 {
	return &UCB1{armStats: newArmStats()}
}

func (p *UCB1) ClassName() string { return ClassUCB1 }

func (p *UCB1) Recommend(_ map[string]any, candidates []string) (choice string) {
	if len(candidates) == 0 {
		return ""
	}
	defer recoverRecommend(p.ClassName(), candidates, &choice)

	for _, arm := range candidates {
		if p.counts[arm] == 0 {
			return arm
		}
	}
	return argmaxFirst(candidates, p.score)
}

func (p *UCB1) score(arm string) float64 {
	n := p.counts[arm]
	if n == 0 {
		return math.Inf(1)
	}
	bonus := 0.0
	if p.totalPulls > 1 {
		bonus = math.Sqrt(2 * math.Log(float64(p.totalPulls)) / float64(n))
	}
	return p.qValues[arm] + bonus
}

func (p *UCB1) Update(arm string, reward float64, _ map[string]any) error {
	if err := ValidateObservation(arm, reward); err != nil {
		return err
	}
	p.observe(arm, reward)
	return nil
}

func (p *UCB1) ExportState() map[string]any {
	return exportOrHeader(p.ClassName(), p.export())
}

func (p *UCB1) ImportState(state map[string]any) error {
	var st armStatsState
	if err := decodeState(state, p.ClassName(), &st); err != nil {
		return err
	}
	if err := st.validate(); err != nil {
		return fmt.Errorf("invalid %s state: %w", p.ClassName(), err)
	}
	p.armStats = st.toStats()
	return nil
}
