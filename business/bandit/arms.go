package bandit

import (
	"fmt"
	"math"
	"maps"
)

// armStats is the bookkeeping every policy shares: running mean reward and
// pull counts per arm.
type armStats struct {
	qValues    map[string]float64
	counts     map[string]int
	totalPulls int
}

func newArmStats() armStats {
	return armStats{
		qValues: make(map[string]float64),
		counts:  make(map[string]int),
	}
}

// observe applies q += (r - q) / n for one pull.
func (s *armStats) observe(arm string, reward float64) {
	s.counts[arm]++
	n := float64(s.counts[arm])
	q := s.qValues[arm]
	s.qValues[arm] = q + (reward-q)/n
	s.totalPulls++
}

func (s *armStats) q(arm string) float64 { return s.qValues[arm] }

func (s *armStats) export() armStatsState {
	return armStatsState{
		QValues:    maps.Clone(s.qValues),
		Counts:     maps.Clone(s.counts),
		TotalPulls: s.totalPulls,
	}
}

// armStatsState is the serialized form shared by every policy class.
type armStatsState struct {
	QValues    map[string]float64 `json:"qValues"`
	Counts     map[string]int     `json:"counts"`
	TotalPulls int                `json:"totalPulls"`
}

func (st armStatsState) validate() error {
	for arm, n := range st.Counts {
		if n < 0 {
			return fmt.Errorf("negative count for arm %q", arm)
		}
	}
	for arm, q := range st.QValues {
		if math.IsNaN(q) || math.IsInf(q, 0) {
			return fmt.Errorf("non-finite q-value for arm %q", arm)
		}
	}
	if st.TotalPulls < 0 {
		return fmt.Errorf("negative totalPulls")
	}
	return nil
}

func (st armStatsState) toStats() armStats {
	s := newArmStats()
	maps.Copy(s.qValues, st.QValues)
	maps.Copy(s.counts, st.Counts)
	s.totalPulls = st.TotalPulls
	return s
}
