package learning

import (
	"math"
	"sync"

	"adaptiveRouter/domain"
)

const regretEpsilon = 1e-9

// ShadowRegretTracker compares shadow policies against the running mean of
// production rewards.
//
// A shadow is only credited when its choice matched what production served:
// the observed reward is then a valid sample for it too. When the choices
// differ nothing is learned about the shadow's counterfactual reward, so
// the sample is counted as a mismatch and otherwise ignored. This is an
// approximation, not off-policy evaluation.
type ShadowRegretTracker struct {
	mu             sync.Mutex
	baselineReward float64
	baselineCount  int
	policies       map[string]*shadowStats
}

type shadowStats struct {
	pulls            int
	totalRewards     float64
	cumulativeRegret float64
	mismatches       int
}

func NewShadowRegretTracker() *ShadowRegretTracker {
	return &ShadowRegretTracker{policies: make(map[string]*shadowStats)}
}

// UpdateBaseline folds one production reward into the baseline mean.
func (t *ShadowRegretTracker) UpdateBaseline(reward float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := float64(t.baselineCount)
	t.baselineReward = (t.baselineReward*n + reward) / (n + 1)
	t.baselineCount++
}

// RecordShadowResult credits policyName with reward when matched. Regret
// accrues against the baseline as it stands before this sample.
func (t *ShadowRegretTracker) RecordShadowResult(policyName string, reward float64, matched bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.policies[policyName]
	if !ok {
		st = &shadowStats{}
		t.policies[policyName] = st
	}
	if !matched {
		st.mismatches++
		return
	}

	st.pulls++
	st.totalRewards += reward
	st.cumulativeRegret += math.Max(0, t.baselineReward-reward)
}

func (t *ShadowRegretTracker) Baseline() (float64, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.baselineReward, t.baselineCount
}

func (t *ShadowRegretTracker) Summary() domain.ShadowSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := domain.ShadowSummary{
		BaselineReward: t.baselineReward,
		BaselineCount:  t.baselineCount,
		Policies:       make(map[string]domain.ShadowPolicyStats, len(t.policies)),
	}
	for name, st := range t.policies {
		avg := 0.0
		if st.pulls > 0 {
			avg = st.totalRewards / float64(st.pulls)
		}
		ratio := 0.0
		if t.baselineReward > 0 && st.pulls > 0 {
			ratio = avg / t.baselineReward
		}
		out.Policies[name] = domain.ShadowPolicyStats{
			Pulls:            st.pulls,
			AvgReward:        avg,
			PerformanceRatio: ratio,
			CumulativeRegret: st.cumulativeRegret,
			RegretPercentage: t.regretPercentageLocked(st),
			Mismatches:       st.mismatches,
		}
	}
	return out
}

// RegretPercentage is cumulative regret as a share of the baseline reward
// the shadow would have earned over its pulls. Unknown policies report 0.
func (t *ShadowRegretTracker) RegretPercentage(policyName string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.policies[policyName]
	if !ok {
		return 0
	}
	return t.regretPercentageLocked(st)
}

func (t *ShadowRegretTracker) regretPercentageLocked(st *shadowStats) float64 {
	denom := math.Max(regretEpsilon, t.baselineReward*float64(st.pulls))
	pct := st.cumulativeRegret / denom * 100
	if pct < 0 || math.IsNaN(pct) {
		return 0
	}
	return pct
}
