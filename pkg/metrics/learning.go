package metrics

import (
	"time"

	"adaptiveRouter/domain"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Decisions served per domain and policy. Shadow decisions are counted
	// separately and never reach callers.
	Decisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "learning_decisions_total",
		Help: "Routing decisions by domain, policy and whether the policy was a shadow",
	}, []string{"domain", "policy", "shadow"})

	Rewards = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "learning_reward",
		Help:    "Distribution of rewards recorded per domain",
		Buckets: []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1},
	}, []string{"domain"})

	RecordErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "learning_record_errors_total",
		Help: "Rejected reward observations by domain",
	}, []string{"domain"})

	ShadowRegret = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "learning_shadow_regret_percentage",
		Help: "Cumulative regret of each shadow policy as a percentage of baseline reward",
	}, []string{"domain", "shadow"})

	ExperimentAllocations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "experiment_allocations_total",
		Help: "Labels served per experiment",
	}, []string{"experiment", "label"})

	ExperimentActivations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "experiment_activations_total",
		Help: "Shadow to active promotions per experiment",
	}, []string{"experiment"})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		Decisions,
		Rewards,
		RecordErrors,
		ShadowRegret,
		ExperimentAllocations,
		ExperimentActivations,
	}
}

func Init() {
	prometheus.MustRegister(collectors()...)
}

// ObserveDecision matches the learning engine's decision hook.
func ObserveDecision(domainName, policyName, _ string, isShadow bool) {
	shadow := "false"
	if isShadow {
		shadow = "true"
	}
	Decisions.WithLabelValues(domainName, policyName, shadow).Inc()
}

func ObserveReward(domainName string, reward float64) {
	Rewards.WithLabelValues(domainName).Observe(reward)
}

func ObserveRecordError(domainName string) {
	RecordErrors.WithLabelValues(domainName).Inc()
}

// SetShadowRegret publishes the regret of every shadow in summary.
func SetShadowRegret(domainName string, summary domain.ShadowSummary) {
	for name, stats := range summary.Policies {
		ShadowRegret.WithLabelValues(domainName, name).Set(stats.RegretPercentage)
	}
}

func ObserveAllocation(experimentID, label string) {
	ExperimentAllocations.WithLabelValues(experimentID, label).Inc()
}

// ObserveActivation matches the experiment manager's activation hook.
func ObserveActivation(experimentID string, _ time.Time) {
	ExperimentActivations.WithLabelValues(experimentID).Inc()
}
