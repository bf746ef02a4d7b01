package domain

import "time"

type ExperimentPhase string

const (
	PhaseShadow ExperimentPhase = "shadow"
	PhaseActive ExperimentPhase = "active"
)

// Experiment describes a weighted A/B allocation. Control receives
// 1 - sum(Variants).
type Experiment struct {
	ID                string             `json:"id" yaml:"id" validate:"required"`
	Control           string             `json:"control" yaml:"control" validate:"required"`
	Variants          map[string]float64 `json:"variants" yaml:"variants"`
	Phase             ExperimentPhase    `json:"phase,omitempty" yaml:"phase" validate:"omitempty,oneof=shadow active"`
	AutoActivateAfter *int               `json:"autoActivateAfter,omitempty" yaml:"auto_activate_after" validate:"omitempty,gt=0"`
}

type ExperimentSummary struct {
	ID                string             `json:"id"`
	Control           string             `json:"control"`
	Phase             ExperimentPhase    `json:"phase"`
	Weights           map[string]float64 `json:"weights"`
	Samples           map[string]int     `json:"samples"`
	AvgReward         map[string]float64 `json:"avgReward"`
	TotalSamples      int                `json:"totalSamples"`
	AutoActivateAfter *int               `json:"autoActivateAfter,omitempty"`
	ActivatedAt       *time.Time         `json:"activatedAt,omitempty"`
}

type ExperimentsSnapshot struct {
	TotalExperiments  int                          `json:"totalExperiments"`
	ActiveExperiments int                          `json:"activeExperiments"`
	ShadowExperiments int                          `json:"shadowExperiments"`
	Experiments       map[string]ExperimentSummary `json:"experiments"`
	Timestamp         time.Time                    `json:"timestamp"`
}
