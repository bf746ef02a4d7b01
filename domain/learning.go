package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LearningSnapshot maps a domain name to the exported state of its
// production policy. Every value is plain JSON (maps, slices, numbers, strings).
type LearningSnapshot map[string]map[string]any

// StoredSnapshot is a LearningSnapshot stamped with the time the engine
// produced it. Stores keep the stamp so readers can pick the newest copy.
type StoredSnapshot struct {
	TakenAt time.Time        `json:"takenAt"`
	Domains LearningSnapshot `json:"domains"`
}

// RewardEvent is the audit row written for every recorded outcome.
type RewardEvent struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Domain    string            `gorm:"column:domain;not null;index" json:"domain"`
	Choice    string            `gorm:"column:choice;not null" json:"choice"`
	Reward    float64           `gorm:"column:reward;not null" json:"reward"`
	TraceID   string            `gorm:"column:trace_id" json:"trace_id,omitempty"`
	Context   datatypes.JSONMap `gorm:"column:context;type:jsonb" json:"context"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// EngineSnapshot is a persisted point-in-time copy of LearningSnapshot.
type EngineSnapshot struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Domains   int            `gorm:"column:domains;not null" json:"domains"`
	Payload   datatypes.JSON `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
}

// RestoreReport lists which domains accepted a snapshot and why the others
// were left alone.
type RestoreReport struct {
	Restored []string          `json:"restored"`
	Skipped  map[string]string `json:"skipped"`
}

type ShadowPolicyStats struct {
	Pulls            int     `json:"pulls"`
	AvgReward        float64 `json:"avgReward"`
	PerformanceRatio float64 `json:"performanceRatio"`
	CumulativeRegret float64 `json:"cumulativeRegret"`
	RegretPercentage float64 `json:"regretPercentage"`
	Mismatches       int     `json:"mismatches"`
}

type ShadowSummary struct {
	BaselineReward float64                      `json:"baselineReward"`
	BaselineCount  int                          `json:"baselineCount"`
	Policies       map[string]ShadowPolicyStats `json:"policies"`
}
