package domain

import (
	"time"

	"gorm.io/datatypes"
)

// PolicyParams carries hyperparameters for any policy class. A nil
// Epsilon, Alpha or Sigma takes the class default; an explicit zero is
// kept. Zero Dim, Regularization and Seed also mean "use the default".
type PolicyParams struct {
	Epsilon        *float64 `json:"epsilon,omitempty" yaml:"epsilon" validate:"omitempty,gte=0,lte=1"`
	Alpha          *float64 `json:"alpha,omitempty" yaml:"alpha" validate:"omitempty,gte=0"`
	Sigma          *float64 `json:"sigma,omitempty" yaml:"sigma" validate:"omitempty,gte=0"`
	Dim            int      `json:"dim,omitempty" yaml:"dim" validate:"gte=0,lte=4096"`
	Regularization float64  `json:"regularization,omitempty" yaml:"regularization" validate:"gte=0"`
	Seed           uint64   `json:"seed,omitempty" yaml:"seed"`
}

type PolicySpec struct {
	Class  string       `json:"class" yaml:"class" validate:"required"`
	Params PolicyParams `json:"params" yaml:"params"`
}

type ShadowSpec struct {
	Name   string       `json:"name" yaml:"name" validate:"required"`
	Class  string       `json:"class" yaml:"class" validate:"required"`
	Params PolicyParams `json:"params" yaml:"params"`
}

type DomainSpec struct {
	Name    string       `json:"name" yaml:"name" validate:"required"`
	Policy  PolicySpec   `json:"policy" yaml:"policy"`
	Shadows []ShadowSpec `json:"shadows,omitempty" yaml:"shadows" validate:"dive"`
}

// DomainPolicyConfig is a stored override of a DomainSpec, applied on top of
// the file catalogue at startup and through the admin API.
type DomainPolicyConfig struct {
	Domain    string                         `gorm:"column:domain;primaryKey" json:"domain"`
	Spec      datatypes.JSONType[DomainSpec] `gorm:"column:spec;type:jsonb;not null" json:"spec"`
	UpdatedAt time.Time                      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
