//go:build !integration

package main

import (
	"context"
	"errors"
	"testing"

	"adaptiveRouter/business/experiment"
	"adaptiveRouter/business/learning"
	"adaptiveRouter/domain"
	"adaptiveRouter/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSpecs struct {
	specs []domain.DomainSpec
	err   error
}

func (s staticSpecs) ListSpecs(context.Context) ([]domain.DomainSpec, error) {
	return s.specs, s.err
}

func TestRegisterDomainsOverridesWin(t *testing.T) {
	catalog, err := config.ParsePolicies([]byte(`
domains:
  - name: routing
    policy:
      class: UCB1
  - name: ranking
    policy:
      class: EpsilonGreedy
      params:
        epsilon: 0.2
`))
	require.NoError(t, err)

	engine := learning.NewEngine()
	overrides := staticSpecs{specs: []domain.DomainSpec{
		{Name: "routing", Policy: domain.PolicySpec{Class: "ThompsonSampling"}},
		{Name: "extra", Policy: domain.PolicySpec{Class: "UCB1"}},
	}}
	require.NoError(t, registerDomains(context.Background(), engine, catalog, overrides))

	assert.Equal(t, []string{"extra", "ranking", "routing"}, engine.Domains())
	snap := engine.Snapshot()
	assert.Equal(t, "ThompsonSampling", snap["routing"]["policyClassName"])
	assert.Equal(t, "EpsilonGreedy", snap["ranking"]["policyClassName"])
}

func TestRegisterDomainsFailures(t *testing.T) {
	engine := learning.NewEngine()

	err := registerDomains(context.Background(), engine, &config.PolicyCatalog{}, staticSpecs{err: errors.New("db down")})
	assert.ErrorContains(t, err, "db down")

	bad := staticSpecs{specs: []domain.DomainSpec{{Name: "x", Policy: domain.PolicySpec{Class: "Oracle"}}}}
	assert.Error(t, registerDomains(context.Background(), engine, &config.PolicyCatalog{}, bad))
}

func TestRegisterExperiments(t *testing.T) {
	manager := experiment.NewManager()
	catalog := &config.PolicyCatalog{Experiments: []domain.Experiment{
		{ID: "a", Control: "c", Variants: map[string]float64{"v": 0.5}},
	}}
	require.NoError(t, registerExperiments(manager, catalog))
	assert.Equal(t, 1, manager.Snapshot().TotalExperiments)

	catalog.Experiments = append(catalog.Experiments, domain.Experiment{ID: "b", Control: "c", Variants: map[string]float64{"v": 2}})
	assert.ErrorContains(t, registerExperiments(manager, catalog), `experiment "b"`)
}
