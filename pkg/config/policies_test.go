//go:build !integration

package config

import (
	"testing"

	"adaptiveRouter/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePolicies = `
domains:
  - name: model_routing
    policy:
      class: UCB1
    shadows:
      - name: thompson
        class: ThompsonSampling
        params:
          seed: 7
  - name: strategy
    policy:
      class: LinUCBDiag
      params:
        alpha: 0.5
        dim: 16
experiments:
  - id: prompt_v2
    control: baseline
    variants:
      v2: 0.25
    auto_activate_after: 100
`

func TestParsePolicies(t *testing.T) {
	t.Run("parses domains and experiments", func(t *testing.T) {
		catalog, err := ParsePolicies([]byte(samplePolicies))
		require.NoError(t, err)
		require.Len(t, catalog.Domains, 2)

		routing := catalog.Domains[0]
		assert.Equal(t, "model_routing", routing.Name)
		assert.Equal(t, "UCB1", routing.Policy.Class)
		require.Len(t, routing.Shadows, 1)
		assert.Equal(t, uint64(7), routing.Shadows[0].Params.Seed)

		assert.Equal(t, 16, catalog.Domains[1].Policy.Params.Dim)

		require.Len(t, catalog.Experiments, 1)
		exp := catalog.Experiments[0]
		assert.Equal(t, "prompt_v2", exp.ID)
		assert.InDelta(t, 0.25, exp.Variants["v2"], 1e-12)
		require.NotNil(t, exp.AutoActivateAfter)
		assert.Equal(t, 100, *exp.AutoActivateAfter)
		assert.Equal(t, domain.ExperimentPhase(""), exp.Phase)
	})

	t.Run("explicit zero hyperparameters survive parsing", func(t *testing.T) {
		catalog, err := ParsePolicies([]byte("domains:\n  - name: greedy\n    policy: {class: EpsilonGreedy, params: {epsilon: 0}}\n  - name: lin\n    policy: {class: LinUCBDiagBandit}\n"))
		require.NoError(t, err)

		eps := catalog.Domains[0].Policy.Params.Epsilon
		require.NotNil(t, eps)
		assert.Zero(t, *eps)
		assert.Nil(t, catalog.Domains[1].Policy.Params.Alpha)
	})

	t.Run("rejects duplicate domains", func(t *testing.T) {
		_, err := ParsePolicies([]byte("domains:\n  - name: a\n    policy: {class: UCB1}\n  - name: a\n    policy: {class: UCB1}\n"))
		assert.Error(t, err)
	})

	t.Run("rejects missing class", func(t *testing.T) {
		_, err := ParsePolicies([]byte("domains:\n  - name: a\n"))
		assert.Error(t, err)
	})

	t.Run("missing file is empty catalogue", func(t *testing.T) {
		catalog, err := LoadPolicies(t.TempDir() + "/nope.yaml")
		require.NoError(t, err)
		assert.Empty(t, catalog.Domains)
	})
}

func TestHarnessSwitch(t *testing.T) {
	s := NewHarnessSwitch(false)
	assert.False(t, s.Enabled())
	s.Set(true)
	assert.True(t, s.Enabled())
}
