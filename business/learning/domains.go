package learning

import (
	"fmt"

	"adaptiveRouter/business/bandit"
	"adaptiveRouter/domain"
)

// RegisterSpec builds the production and shadow policies described by spec
// and registers them, replacing any existing registration for the domain.
func (e *Engine) RegisterSpec(spec domain.DomainSpec) error {
	policy, err := bandit.NewPolicy(spec.Policy.Class, spec.Policy.Params)
	if err != nil {
		return fmt.Errorf("domain %q: %w", spec.Name, err)
	}

	shadows := make([]ShadowPolicy, 0, len(spec.Shadows))
	for _, s := range spec.Shadows {
		sp, err := bandit.NewPolicy(s.Class, s.Params)
		if err != nil {
			return fmt.Errorf("domain %q shadow %q: %w", spec.Name, s.Name, err)
		}
		shadows = append(shadows, ShadowPolicy{Name: s.Name, Policy: sp})
	}

	return e.RegisterDomain(spec.Name, policy, shadows...)
}
