package main

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"adaptiveRouter/business/experiment"
	"adaptiveRouter/business/learning"
	"adaptiveRouter/domain"
	"adaptiveRouter/pkg/config"
	"adaptiveRouter/pkg/logger"
)

type specLister interface {
	ListSpecs(ctx context.Context) ([]domain.DomainSpec, error)
}

// registerDomains installs the catalogue domains, with stored admin
// overrides taking precedence over the file.
func registerDomains(ctx context.Context, engine *learning.Engine, catalog *config.PolicyCatalog, overrides specLister) error {
	specs := make(map[string]domain.DomainSpec, len(catalog.Domains))
	for _, s := range catalog.Domains {
		specs[s.Name] = s
	}

	stored, err := overrides.ListSpecs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load policy overrides: %w", err)
	}
	for _, s := range stored {
		if _, ok := specs[s.Name]; ok {
			logger.Info("policy_override_applied", "domain", s.Name, "class", s.Policy.Class)
		}
		specs[s.Name] = s
	}

	for _, name := range slices.Sorted(maps.Keys(specs)) {
		if err := engine.RegisterSpec(specs[name]); err != nil {
			return err
		}
	}
	return nil
}

func registerExperiments(manager *experiment.Manager, catalog *config.PolicyCatalog) error {
	for _, exp := range catalog.Experiments {
		if err := manager.Register(exp); err != nil {
			return fmt.Errorf("experiment %q: %w", exp.ID, err)
		}
	}
	return nil
}
