package config

import (
	"errors"
	"fmt"
	"os"

	"adaptiveRouter/domain"

	"gopkg.in/yaml.v3"
)

// PolicyCatalog is the file-based list of learning domains and experiments
// registered at startup.
type PolicyCatalog struct {
	Domains     []domain.DomainSpec `yaml:"domains"`
	Experiments []domain.Experiment `yaml:"experiments"`
}

// LoadPolicies reads the YAML catalogue at path. A missing file yields an
// empty catalogue so the service can start with admin-registered domains only.
func LoadPolicies(path string) (*PolicyCatalog, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &PolicyCatalog{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read policies file: %w", err)
	}
	return ParsePolicies(raw)
}

func ParsePolicies(raw []byte) (*PolicyCatalog, error) {
	var catalog PolicyCatalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse policies file: %w", err)
	}

	seen := make(map[string]struct{}, len(catalog.Domains))
	for i, d := range catalog.Domains {
		if d.Name == "" {
			return nil, fmt.Errorf("domain #%d: name is required", i)
		}
		if d.Policy.Class == "" {
			return nil, fmt.Errorf("domain %q: policy class is required", d.Name)
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("domain %q declared twice", d.Name)
		}
		seen[d.Name] = struct{}{}
	}

	return &catalog, nil
}
