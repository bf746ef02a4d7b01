package bandit

import (
	"maps"
	"slices"
)

// Registry maps a domain to its active policy. It does no locking of its
// own; the owner serializes access.
type Registry struct {
	policies map[string]Policy
}

func NewRegistry() *Registry {
	return &Registry{policies: make(map[string]Policy)}
}

// Register stores p for domain, replacing any earlier policy.
func (r *Registry) Register(domain string, p Policy) {
	r.policies[domain] = p
}

// Get returns nil for an unknown domain.
func (r *Registry) Get(domain string) Policy {
	return r.policies[domain]
}

// Domains returns the registered domains in lexicographic order.
func (r *Registry) Domains() []string {
	return slices.Sorted(maps.Keys(r.policies))
}

func (r *Registry) Len() int { return len(r.policies) }
