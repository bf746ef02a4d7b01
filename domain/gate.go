package domain

// FeatureGate is the process-wide switch for the adaptive harness.
type FeatureGate interface {
	Enabled() bool
}

// AlwaysOn is the gate used when none is injected.
type AlwaysOn struct{}

func (AlwaysOn) Enabled() bool { return true }
