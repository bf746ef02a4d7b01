package config

import "sync/atomic"

// HarnessSwitch is the runtime form of LEARNING_HARNESS_ENABLED. It can be
// flipped by the admin API without a restart.
type HarnessSwitch struct {
	enabled atomic.Bool
}

func NewHarnessSwitch(enabled bool) *HarnessSwitch {
	s := &HarnessSwitch{}
	s.enabled.Store(enabled)
	return s
}

func (s *HarnessSwitch) Enabled() bool {
	return s.enabled.Load()
}

func (s *HarnessSwitch) Set(enabled bool) {
	s.enabled.Store(enabled)
}
