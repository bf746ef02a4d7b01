package experiment

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"adaptiveRouter/domain"
	"adaptiveRouter/pkg/logger"
)

const weightTolerance = 1e-9

var (
	ErrUnknownExperiment = errors.New("unknown experiment")
	ErrUnknownLabel      = errors.New("label is not part of the experiment")
	ErrInvalidExperiment = errors.New("invalid experiment")
	ErrInvalidReward     = errors.New("reward must be a finite number")
)

// ActivationHook is called once when an experiment is promoted from shadow
// to active.
type ActivationHook func(experimentID string, at time.Time)

type Option func(*Manager)

func WithGate(g domain.FeatureGate) Option {
	return func(m *Manager) {
		if g != nil {
			m.gate = g
		}
	}
}

// WithSeed fixes the fallback RNG used when a request carries neither a
// tenant nor a workspace.
func WithSeed(seed uint64) Option {
	return func(m *Manager) {
		m.rng = rand.New(rand.NewPCG(seed, seed^0x6a09e667f3bcc909))
	}
}

func WithActivationHook(h ActivationHook) Option {
	return func(m *Manager) { m.onActivate = h }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager is a weighted A/B allocation harness. Each experiment moves one
// way, shadow to active, either when constructed active or when its sample
// count reaches AutoActivateAfter.
type Manager struct {
	mu          sync.RWMutex
	experiments map[string]*entry

	gate       domain.FeatureGate
	rngMu      sync.Mutex
	rng        *rand.Rand
	onActivate ActivationHook
	now        func() time.Time
}

type entry struct {
	mu          sync.Mutex
	exp         domain.Experiment
	labels      []string
	weights     []float64
	samples     map[string]int
	rewards     map[string]float64
	total       int
	activatedAt *time.Time
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		experiments: make(map[string]*entry),
		gate:        domain.AlwaysOn{},
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func validate(exp domain.Experiment) error {
	if exp.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidExperiment)
	}
	if exp.Control == "" {
		return fmt.Errorf("%w: control label is required", ErrInvalidExperiment)
	}
	switch exp.Phase {
	case "", domain.PhaseShadow, domain.PhaseActive:
	default:
		return fmt.Errorf("%w: unknown phase %q", ErrInvalidExperiment, exp.Phase)
	}
	if exp.AutoActivateAfter != nil && *exp.AutoActivateAfter <= 0 {
		return fmt.Errorf("%w: autoActivateAfter must be positive", ErrInvalidExperiment)
	}

	sum := 0.0
	for label, w := range exp.Variants {
		if label == "" || label == exp.Control {
			return fmt.Errorf("%w: variant label %q", ErrInvalidExperiment, label)
		}
		if math.IsNaN(w) || w < 0 || w > 1 {
			return fmt.Errorf("%w: weight for %q must be in [0,1]", ErrInvalidExperiment, label)
		}
		sum += w
	}
	if sum > 1+weightTolerance {
		return fmt.Errorf("%w: variant weights sum to %v", ErrInvalidExperiment, sum)
	}
	return nil
}

// Register stores exp, replacing an experiment with the same id.
func (m *Manager) Register(exp domain.Experiment) error {
	if err := validate(exp); err != nil {
		return err
	}

	exp.Variants = maps.Clone(exp.Variants)
	if exp.Phase == "" {
		exp.Phase = domain.PhaseShadow
	}
	if exp.AutoActivateAfter != nil {
		n := *exp.AutoActivateAfter
		exp.AutoActivateAfter = &n
	}

	variantLabels := slices.Sorted(maps.Keys(exp.Variants))
	labels := append([]string{exp.Control}, variantLabels...)
	weights := make([]float64, 0, len(labels))

	sum := 0.0
	for _, l := range variantLabels {
		sum += exp.Variants[l]
	}
	weights = append(weights, math.Max(0, 1-sum))
	for _, l := range variantLabels {
		weights = append(weights, exp.Variants[l])
	}

	ent := &entry{
		exp:     exp,
		labels:  labels,
		weights: weights,
		samples: make(map[string]int, len(labels)),
		rewards: make(map[string]float64, len(labels)),
	}
	if exp.Phase == domain.PhaseActive {
		at := m.now()
		ent.activatedAt = &at
	}

	m.mu.Lock()
	_, replaced := m.experiments[exp.ID]
	m.experiments[exp.ID] = ent
	m.mu.Unlock()

	logger.Info("experiment_registered",
		"experiment_id", exp.ID,
		"control", exp.Control,
		"variants", len(exp.Variants),
		"phase", exp.Phase,
		"replaced", replaced,
	)
	return nil
}

func (m *Manager) lookup(id string) *entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.experiments[id]
}

// Recommend allocates a label for this request. Candidates restrict the draw
// to the experiment labels they name; an empty list allows every label.
// With the harness off or an unknown id it returns candidates[0].
func (m *Manager) Recommend(id string, features map[string]any, candidates []string) string {
	fallback := ""
	if len(candidates) > 0 {
		fallback = candidates[0]
	}
	if !m.gate.Enabled() {
		return fallback
	}

	ent := m.lookup(id)
	if ent == nil {
		logger.Debug("experiment_unknown", "experiment_id", id, "op", "recommend")
		return fallback
	}

	labels, weights := ent.allocation(candidates)
	label, ok := pickWeighted(labels, weights, m.draw(id, features))
	if !ok {
		return fallback
	}
	return label
}

// allocation returns the labels eligible for candidates with their weights.
// Labels and weights are immutable after Register, so no lock is needed.
func (e *entry) allocation(candidates []string) ([]string, []float64) {
	if len(candidates) == 0 {
		return e.labels, e.weights
	}
	labels := make([]string, 0, len(e.labels))
	weights := make([]float64, 0, len(e.labels))
	for i, l := range e.labels {
		if slices.Contains(candidates, l) {
			labels = append(labels, l)
			weights = append(weights, e.weights[i])
		}
	}
	return labels, weights
}

func (m *Manager) draw(id string, features map[string]any) float64 {
	if tenant, workspace, ok := assignmentKey(features); ok {
		return assignmentUnit(id, tenant, workspace)
	}
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return m.rng.Float64()
}

// Record counts one outcome for label. When a shadow experiment reaches its
// AutoActivateAfter threshold it becomes active; this happens exactly once.
func (m *Manager) Record(id, label string, reward float64) error {
	if !m.gate.Enabled() {
		logger.Debug("experiment_record_disabled", "experiment_id", id)
		return nil
	}
	if math.IsNaN(reward) || math.IsInf(reward, 0) {
		return ErrInvalidReward
	}

	ent := m.lookup(id)
	if ent == nil {
		logger.Info("experiment_unknown", "experiment_id", id, "op", "record")
		return fmt.Errorf("%w: %s", ErrUnknownExperiment, id)
	}
	if !slices.Contains(ent.labels, label) {
		return fmt.Errorf("%w: %s/%s", ErrUnknownLabel, id, label)
	}

	var activatedAt time.Time
	ent.mu.Lock()
	ent.samples[label]++
	ent.rewards[label] += reward
	ent.total++
	if ent.exp.Phase == domain.PhaseShadow &&
		ent.exp.AutoActivateAfter != nil &&
		ent.total >= *ent.exp.AutoActivateAfter {
		activatedAt = m.now()
		ent.exp.Phase = domain.PhaseActive
		ent.activatedAt = &activatedAt
	}
	total := ent.total
	ent.mu.Unlock()

	if !activatedAt.IsZero() {
		logger.Info("experiment_activated",
			"experiment_id", id,
			"samples", total,
		)
		if m.onActivate != nil {
			m.onActivate(id, activatedAt)
		}
	}
	return nil
}

// Phase reports the current phase of id.
func (m *Manager) Phase(id string) (domain.ExperimentPhase, bool) {
	ent := m.lookup(id)
	if ent == nil {
		return "", false
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return ent.exp.Phase, true
}

func (e *entry) summary() domain.ExperimentSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	weights := make(map[string]float64, len(e.labels))
	avg := make(map[string]float64, len(e.labels))
	samples := make(map[string]int, len(e.labels))
	for i, l := range e.labels {
		weights[l] = e.weights[i]
		samples[l] = e.samples[l]
		if n := e.samples[l]; n > 0 {
			avg[l] = e.rewards[l] / float64(n)
		} else {
			avg[l] = 0
		}
	}

	s := domain.ExperimentSummary{
		ID:           e.exp.ID,
		Control:      e.exp.Control,
		Phase:        e.exp.Phase,
		Weights:      weights,
		Samples:      samples,
		AvgReward:    avg,
		TotalSamples: e.total,
	}
	if e.exp.AutoActivateAfter != nil {
		n := *e.exp.AutoActivateAfter
		s.AutoActivateAfter = &n
	}
	if e.activatedAt != nil {
		at := *e.activatedAt
		s.ActivatedAt = &at
	}
	return s
}

func (m *Manager) Snapshot() domain.ExperimentsSnapshot {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.experiments))
	for _, ent := range m.experiments {
		entries = append(entries, ent)
	}
	m.mu.RUnlock()

	snap := domain.ExperimentsSnapshot{
		Experiments: make(map[string]domain.ExperimentSummary, len(entries)),
		Timestamp:   m.now().UTC(),
	}
	for _, ent := range entries {
		s := ent.summary()
		snap.Experiments[s.ID] = s
		snap.TotalExperiments++
		switch s.Phase {
		case domain.PhaseActive:
			snap.ActiveExperiments++
		case domain.PhaseShadow:
			snap.ShadowExperiments++
		}
	}
	return snap
}
