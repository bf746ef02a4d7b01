package learning

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"adaptiveRouter/business/bandit"
	"adaptiveRouter/domain"
	"adaptiveRouter/pkg/logger"
)

const (
	defaultShadowTimeout = 20 * time.Millisecond

	// policyFallback is reported to the decision hook when no policy was
	// consulted (harness disabled or domain unknown).
	policyFallback = "fallback"
)

var ErrUnknownDomain = errors.New("unknown learning domain")

// DecisionHook observes routing decisions. Production decisions are
// reported on the caller's goroutine, shadow decisions on the shadow's own
// goroutine, so the hook must be cheap and safe for concurrent use.
type DecisionHook func(domainName, policyName, arm string, isShadow bool)

// ShadowPolicy is evaluated next to production without affecting what is
// served.
type ShadowPolicy struct {
	Name   string
	Policy bandit.Policy
}

type Option func(*Engine)

// WithGate injects the process-wide harness switch.
func WithGate(g domain.FeatureGate) Option {
	return func(e *Engine) {
		if g != nil {
			e.gate = g
		}
	}
}

// WithShadows turns shadow evaluation on or off. When off, shadows passed
// to RegisterDomain are ignored.
func WithShadows(enabled bool) Option {
	return func(e *Engine) { e.shadowsEnabled = enabled }
}

// WithShadowTimeout sets how long a shadow may take before its choice is
// discarded. Production calls never wait for shadows.
func WithShadowTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.shadowTimeout = d
		}
	}
}

func WithDecisionHook(h DecisionHook) Option {
	return func(e *Engine) { e.onDecision = h }
}

// Engine routes recommend/record calls to per-domain bandit policies and
// keeps shadow policies and their regret statistics alongside.
type Engine struct {
	mu       sync.RWMutex
	registry *bandit.Registry
	domains  map[string]*domainState

	gate           domain.FeatureGate
	shadowsEnabled bool
	shadowTimeout  time.Duration
	onDecision     DecisionHook

	// shadowWG tracks in-flight shadow goroutines.
	shadowWG sync.WaitGroup
}

// domainState.mu guards the production policy. Shadows carry their own
// locks since a late shadow goroutine may outlive the request.
type domainState struct {
	mu      sync.RWMutex
	name    string
	policy  bandit.Policy
	shadows []*shadowState
	tracker *ShadowRegretTracker
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		registry:       bandit.NewRegistry(),
		domains:        make(map[string]*domainState),
		gate:           domain.AlwaysOn{},
		shadowsEnabled: true,
		shadowTimeout:  defaultShadowTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterDomain installs policy as the production policy for domainName,
// replacing any earlier registration along with its shadows and tracker.
func (e *Engine) RegisterDomain(domainName string, policy bandit.Policy, shadows ...ShadowPolicy) error {
	if domainName == "" {
		return errors.New("domain name is required")
	}
	if policy == nil {
		return fmt.Errorf("domain %q: policy is required", domainName)
	}

	ds := &domainState{
		name:    domainName,
		policy:  policy,
		tracker: NewShadowRegretTracker(),
	}
	if e.shadowsEnabled {
		seen := make(map[string]struct{}, len(shadows))
		for _, sp := range shadows {
			if sp.Name == "" || sp.Policy == nil {
				return fmt.Errorf("domain %q: shadow needs a name and a policy", domainName)
			}
			if _, dup := seen[sp.Name]; dup {
				return fmt.Errorf("domain %q: duplicate shadow %q", domainName, sp.Name)
			}
			seen[sp.Name] = struct{}{}
			ds.shadows = append(ds.shadows, newShadowState(sp.Name, sp.Policy))
		}
	}

	e.mu.Lock()
	e.registry.Register(domainName, policy)
	e.domains[domainName] = ds
	e.mu.Unlock()

	logger.Info("learning_domain_registered",
		"domain", domainName,
		"policy", policy.ClassName(),
		"shadows", len(ds.shadows),
	)
	return nil
}

func (e *Engine) lookup(domainName string) *domainState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.registry.Get(domainName) == nil {
		return nil
	}
	return e.domains[domainName]
}

// Domains returns the registered domain names in lexicographic order.
func (e *Engine) Domains() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.Domains()
}

// Recommend returns the production choice for domainName. It never fails:
// with the harness off, an unknown domain, or a misbehaving policy it
// returns candidates[0].
func (e *Engine) Recommend(domainName string, features map[string]any, candidates []string) string {
	return e.decide(domainName, features, candidates, false)
}

// SelectModel is Recommend for model-routing call sites. It also reports
// each decision, production and shadow, to the decision hook.
//
// SelectModel carries no features, so every call in a domain shares the
// empty-context fingerprint. A shadow's pending choice is therefore the one
// from the most recent SelectModel call, and the next Record with nil
// features is scored against it. Callers that need per-request shadow
// matching should use Recommend with features that identify the request.
func (e *Engine) SelectModel(domainName string, candidates []string) string {
	return e.decide(domainName, nil, candidates, true)
}

func (e *Engine) decide(domainName string, features map[string]any, candidates []string, emit bool) string {
	if len(candidates) == 0 {
		logger.Debug("learning_recommend_no_candidates", "domain", domainName)
		return ""
	}
	if !e.gate.Enabled() {
		if emit {
			e.emit(domainName, policyFallback, candidates[0], false)
		}
		return candidates[0]
	}

	ds := e.lookup(domainName)
	if ds == nil {
		logger.Debug("learning_unregistered_domain", "domain", domainName, "op", "recommend")
		if emit {
			e.emit(domainName, policyFallback, candidates[0], false)
		}
		return candidates[0]
	}

	ds.mu.RLock()
	arm := safeRecommend(ds.policy, features, candidates)
	ds.mu.RUnlock()

	if emit {
		e.emit(domainName, ds.policy.ClassName(), arm, false)
	}
	if len(ds.shadows) > 0 {
		e.dispatchShadows(ds, features, candidates, emit)
	}
	return arm
}

// WaitShadows blocks until every dispatched shadow goroutine has finished.
// Call it after the last Recommend, e.g. on shutdown.
func (e *Engine) WaitShadows() {
	e.shadowWG.Wait()
}

// Record feeds an observed reward back to the production policy and the
// shadows, and updates regret tracking for shadows whose earlier choice for
// the same context is still pending.
func (e *Engine) Record(domainName, choice string, reward float64, features map[string]any) error {
	if !e.gate.Enabled() {
		logger.Debug("learning_record_disabled", "domain", domainName)
		return nil
	}
	ds := e.lookup(domainName)
	if ds == nil {
		logger.Debug("learning_unregistered_domain", "domain", domainName, "op", "record")
		return fmt.Errorf("%w: %s", ErrUnknownDomain, domainName)
	}
	if err := bandit.ValidateObservation(choice, reward); err != nil {
		return err
	}

	ds.mu.Lock()
	err := safeUpdate(ds.policy, choice, reward, features)
	ds.mu.Unlock()
	if err != nil {
		logger.Warn("learning_update_failed",
			"domain", domainName,
			"policy", ds.policy.ClassName(),
			"choice", choice,
			"error", err,
		)
	}

	if len(ds.shadows) > 0 {
		fp := contextFingerprint(features)
		for _, sh := range ds.shadows {
			if err := sh.update(choice, reward, features); err != nil {
				logger.Warn("shadow_update_failed",
					"domain", domainName,
					"shadow", sh.name,
					"error", err,
				)
			}
			if arm, ok := sh.pending.take(fp); ok {
				ds.tracker.RecordShadowResult(sh.name, reward, arm == choice)
			}
		}
	}
	ds.tracker.UpdateBaseline(reward)
	return nil
}

// Snapshot exports every production policy. All domain locks are held,
// taken in lexicographic order, so the result is one point in time.
func (e *Engine) Snapshot() domain.LearningSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := e.registry.Domains()
	states := make([]*domainState, 0, len(names))
	for _, name := range names {
		states = append(states, e.domains[name])
	}

	for _, ds := range states {
		ds.mu.RLock()
	}
	defer func() {
		for _, ds := range states {
			ds.mu.RUnlock()
		}
	}()

	snap := make(domain.LearningSnapshot, len(states))
	for _, ds := range states {
		snap[ds.name] = ds.policy.ExportState()
	}
	return snap
}

// Restore imports state for domains that are both registered and present
// in snap. A domain whose class differs or whose version is unsupported is
// skipped and keeps its live state. Restore never registers new domains.
func (e *Engine) Restore(snap domain.LearningSnapshot) domain.RestoreReport {
	report := domain.RestoreReport{
		Restored: []string{},
		Skipped:  map[string]string{},
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, name := range slices.Sorted(maps.Keys(snap)) {
		if e.registry.Get(name) == nil {
			report.Skipped[name] = "domain not registered"
		}
	}

	var targets []*domainState
	for _, name := range e.registry.Domains() {
		state, ok := snap[name]
		if !ok {
			continue
		}
		ds := e.domains[name]
		if err := bandit.CheckState(state, ds.policy.ClassName()); err != nil {
			logger.Warn("learning_restore_skipped", "domain", name, "reason", err)
			report.Skipped[name] = err.Error()
			continue
		}
		targets = append(targets, ds)
	}

	for _, ds := range targets {
		ds.mu.Lock()
	}
	defer func() {
		for _, ds := range targets {
			ds.mu.Unlock()
		}
	}()

	for _, ds := range targets {
		if err := ds.policy.ImportState(snap[ds.name]); err != nil {
			logger.Warn("learning_restore_skipped", "domain", ds.name, "reason", err)
			report.Skipped[ds.name] = err.Error()
			continue
		}
		report.Restored = append(report.Restored, ds.name)
	}

	logger.Info("learning_restore_done",
		"restored", len(report.Restored),
		"skipped", len(report.Skipped),
	)
	return report
}

// ShadowSummary reports shadow performance for domainName.
func (e *Engine) ShadowSummary(domainName string) (domain.ShadowSummary, bool) {
	ds := e.lookup(domainName)
	if ds == nil {
		return domain.ShadowSummary{}, false
	}
	return ds.tracker.Summary(), true
}

func (e *Engine) RegretPercentage(domainName, shadowName string) float64 {
	ds := e.lookup(domainName)
	if ds == nil {
		return 0
	}
	return ds.tracker.RegretPercentage(shadowName)
}

func (e *Engine) emit(domainName, policyName, arm string, isShadow bool) {
	if e.onDecision == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("decision_hook_panic", "domain", domainName, "panic", r)
		}
	}()
	e.onDecision(domainName, policyName, arm, isShadow)
}

func safeRecommend(p bandit.Policy, features map[string]any, candidates []string) (arm string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("policy_recommend_panic", "policy", p.ClassName(), "panic", r)
			arm = candidates[0]
		}
	}()
	arm = p.Recommend(features, candidates)
	if arm == "" {
		arm = candidates[0]
	}
	return arm
}

func safeUpdate(p bandit.Policy, arm string, reward float64, features map[string]any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("policy update panicked: %v", r)
		}
	}()
	return p.Update(arm, reward, features)
}
