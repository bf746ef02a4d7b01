package learning

import (
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"maps"
	"slices"
	"sync"
	"time"

	"adaptiveRouter/business/bandit"
	"adaptiveRouter/pkg/logger"
)

// maxPendingPerShadow bounds the stash of shadow choices waiting for a
// matching Record call.
const maxPendingPerShadow = 1024

type shadowState struct {
	mu      sync.RWMutex
	name    string
	policy  bandit.Policy
	pending *pendingChoices
}

func newShadowState(name string, p bandit.Policy) *shadowState {
	return &shadowState{
		name:    name,
		policy:  p,
		pending: newPendingChoices(maxPendingPerShadow),
	}
}

func (s *shadowState) recommend(features map[string]any, candidates []string) (arm string, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("shadow %s recommend panicked: %v", s.name, r)
		}
	}()
	return s.policy.Recommend(features, candidates), nil
}

func (s *shadowState) update(arm string, reward float64, features map[string]any) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("shadow %s update panicked: %v", s.name, r)
		}
	}()
	return s.policy.Update(arm, reward, features)
}

// dispatchShadows runs every shadow on its own goroutine and returns
// without waiting. A shadow choice is stashed for Record, and reported to
// the decision hook when emit is set, only if it arrives within the shadow
// timeout measured from dispatch.
func (e *Engine) dispatchShadows(ds *domainState, features map[string]any, candidates []string, emit bool) {
	fp := contextFingerprint(features)
	features = maps.Clone(features)
	candidates = slices.Clone(candidates)
	start := time.Now()

	for _, sh := range ds.shadows {
		e.shadowWG.Add(1)
		go func() {
			defer e.shadowWG.Done()

			arm, err := sh.recommend(features, candidates)
			if err != nil {
				logger.Warn("shadow_recommend_failed", "domain", ds.name, "shadow", sh.name, "error", err)
				return
			}
			if arm == "" {
				return
			}
			if elapsed := time.Since(start); elapsed > e.shadowTimeout {
				logger.Debug("shadow_deadline_exceeded",
					"domain", ds.name,
					"shadow", sh.name,
					"timeout", e.shadowTimeout,
					"elapsed", elapsed,
				)
				return
			}
			sh.pending.put(fp, arm)
			if emit {
				e.emit(ds.name, sh.name, arm, true)
			}
		}()
	}
}

// pendingChoices remembers the latest shadow choice per context
// fingerprint, evicting the oldest entry once full.
type pendingChoices struct {
	mu    sync.Mutex
	limit int
	byKey map[string]string
	order []string
}

func newPendingChoices(limit int) *pendingChoices {
	return &pendingChoices{limit: limit, byKey: make(map[string]string)}
}

func (p *pendingChoices) put(key, arm string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.byKey[key]; !ok {
		if len(p.order) >= p.limit {
			oldest := p.order[0]
			p.order = p.order[1:]
			delete(p.byKey, oldest)
		}
		p.order = append(p.order, key)
	}
	p.byKey[key] = arm
}

func (p *pendingChoices) take(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	arm, ok := p.byKey[key]
	if !ok {
		return "", false
	}
	delete(p.byKey, key)
	if i := slices.Index(p.order, key); i >= 0 {
		p.order = slices.Delete(p.order, i, i+1)
	}
	return arm, true
}

func (p *pendingChoices) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byKey)
}

// contextFingerprint identifies a recommend/record pair by its feature map.
// nil and empty maps share the same fingerprint.
func contextFingerprint(features map[string]any) string {
	h := fnv.New64a()
	for _, k := range slices.Sorted(maps.Keys(features)) {
		fmt.Fprintf(h, "%s=%v;", k, features[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}
