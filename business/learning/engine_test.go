//go:build !integration

package learning

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"adaptiveRouter/business/bandit"
	"adaptiveRouter/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gateFunc func() bool

func (f gateFunc) Enabled() bool { return f() }

// panicPolicy blows up on every call.
type panicPolicy struct{ *bandit.UCB1 }

func (panicPolicy) ClassName() string { return "Panic" }
func (panicPolicy) Recommend(map[string]any, []string) string {
	panic("boom")
}
func (panicPolicy) Update(string, float64, map[string]any) error {
	panic("boom")
}

// slowPolicy answers after a delay.
type slowPolicy struct {
	*bandit.UCB1
	delay time.Duration
}

func (p slowPolicy) Recommend(f map[string]any, c []string) string {
	time.Sleep(p.delay)
	return p.UCB1.Recommend(f, c)
}

func jsonOf(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}

func TestEngineLinUCBEndToEnd(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.RegisterDomain("lin", bandit.NewLinUCBDiag(1.0, 6)))

	ctx := map[string]any{"x": 1.5, "y": "foo"}
	require.NoError(t, e.Record("lin", "a", 0.8, ctx))
	require.NoError(t, e.Record("lin", "b", 0.2, ctx))

	assert.Equal(t, "a", e.Recommend("lin", ctx, []string{"a", "b"}))
}

func TestEngineUnregisteredDomain(t *testing.T) {
	e := NewEngine()

	assert.Equal(t, "first", e.Recommend("nope", nil, []string{"first", "second"}))
	assert.Equal(t, "first", e.SelectModel("nope", []string{"first", "second"}))
	assert.ErrorIs(t, e.Record("nope", "first", 1, nil), ErrUnknownDomain)
	assert.Empty(t, e.Snapshot())
	_, ok := e.ShadowSummary("nope")
	assert.False(t, ok)
	assert.Zero(t, e.RegretPercentage("nope", "x"))
}

func TestEngineDisabledGate(t *testing.T) {
	var enabled atomic.Bool
	e := NewEngine(WithGate(gateFunc(enabled.Load)))

	p := bandit.NewEpsilonGreedy(0, 1)
	require.NoError(t, e.RegisterDomain("routing", p))
	require.NoError(t, p.Update("b", 1, nil))

	assert.Equal(t, "a", e.Recommend("routing", nil, []string{"a", "b"}))
	assert.NoError(t, e.Record("routing", "b", 1, nil))
	assert.NotPanics(t, func() { e.Snapshot() })

	state := e.Snapshot()["routing"]
	assert.EqualValues(t, 1, state["totalPulls"], "record is a no-op while disabled")

	enabled.Store(true)
	assert.Equal(t, "b", e.Recommend("routing", nil, []string{"a", "b"}))
}

func TestEngineRecordValidation(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.RegisterDomain("routing", bandit.NewUCB1()))

	assert.ErrorIs(t, e.Record("routing", "", 1, nil), bandit.ErrEmptyArm)
	assert.Error(t, e.RegisterDomain("", bandit.NewUCB1()))
	assert.Error(t, e.RegisterDomain("x", nil))
}

func TestEngineEmptyCandidates(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.RegisterDomain("routing", bandit.NewUCB1()))
	assert.Equal(t, "", e.Recommend("routing", nil, nil))
	assert.Equal(t, "", e.SelectModel("routing", []string{}))
}

func TestEngineSnapshotRestore(t *testing.T) {
	ctx := map[string]any{"x": 1.5, "y": "foo"}
	build := func(t *testing.T) *Engine {
		t.Helper()
		e := NewEngine()
		require.NoError(t, e.RegisterDomain("greedy", bandit.NewEpsilonGreedy(0, 1)))
		require.NoError(t, e.RegisterDomain("ucb", bandit.NewUCB1()))
		require.NoError(t, e.RegisterDomain("lin", bandit.NewLinUCBDiag(1.0, 6)))
		return e
	}
	trained := func(t *testing.T) *Engine {
		t.Helper()
		e := build(t)
		for _, d := range []string{"greedy", "ucb", "lin"} {
			require.NoError(t, e.Record(d, "a", 0.9, ctx))
			require.NoError(t, e.Record(d, "b", 0.1, ctx))
			require.NoError(t, e.Record(d, "b", 0.2, ctx))
		}
		return e
	}

	t.Run("round trip through JSON", func(t *testing.T) {
		src := trained(t)
		var decoded domain.LearningSnapshot
		require.NoError(t, json.Unmarshal([]byte(jsonOf(t, src.Snapshot())), &decoded))

		dst := build(t)
		report := dst.Restore(decoded)
		assert.ElementsMatch(t, []string{"greedy", "lin", "ucb"}, report.Restored)
		assert.Empty(t, report.Skipped)

		assert.JSONEq(t, jsonOf(t, src.Snapshot()), jsonOf(t, dst.Snapshot()))
		for _, d := range []string{"greedy", "ucb", "lin"} {
			assert.Equal(t, src.Recommend(d, ctx, []string{"b", "a"}), dst.Recommend(d, ctx, []string{"b", "a"}))
		}
	})

	t.Run("legacy snapshot without version", func(t *testing.T) {
		snap := trained(t).Snapshot()
		for _, state := range snap {
			delete(state, "version")
		}
		dst := build(t)
		report := dst.Restore(snap)
		assert.Len(t, report.Restored, 3)
	})

	t.Run("future version leaves live state unchanged", func(t *testing.T) {
		live := trained(t)
		before := jsonOf(t, live.Snapshot())

		snap := build(t).Snapshot()
		for _, state := range snap {
			state["version"] = 999
		}
		report := live.Restore(snap)
		assert.Empty(t, report.Restored)
		assert.Len(t, report.Skipped, 3)
		assert.JSONEq(t, before, jsonOf(t, live.Snapshot()))
	})

	t.Run("class mismatch is skipped per domain", func(t *testing.T) {
		live := trained(t)
		before := live.Snapshot()

		snap := trained(t).Snapshot()
		snap["ucb"] = bandit.NewThompsonSampling(1).ExportState()
		report := live.Restore(snap)

		assert.ElementsMatch(t, []string{"greedy", "lin"}, report.Restored)
		assert.Contains(t, report.Skipped, "ucb")
		assert.JSONEq(t, jsonOf(t, before["ucb"]), jsonOf(t, live.Snapshot()["ucb"]))
	})

	t.Run("restore never registers new domains", func(t *testing.T) {
		live := build(t)
		snap := domain.LearningSnapshot{"ghost": bandit.NewUCB1().ExportState()}
		report := live.Restore(snap)

		assert.Equal(t, "domain not registered", report.Skipped["ghost"])
		assert.NotContains(t, live.Domains(), "ghost")
	})
}

func TestEngineShadowRegret(t *testing.T) {
	e := NewEngine(WithShadowTimeout(time.Second))
	require.NoError(t, e.RegisterDomain("routing",
		bandit.NewEpsilonGreedy(0, 1),
		ShadowPolicy{Name: "mirror", Policy: bandit.NewEpsilonGreedy(0, 2)},
	))

	candidates := []string{"a", "b"}
	for _, r := range []float64{0.8, 0.85, 0.9} {
		choice := e.Recommend("routing", nil, candidates)
		e.WaitShadows()
		require.NoError(t, e.Record("routing", choice, r, nil))
	}

	summary, ok := e.ShadowSummary("routing")
	require.True(t, ok)
	assert.InDelta(t, 0.85, summary.BaselineReward, 1e-9)
	assert.Equal(t, 3, summary.BaselineCount)

	mirror := summary.Policies["mirror"]
	assert.Equal(t, 3, mirror.Pulls)
	assert.InDelta(t, 0.85, mirror.AvgReward, 1e-9)
	assert.InDelta(t, 1.0, mirror.PerformanceRatio, 0.1)
	assert.Zero(t, mirror.Mismatches)
}

func TestEngineShadowMismatch(t *testing.T) {
	e := NewEngine(WithShadowTimeout(time.Second))
	prod := bandit.NewEpsilonGreedy(0, 1)
	shadow := bandit.NewEpsilonGreedy(0, 1)
	require.NoError(t, e.RegisterDomain("routing", prod, ShadowPolicy{Name: "contrarian", Policy: shadow}))

	// production prefers a; the shadow will have learned to prefer b
	require.NoError(t, prod.Update("a", 1, nil))
	require.NoError(t, shadow.Update("b", 1, nil))

	choice := e.Recommend("routing", nil, []string{"a", "b"})
	require.Equal(t, "a", choice)
	e.WaitShadows()
	require.NoError(t, e.Record("routing", choice, 0.5, nil))

	summary, _ := e.ShadowSummary("routing")
	assert.Equal(t, 1, summary.Policies["contrarian"].Mismatches)
	assert.Zero(t, summary.Policies["contrarian"].Pulls)
}

func TestEngineShadowIsolation(t *testing.T) {
	t.Run("panicking shadow never reaches the caller", func(t *testing.T) {
		e := NewEngine(WithShadowTimeout(time.Second))
		require.NoError(t, e.RegisterDomain("routing",
			bandit.NewEpsilonGreedy(0, 1),
			ShadowPolicy{Name: "broken", Policy: panicPolicy{bandit.NewUCB1()}},
		))

		assert.NotPanics(t, func() {
			assert.Equal(t, "a", e.Recommend("routing", nil, []string{"a", "b"}))
			assert.NoError(t, e.Record("routing", "a", 1, nil))
		})
		summary, _ := e.ShadowSummary("routing")
		assert.NotContains(t, summary.Policies, "broken")
	})

	t.Run("panicking production policy falls back", func(t *testing.T) {
		e := NewEngine()
		require.NoError(t, e.RegisterDomain("routing", panicPolicy{bandit.NewUCB1()}))
		assert.Equal(t, "a", e.Recommend("routing", nil, []string{"a", "b"}))
		assert.NoError(t, e.Record("routing", "a", 1, nil))
	})

	t.Run("late shadow result is dropped", func(t *testing.T) {
		e := NewEngine(WithShadowTimeout(50 * time.Millisecond))
		slow := slowPolicy{UCB1: bandit.NewUCB1(), delay: 300 * time.Millisecond}
		require.NoError(t, e.RegisterDomain("routing",
			bandit.NewEpsilonGreedy(0, 1),
			ShadowPolicy{Name: "slow", Policy: slow},
		))

		assert.Equal(t, "a", e.Recommend("routing", nil, []string{"a", "b"}))
		e.WaitShadows()

		e.mu.RLock()
		sh := e.domains["routing"].shadows[0]
		e.mu.RUnlock()
		assert.Zero(t, sh.pending.len())
	})

	t.Run("slow shadow adds no latency", func(t *testing.T) {
		e := NewEngine(WithShadowTimeout(time.Second))
		slow := slowPolicy{UCB1: bandit.NewUCB1(), delay: 300 * time.Millisecond}
		require.NoError(t, e.RegisterDomain("routing",
			bandit.NewEpsilonGreedy(0, 1),
			ShadowPolicy{Name: "slow", Policy: slow},
		))

		start := time.Now()
		assert.Equal(t, "a", e.Recommend("routing", nil, []string{"a", "b"}))
		assert.Less(t, time.Since(start), 100*time.Millisecond)

		// within the timeout, so the choice still lands once the shadow finishes
		e.WaitShadows()
		e.mu.RLock()
		sh := e.domains["routing"].shadows[0]
		e.mu.RUnlock()
		assert.Equal(t, 1, sh.pending.len())
	})

	t.Run("shadows are ignored when disabled", func(t *testing.T) {
		e := NewEngine(WithShadows(false))
		require.NoError(t, e.RegisterDomain("routing",
			bandit.NewUCB1(),
			ShadowPolicy{Name: "broken", Policy: panicPolicy{bandit.NewUCB1()}},
		))
		e.mu.RLock()
		assert.Empty(t, e.domains["routing"].shadows)
		e.mu.RUnlock()
	})

	t.Run("duplicate shadow names are rejected", func(t *testing.T) {
		e := NewEngine()
		err := e.RegisterDomain("routing", bandit.NewUCB1(),
			ShadowPolicy{Name: "s", Policy: bandit.NewUCB1()},
			ShadowPolicy{Name: "s", Policy: bandit.NewUCB1()},
		)
		assert.Error(t, err)
	})
}

func TestEngineSelectModelHook(t *testing.T) {
	type event struct {
		domain, policy, arm string
		shadow              bool
	}
	var (
		mu     sync.Mutex
		events []event
	)
	hook := func(d, p, a string, s bool) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event{d, p, a, s})
	}

	e := NewEngine(WithDecisionHook(hook), WithShadowTimeout(time.Second))
	require.NoError(t, e.RegisterDomain("models",
		bandit.NewUCB1(),
		ShadowPolicy{Name: "ts", Policy: bandit.NewThompsonSampling(3)},
	))

	arm := e.SelectModel("models", []string{"gpt", "claude"})
	assert.Equal(t, "gpt", arm)
	e.WaitShadows()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.Equal(t, event{"models", bandit.ClassUCB1, "gpt", false}, events[0])
	assert.Equal(t, "ts", events[1].policy)
	assert.True(t, events[1].shadow)
}

func TestEngineSelectModelSharesPendingKey(t *testing.T) {
	e := NewEngine(WithShadowTimeout(time.Second))
	prod := bandit.NewEpsilonGreedy(0, 1)
	shadow := bandit.NewEpsilonGreedy(0, 1)
	require.NoError(t, e.RegisterDomain("models", prod, ShadowPolicy{Name: "alt", Policy: shadow}))
	require.NoError(t, prod.Update("gpt", 1, nil))
	require.NoError(t, shadow.Update("claude", 1, nil))

	for range 3 {
		e.SelectModel("models", []string{"gpt", "claude"})
	}
	e.WaitShadows()

	e.mu.RLock()
	sh := e.domains["models"].shadows[0]
	e.mu.RUnlock()
	assert.Equal(t, 1, sh.pending.len(), "calls without features overwrite one another")

	require.NoError(t, e.Record("models", "gpt", 1, nil))
	assert.Zero(t, sh.pending.len())

	summary, _ := e.ShadowSummary("models")
	assert.Equal(t, 1, summary.Policies["alt"].Mismatches)
}

func TestEngineConcurrentAccess(t *testing.T) {
	e := NewEngine(WithShadowTimeout(time.Second))
	require.NoError(t, e.RegisterDomain("one", bandit.NewThompsonSampling(1),
		ShadowPolicy{Name: "ucb", Policy: bandit.NewUCB1()}))
	require.NoError(t, e.RegisterDomain("two", bandit.NewLinTSDiag(0.5, 8, 1)))

	const workers, rounds = 8, 100
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := map[string]any{"worker": w}
			for i := range rounds {
				for _, d := range []string{"one", "two"} {
					arm := e.Recommend(d, ctx, []string{"a", "b", "c"})
					assert.NoError(t, e.Record(d, arm, float64(i%2), ctx))
				}
				if i%25 == 0 {
					_ = e.Snapshot()
					_, _ = e.ShadowSummary("one")
				}
			}
		}()
	}
	wg.Wait()
	e.WaitShadows()

	snap := e.Snapshot()
	for _, d := range []string{"one", "two"} {
		assert.EqualValues(t, workers*rounds, snap[d]["totalPulls"], d)
	}
}
