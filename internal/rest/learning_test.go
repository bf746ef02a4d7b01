//go:build !integration

package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"adaptiveRouter/business/bandit"
	"adaptiveRouter/business/experiment"
	"adaptiveRouter/business/learning"
	"adaptiveRouter/domain"
	"adaptiveRouter/pkg/config"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryEvents struct {
	mu     sync.Mutex
	events []domain.RewardEvent
	err    error
}

func (m *memoryEvents) SaveEvent(_ context.Context, e domain.RewardEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

type memoryConfigs struct {
	specs map[string]domain.DomainSpec
}

func (m *memoryConfigs) UpsertSpec(_ context.Context, spec domain.DomainSpec) error {
	m.specs[spec.Name] = spec
	return nil
}

type fixture struct {
	echo    *echo.Echo
	engine  *learning.Engine
	events  *memoryEvents
	configs *memoryConfigs
	harness *config.HarnessSwitch
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	harness := config.NewHarnessSwitch(true)
	engine := learning.NewEngine(learning.WithGate(harness))
	require.NoError(t, engine.RegisterDomain("routing", bandit.NewUCB1()))

	f := &fixture{
		echo:    echo.New(),
		engine:  engine,
		events:  &memoryEvents{},
		configs: &memoryConfigs{specs: map[string]domain.DomainSpec{}},
		harness: harness,
	}

	lh := NewLearningHandler(engine, f.events)
	ah := NewLearningAdminHandler(engine, f.configs, harness)
	eh := NewExperimentHandler(experiment.NewManager(experiment.WithGate(harness), experiment.WithSeed(1)))

	f.echo.POST("/learning/recommend", lh.Recommend)
	f.echo.POST("/learning/select-model", lh.SelectModel)
	f.echo.POST("/learning/record", lh.Record)
	f.echo.GET("/admin/learning/snapshot", ah.Snapshot)
	f.echo.POST("/admin/learning/restore", ah.Restore)
	f.echo.GET("/admin/learning/domains", ah.Domains)
	f.echo.PUT("/admin/learning/domains", ah.UpsertDomain)
	f.echo.GET("/admin/learning/shadow/:domain", ah.ShadowSummary)
	f.echo.PUT("/admin/harness", ah.SetHarness)
	f.echo.POST("/admin/experiments", eh.Register)
	f.echo.GET("/admin/experiments", eh.Snapshot)
	f.echo.POST("/experiments/:id/recommend", eh.Recommend)
	f.echo.POST("/experiments/:id/record", eh.Record)
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)
	return rec
}

func TestLearningRecommend(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/learning/recommend",
		`{"domain":"routing","context":{"tier":"pro"},"candidates":["fast","slow"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"choice":"fast"`)

	rec = f.do(http.MethodPost, "/learning/recommend", `{"domain":"routing","candidates":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/learning/recommend", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown domains still answer with the first candidate.
	rec = f.do(http.MethodPost, "/learning/select-model", `{"domain":"nope","candidates":["x","y"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"choice":"x"`)
}

func TestLearningRecord(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/learning/record",
		`{"domain":"routing","choice":"slow","reward":1,"context":{"tier":"pro"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, "slow", f.events.events[0].Choice)
	assert.Equal(t, "pro", f.events.events[0].Context["tier"])

	snap := f.engine.Snapshot()
	assert.Equal(t, float64(1), snap["routing"]["totalPulls"])

	rec = f.do(http.MethodPost, "/learning/record", `{"domain":"routing","choice":"slow"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "reward is required")

	rec = f.do(http.MethodPost, "/learning/record", `{"domain":"ghost","choice":"a","reward":0.5}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLearningRecordSurvivesAuditFailure(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("db down")

	rec := f.do(http.MethodPost, "/learning/record", `{"domain":"routing","choice":"a","reward":0.2}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAdminSnapshotRestore(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, f.engine.Record("routing", "fast", 1, nil))
	}

	rec := f.do(http.MethodGet, "/admin/learning/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"policyClassName":"UCB1"`)

	rec = f.do(http.MethodPost, "/admin/learning/restore",
		`{"routing":{"policyClassName":"ThompsonSampling","version":2},"unknown":{"policyClassName":"UCB1","version":2}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "policy class mismatch")
	assert.Contains(t, body, "domain not registered")

	rec = f.do(http.MethodPost, "/admin/learning/restore", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminUpsertDomain(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPut, "/admin/learning/domains",
		`{"name":"ranking","policy":{"class":"LinUCBDiagBandit","params":{"alpha":0.5,"dim":8}},
		  "shadows":[{"name":"ts","class":"ThompsonSampling","params":{"seed":3}}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, f.configs.specs, "ranking")
	assert.Contains(t, f.engine.Domains(), "ranking")

	rec = f.do(http.MethodGet, "/admin/learning/shadow/ranking", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"baselineCount":0`)

	rec = f.do(http.MethodGet, "/admin/learning/shadow/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPut, "/admin/learning/domains", `{"name":"bad","policy":{"class":"Oracle"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, f.configs.specs, "bad")
}

func TestAdminHarnessToggle(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.Record("routing", "fast", 0, nil))
	require.NoError(t, f.engine.Record("routing", "slow", 1, nil))

	rec := f.do(http.MethodPost, "/learning/recommend", `{"domain":"routing","candidates":["fast","slow"]}`)
	require.Contains(t, rec.Body.String(), `"choice":"slow"`)

	rec = f.do(http.MethodPut, "/admin/harness", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, f.harness.Enabled())

	// With the harness off the first candidate is served regardless of what
	// the policy has learned.
	rec = f.do(http.MethodPost, "/learning/recommend", `{"domain":"routing","candidates":["fast","slow"]}`)
	assert.Contains(t, rec.Body.String(), `"choice":"fast"`)

	rec = f.do(http.MethodPut, "/admin/harness", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExperimentEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/admin/experiments",
		`{"id":"prompt-v2","control":"v1","variants":{"v2":1},"autoActivateAfter":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(http.MethodPost, "/admin/experiments",
		`{"id":"broken","control":"v1","variants":{"v2":1.5}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/experiments/prompt-v2/recommend", `{"candidates":["v1","v2"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"label":"v2"`)

	for i := 0; i < 2; i++ {
		rec = f.do(http.MethodPost, "/experiments/prompt-v2/record", `{"label":"v2","reward":1}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = f.do(http.MethodGet, "/admin/experiments", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"activeExperiments":1`)

	rec = f.do(http.MethodPost, "/experiments/ghost/record", `{"label":"v2","reward":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodPost, "/experiments/prompt-v2/record", `{"label":"v9","reward":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
