package rest

import (
	"context"
	"net/http"

	"adaptiveRouter/domain"
	"adaptiveRouter/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	LearningAdminHandler struct {
		validate *validator.Validate
		engine   LearningAdmin
		configs  PolicyConfigStore
		harness  HarnessSwitch
	}

	LearningAdmin interface {
		Snapshot() domain.LearningSnapshot
		Restore(snap domain.LearningSnapshot) domain.RestoreReport
		ShadowSummary(domainName string) (domain.ShadowSummary, bool)
		RegisterSpec(spec domain.DomainSpec) error
		Domains() []string
	}

	PolicyConfigStore interface {
		UpsertSpec(ctx context.Context, spec domain.DomainSpec) error
	}

	HarnessSwitch interface {
		Enabled() bool
		Set(enabled bool)
	}

	HarnessRequest struct {
		Enabled *bool `json:"enabled" validate:"required"`
	}
)

// NewLearningAdminHandler builds the operator endpoints. configs may be nil
// when no database is configured; domain overrides then only live in memory.
func NewLearningAdminHandler(engine LearningAdmin, configs PolicyConfigStore, harness HarnessSwitch) *LearningAdminHandler {
	return &LearningAdminHandler{
		validate: validator.New(),
		engine:   engine,
		configs:  configs,
		harness:  harness,
	}
}

// GET /api/v1/admin/learning/snapshot
func (h *LearningAdminHandler) Snapshot(c echo.Context) error {
	return c.JSON(http.StatusOK, fres.Response.StatusOK(h.engine.Snapshot()))
}

// POST /api/v1/admin/learning/restore
// body: LearningSnapshot JSON
func (h *LearningAdminHandler) Restore(c echo.Context) error {
	var snap domain.LearningSnapshot
	if err := c.Bind(&snap); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid body: " + err.Error()})
	}
	if len(snap) == 0 {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "snapshot is empty"})
	}

	report := h.engine.Restore(snap)
	logger.Info("learning_snapshot_restored_via_admin",
		"restored", len(report.Restored),
		"skipped", len(report.Skipped),
		"user_id", c.Get("user_id"),
	)
	return c.JSON(http.StatusOK, fres.Response.StatusOK(report))
}

// GET /api/v1/admin/learning/domains
func (h *LearningAdminHandler) Domains(c echo.Context) error {
	return c.JSON(http.StatusOK, fres.Response.StatusOK(h.engine.Domains()))
}

// GET /api/v1/admin/learning/shadow/:domain
func (h *LearningAdminHandler) ShadowSummary(c echo.Context) error {
	name := c.Param("domain")
	summary, ok := h.engine.ShadowSummary(name)
	if !ok {
		return c.JSON(http.StatusNotFound, ResponseError{Message: "domain not registered"})
	}
	return c.JSON(http.StatusOK, fres.Response.StatusOK(summary))
}

// PUT /api/v1/admin/learning/domains
// body: DomainSpec JSON. Re-registering a domain resets its learned state.
func (h *LearningAdminHandler) UpsertDomain(c echo.Context) error {
	var spec domain.DomainSpec
	if err := c.Bind(&spec); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid body: " + err.Error()})
	}
	if err := h.validate.Struct(&spec); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.engine.RegisterSpec(spec); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if h.configs != nil {
		if err := h.configs.UpsertSpec(c.Request().Context(), spec); err != nil {
			logger.Error("policy_config_not_saved", "domain", spec.Name, "error", err)
			return c.JSON(http.StatusInternalServerError, ResponseError{Message: err.Error()})
		}
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(spec))
}

// PUT /api/v1/admin/harness
func (h *LearningAdminHandler) SetHarness(c echo.Context) error {
	var req HarnessRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	h.harness.Set(*req.Enabled)
	logger.Info("harness_toggled", "enabled", *req.Enabled, "user_id", c.Get("user_id"))

	return c.JSON(http.StatusOK, fres.Response.StatusOK(echo.Map{"enabled": h.harness.Enabled()}))
}
