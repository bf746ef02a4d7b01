package rest

import (
	"errors"
	"net/http"

	"adaptiveRouter/business/experiment"
	"adaptiveRouter/domain"
	"adaptiveRouter/pkg/metrics"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	ExperimentHandler struct {
		validate    *validator.Validate
		experiments ExperimentService
	}

	ExperimentService interface {
		Register(exp domain.Experiment) error
		Recommend(id string, features map[string]any, candidates []string) string
		Record(id, label string, reward float64) error
		Snapshot() domain.ExperimentsSnapshot
	}

	ExperimentRecommendRequest struct {
		Context    map[string]any `json:"context"`
		Candidates []string       `json:"candidates"`
	}

	ExperimentRecordRequest struct {
		Label  string   `json:"label" validate:"required"`
		Reward *float64 `json:"reward" validate:"required"`
	}

	AllocationResponse struct {
		ExperimentID string `json:"experiment_id"`
		Label        string `json:"label"`
	}
)

func NewExperimentHandler(svc ExperimentService) *ExperimentHandler {
	return &ExperimentHandler{
		validate:    validator.New(),
		experiments: svc,
	}
}

// POST /api/v1/experiments/:id/recommend
func (h *ExperimentHandler) Recommend(c echo.Context) error {
	id := c.Param("id")

	var req ExperimentRecommendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	label := h.experiments.Recommend(id, req.Context, req.Candidates)
	if label != "" {
		metrics.ObserveAllocation(id, label)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(AllocationResponse{
		ExperimentID: id,
		Label:        label,
	}))
}

// POST /api/v1/experiments/:id/record
func (h *ExperimentHandler) Record(c echo.Context) error {
	id := c.Param("id")

	var req ExperimentRecordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.experiments.Record(id, req.Label, *req.Reward); err != nil {
		if errors.Is(err, experiment.ErrUnknownExperiment) {
			return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
		}
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated("outcome recorded"))
}

// POST /api/v1/admin/experiments
func (h *ExperimentHandler) Register(c echo.Context) error {
	var body domain.Experiment
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid body: " + err.Error()})
	}
	if err := h.validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.experiments.Register(body); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(body))
}

// GET /api/v1/admin/experiments
func (h *ExperimentHandler) Snapshot(c echo.Context) error {
	return c.JSON(http.StatusOK, fres.Response.StatusOK(h.experiments.Snapshot()))
}
