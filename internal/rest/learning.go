package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"adaptiveRouter/business/learning"
	"adaptiveRouter/domain"
	"adaptiveRouter/internal/middleware"
	"adaptiveRouter/pkg/logger"
	"adaptiveRouter/pkg/metrics"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	LearningHandler struct {
		validate *validator.Validate
		engine   LearningEngine
		events   RewardEventStore
		timeout  time.Duration
	}

	LearningEngine interface {
		Recommend(domainName string, features map[string]any, candidates []string) string
		SelectModel(domainName string, candidates []string) string
		Record(domainName, choice string, reward float64, features map[string]any) error
		ShadowSummary(domainName string) (domain.ShadowSummary, bool)
	}

	RewardEventStore interface {
		SaveEvent(ctx context.Context, event domain.RewardEvent) error
	}

	RecommendRequest struct {
		Domain     string         `json:"domain" validate:"required"`
		Context    map[string]any `json:"context"`
		Candidates []string       `json:"candidates" validate:"required,min=1,dive,required"`
	}

	SelectModelRequest struct {
		Domain     string   `json:"domain" validate:"required"`
		Candidates []string `json:"candidates" validate:"required,min=1,dive,required"`
	}

	RecordRequest struct {
		Domain  string         `json:"domain" validate:"required"`
		Choice  string         `json:"choice" validate:"required"`
		Reward  *float64       `json:"reward" validate:"required"`
		Context map[string]any `json:"context"`
	}

	DecisionResponse struct {
		Domain  string `json:"domain"`
		Choice  string `json:"choice"`
		TraceID string `json:"trace_id,omitempty"`
	}
)

// NewLearningHandler builds the public decision endpoints. events may be
// nil, in which case reward events are not persisted.
func NewLearningHandler(engine LearningEngine, events RewardEventStore) *LearningHandler {
	return &LearningHandler{
		validate: validator.New(),
		engine:   engine,
		events:   events,
		timeout:  3 * time.Second,
	}
}

// POST /api/v1/learning/recommend
func (h *LearningHandler) Recommend(c echo.Context) error {
	var req RecommendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	choice := h.engine.Recommend(req.Domain, req.Context, req.Candidates)

	return c.JSON(http.StatusOK, fres.Response.StatusOK(DecisionResponse{
		Domain:  req.Domain,
		Choice:  choice,
		TraceID: middleware.TraceID(c),
	}))
}

// POST /api/v1/learning/select-model
func (h *LearningHandler) SelectModel(c echo.Context) error {
	var req SelectModelRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	choice := h.engine.SelectModel(req.Domain, req.Candidates)

	return c.JSON(http.StatusOK, fres.Response.StatusOK(DecisionResponse{
		Domain:  req.Domain,
		Choice:  choice,
		TraceID: middleware.TraceID(c),
	}))
}

// POST /api/v1/learning/record
func (h *LearningHandler) Record(c echo.Context) error {
	var req RecordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.engine.Record(req.Domain, req.Choice, *req.Reward, req.Context); err != nil {
		metrics.ObserveRecordError(req.Domain)
		if errors.Is(err, learning.ErrUnknownDomain) {
			return c.JSON(http.StatusNotFound, ResponseError{Message: err.Error()})
		}
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	metrics.ObserveReward(req.Domain, *req.Reward)
	if summary, ok := h.engine.ShadowSummary(req.Domain); ok {
		metrics.SetShadowRegret(req.Domain, summary)
	}

	traceID := middleware.TraceID(c)
	if h.events != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
		defer cancel()

		err := h.events.SaveEvent(ctx, domain.RewardEvent{
			Domain:  req.Domain,
			Choice:  req.Choice,
			Reward:  *req.Reward,
			TraceID: traceID,
			Context: req.Context,
		})
		if err != nil {
			// The model has already learned from the reward; only the audit row is lost.
			logger.Warn("reward_event_not_saved", "domain", req.Domain, "trace_id", traceID, "error", err)
		}
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated("reward recorded"))
}
