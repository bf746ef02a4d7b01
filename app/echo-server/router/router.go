package router

import (
	"adaptiveRouter/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetupLearningRoutes(api *echo.Group, handler *rest.LearningHandler, authRequired echo.MiddlewareFunc) {
	learning := api.Group("/learning", authRequired)

	learning.POST("/recommend", handler.Recommend)
	learning.POST("/select-model", handler.SelectModel)
	learning.POST("/record", handler.Record)
}

func SetupExperimentRoutes(api *echo.Group, handler *rest.ExperimentHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	experiments := api.Group("/experiments", authRequired)
	experiments.POST("/:id/recommend", handler.Recommend)
	experiments.POST("/:id/record", handler.Record)

	admin := api.Group("/admin/experiments", authRequired, adminOnly)
	admin.GET("", handler.Snapshot)
	admin.POST("", handler.Register)
}

func SetupLearningAdminRoutes(api *echo.Group, handler *rest.LearningAdminHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	admin := api.Group("/admin", authRequired, adminOnly)

	admin.GET("/learning/snapshot", handler.Snapshot)
	admin.POST("/learning/restore", handler.Restore)
	admin.GET("/learning/domains", handler.Domains)
	admin.PUT("/learning/domains", handler.UpsertDomain)
	admin.GET("/learning/shadow/:domain", handler.ShadowSummary)
	admin.PUT("/harness", handler.SetHarness)
}
