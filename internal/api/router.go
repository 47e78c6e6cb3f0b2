// Package api exposes simulation and capacity optimization over HTTP.
package api

import (
	"net/http"

	"battery-sizing/internal/api/handlers"
	"battery-sizing/internal/api/middleware"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the middleware chain and the /api/v1 routes.
func NewRouter(env *handlers.Env) *gin.Engine {
	router := gin.New()
	router.Use(middleware.ErrorHandler(env.Log))
	router.Use(middleware.Logger(env.Log))
	router.Use(middleware.CORS(env.Config.Server.CORSOrigins))

	seriesHandler := handlers.NewSeriesHandler(env)
	simulateHandler := handlers.NewSimulateHandler(env)
	optimizeHandler := handlers.NewOptimizeHandler(env)
	batteryHandler := handlers.NewBatteryHandler(env.Config.Server.BatteryDir, env.Log)
	policyHandler := handlers.NewPolicyHandler()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "series": env.Store.Len()})
	})

	api := router.Group("/api/v1")
	{
		api.POST("/series", seriesHandler.Upload)
		api.GET("/series/:id", seriesHandler.Get)
		api.DELETE("/series/:id", seriesHandler.Delete)
		api.GET("/series/:id/days", seriesHandler.Days)

		api.POST("/simulate", simulateHandler.Simulate)
		api.POST("/optimize", optimizeHandler.Optimize)

		api.GET("/batteries", batteryHandler.ListBatteries)
		api.GET("/policies", policyHandler.ListPolicies)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router
}
