package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/basel-ax/watermark-builder/internal/http/handlers"
	"github.com/basel-ax/watermark-builder/internal/http/middleware"
)

// Router wires the HTTP handlers and middleware
type Router struct {
	sessionHandler *handlers.SessionHandler
	submitLimiter  *middleware.RateLimiter
	logger         *zap.Logger
}

// NewRouter creates a router. submitLimiter may be nil.
func NewRouter(
	sessionHandler *handlers.SessionHandler,
	submitLimiter *middleware.RateLimiter,
	logger *zap.Logger,
) *Router {
	return &Router{
		sessionHandler: sessionHandler,
		submitLimiter:  submitLimiter,
		logger:         logger,
	}
}

// SetupRoutes builds the gin engine
func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.ErrorHandler(r.logger))

	router.GET("/health", r.sessionHandler.HealthCheck)

	// API version 1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", r.sessionHandler.HealthCheck)
		v1.POST("/sessions", r.sessionHandler.CreateSession)

		sessions := v1.Group("/sessions/:id")
		{
			sessions.GET("", r.sessionHandler.GetSession)
			sessions.DELETE("", r.sessionHandler.DeleteSession)

			sessions.PUT("/mode", r.sessionHandler.SetMode)
			sessions.PUT("/text", r.sessionHandler.SetTextParams)
			sessions.PUT("/custom", r.sessionHandler.SetCustomParams)
			sessions.POST("/picture", r.sessionHandler.UploadPicture)
			sessions.POST("/watermark", r.sessionHandler.UploadWatermark)
			sessions.POST("/preset", r.sessionHandler.SavePreset)

			submit := []gin.HandlerFunc{r.sessionHandler.Submit}
			if r.submitLimiter != nil {
				submit = append([]gin.HandlerFunc{r.submitLimiter.Middleware()}, submit...)
			}
			sessions.POST("/submit", submit...)

			sessions.GET("/status", r.sessionHandler.Status)
			sessions.GET("/result", r.sessionHandler.Result)
			sessions.DELETE("/result", r.sessionHandler.Reset)
			sessions.GET("/results/:seq", r.sessionHandler.ResultBySeq)
			sessions.GET("/preview", r.sessionHandler.Preview)
			sessions.POST("/export", r.sessionHandler.Export)
			sessions.GET("/history", r.sessionHandler.History)
		}
	}

	router.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Not found",
		})
	})

	return router
}
