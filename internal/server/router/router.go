package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AndreasArnolfo/Babyrons/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(babies *handlers.BabiesHandler, events *handlers.EventsHandler, settings *handlers.SettingsHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/babies", babies.List)
	r.POST("/babies", babies.Create)
	r.PATCH("/babies/:id", babies.Update)
	r.DELETE("/babies/:id", babies.Delete)

	r.GET("/events", events.List)
	r.POST("/events", events.Create)
	r.PUT("/events/:id", events.Update)
	r.DELETE("/events/:id", events.Delete)

	r.GET("/settings", settings.Get)
	r.PATCH("/settings", settings.Update)
	r.POST("/settings/services/:type/toggle", settings.Toggle)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
