package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/trade-insights/internal/api/handler"
)

// Options tunes the HTTP surface
type Options struct {
	AllowedOrigins []string
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, opts Options) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware(opts.AllowedOrigins))

	h := handler.New(deps)

	// Unversioned probe for load balancers
	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", h.Health)

		jobs := v1.Group("/jobs")
		{
			jobs.GET("", h.ListJobs)
			jobs.GET("/:job_id", h.GetJob)
			jobs.PUT("/:job_id", h.UpdateJob)
			jobs.POST("/:job_id/run", h.RunJob)
		}

		v1.GET("/runs", h.ListRuns)

		snapshots := v1.Group("/snapshots")
		{
			snapshots.GET("/:widget_key", h.GetSnapshots)
			snapshots.GET("/:widget_key/:scope", h.GetSnapshot)
		}

		v1.GET("/insights", h.ListInsights)
	}

	return r
}

// CORSMiddleware allows the dashboard origins; an empty list allows any origin
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "PUT", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
	}
	return cors.New(cfg)
}
