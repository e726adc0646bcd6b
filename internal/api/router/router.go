package router

import (
	"github.com/cuongbtq/freelance-marketplace/internal/api/handler"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// DevOrigin is the local frontend dev server, always allowed
const DevOrigin = "http://localhost:5173"

// Config controls the cross-cutting parts of the router
type Config struct {
	ServiceName  string
	AllowOrigins []string
	// Tracing adds the otelgin middleware; the global tracer provider must be set up
	Tracing bool
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, cfg *Config) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	if cfg.Tracing {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(deps.Metrics.Middleware())
	r.Use(cors.New(CORSConfig(cfg.AllowOrigins)))

	healthHandler := handler.NewHealthHandler(deps, cfg.ServiceName)
	jobHandler := handler.NewJobHandler(deps)
	taskHandler := handler.NewTaskHandler(deps)

	r.GET("/", healthHandler.Root)
	r.GET("/health", healthHandler.Health)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	jobs := r.Group("/jobs")
	{
		// GET /jobs?sort=newest|oldest - List all jobs
		jobs.GET("", jobHandler.ListJobs)

		// GET /jobs/:id - Get job details
		jobs.GET("/:id", jobHandler.GetJob)

		// POST /jobs - Post a new job
		jobs.POST("", jobHandler.CreateJob)

		// PUT /jobs/:id - Partially update a job
		jobs.PUT("/:id", jobHandler.UpdateJob)

		// DELETE /jobs/:id - Delete a job and its accepted tasks
		jobs.DELETE("/:id", jobHandler.DeleteJob)
	}

	r.GET("/myAddedJobs", jobHandler.ListMyJobs)

	r.POST("/accept-task", taskHandler.AcceptTask)

	tasks := r.Group("/my-accepted-tasks")
	{
		tasks.GET("", taskHandler.ListMyTasks)
		tasks.DELETE("/:id", taskHandler.RemoveTask)
	}

	return r
}

// CORSConfig allows the configured origins plus the dev frontend, with credentials
func CORSConfig(origins []string) cors.Config {
	allowed := make([]string, 0, len(origins)+1)
	seen := make(map[string]bool, len(origins)+1)
	for _, o := range append(append([]string{}, origins...), DevOrigin) {
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		allowed = append(allowed, o)
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowed
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "X-Requested-With", RequestIDHeader}
	corsConfig.ExposeHeaders = []string{RequestIDHeader}
	return corsConfig
}
