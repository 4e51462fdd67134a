// Package api assembles GenTrack's gin router: middleware chain,
// route table, and the static-asset/JSON-banner root fallback.
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ferreiragah-dev/gentrack/pkg/api/handlers"
	"github.com/ferreiragah-dev/gentrack/pkg/api/middleware"
	"github.com/ferreiragah-dev/gentrack/pkg/metrics"
	"github.com/ferreiragah-dev/gentrack/pkg/scheduler"
	"github.com/ferreiragah-dev/gentrack/pkg/store"
)

// NewRouter builds GenTrack's gin.Engine: the middleware chain,
// /health, /metrics, and the /api/targets route table, plus the
// static index.html serving with a JSON-banner fallback when no
// bundled UI is present.
func NewRouter(s *store.Store, sch *scheduler.Scheduler, m *metrics.Metrics, logger zerolog.Logger, staticDir string) *gin.Engine {
	r := gin.New()
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.CORSMiddleware())

	targetHandler := handlers.NewTargetHandler(s, sch)
	dashboardHandler := handlers.NewDashboardHandler(s)
	healthHandler := handlers.NewHealthHandler(s)

	indexFile := filepath.Join(staticDir, "index.html")
	if info, err := os.Stat(indexFile); err == nil && !info.IsDir() {
		r.Static("/assets", filepath.Join(staticDir, "assets"))
		r.GET("/", func(c *gin.Context) { c.File(indexFile) })
	} else {
		r.GET("/", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"service": "gentrack",
				"status":  "healthy",
				"time":    time.Now().UTC().Format(time.RFC3339),
			})
		})
	}

	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	r.GET("/health", healthHandler.Get)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/targets", targetHandler.List)
		apiGroup.POST("/targets", targetHandler.Create)
		apiGroup.DELETE("/targets/:id", targetHandler.Delete)
		apiGroup.POST("/targets/:id/check", targetHandler.ManualCheck)
		apiGroup.GET("/targets/:id/history", targetHandler.History)
		apiGroup.GET("/targets/:id/incidents", targetHandler.Incidents)
		apiGroup.GET("/targets/:id/reliability", targetHandler.Reliability)
		apiGroup.GET("/dashboard", dashboardHandler.Get)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint_not_found", "path": c.Request.URL.Path})
	})

	return r
}
