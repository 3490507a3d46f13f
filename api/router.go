package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/dealsearch/api/handler"
	"github.com/use-agent/dealsearch/api/middleware"
	"github.com/use-agent/dealsearch/config"
	"github.com/use-agent/dealsearch/metrics"
	"github.com/use-agent/dealsearch/scraper"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestID → Logger
//	Search:  Auth (if enabled) → RateLimit
//
// Health and metrics stay outside auth so probes and scrapers always work.
func NewRouter(sc *scraper.Scraper, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	r.GET("/health", handler.Health(sc, startTime))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	protected := r.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.GET("/search", handler.Search(sc))

	return r
}
