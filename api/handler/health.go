package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/dealsearch/models"
	"github.com/use-agent/dealsearch/scraper"
)

// Version is reported by /health.
const Version = "0.1.0"

// Health returns a handler for GET /health.
//
// Reports gate utilisation. Answers 503 while the shared browser is down
// so load balancers stop routing searches here. Never opens a page.
func Health(sc *scraper.Scraper, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		if !sc.Ready() {
			status, code = "unavailable", http.StatusServiceUnavailable
		}

		c.JSON(code, models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			PoolStats: sc.Stats(),
			Version:   Version,
		})
	}
}
