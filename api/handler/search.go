package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/dealsearch/api/middleware"
	"github.com/use-agent/dealsearch/metrics"
	"github.com/use-agent/dealsearch/models"
	"github.com/use-agent/dealsearch/scraper"
)

const noResultsMessage = "No results found"

// Search returns a handler for GET /search.
//
// Orchestration flow:
//  1. Bind query parameters (non-numeric prices fail here).
//  2. Scraper.Search validates, takes a permit and scrapes.
//  3. ErrNoResults → 200 with null data; other errors → middleware.StatusFor.
func Search(sc *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		// ── 1. Parse request ────────────────────────────────────────
		var req models.SearchRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			metrics.ObserveSearch(models.ErrCodeInvalidInput)
			middleware.RespondError(c, models.NewScrapeError(models.ErrCodeInvalidInput,
				"price_min and price_max must be numbers", err))
			return
		}

		// ── 2. Search ───────────────────────────────────────────────
		deal, err := sc.Search(c.Request.Context(), &req)

		// ── 3. Respond ──────────────────────────────────────────────
		switch {
		case errors.Is(err, scraper.ErrNoResults):
			metrics.ObserveSearch("NO_RESULTS")
			c.JSON(http.StatusOK, models.SearchResponse{
				Success: true,
				Data:    nil,
				Message: noResultsMessage,
			})
		case err != nil:
			metrics.ObserveSearch(models.CodeOf(err))
			middleware.RespondError(c, err)
		default:
			metrics.ObserveSearch("OK")
			c.JSON(http.StatusOK, models.SearchResponse{
				Success: true,
				Data:    deal,
			})
		}
	}
}
