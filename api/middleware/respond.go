package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/dealsearch/models"
)

// genericScrapeError is the only detail clients see for a 500.
const genericScrapeError = "Scrape error"

// StatusFor translates an error code to an HTTP status code.
func StatusFor(code string) int {
	switch code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnavailable:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}

// RespondError maps err to a status code, writes an ErrorResponse and
// aborts the chain. Details of 500s are logged, never returned.
func RespondError(c *gin.Context, err error) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	status := StatusFor(scrapeErr.Code)
	message := scrapeErr.Message
	attrs := []any{
		"request_id", c.GetString(RequestIDContextKey),
		"code", scrapeErr.Code,
		"error", err,
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", attrs...)
		message = genericScrapeError
	} else {
		slog.Warn("request rejected", attrs...)
	}

	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Success: false,
		Error:   message,
	})
}
