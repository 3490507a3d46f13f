package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/use-agent/dealsearch/models"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{models.ErrCodeInvalidInput, http.StatusBadRequest},
		{models.ErrCodeUnauthorized, http.StatusUnauthorized},
		{models.ErrCodeRateLimited, http.StatusTooManyRequests},
		{models.ErrCodeUnavailable, http.StatusServiceUnavailable},
		{models.ErrCodeTimeout, http.StatusGatewayTimeout},
		{models.ErrCodeScrape, http.StatusInternalServerError},
		{models.ErrCodeInternal, http.StatusInternalServerError},
		{"SOMETHING_NEW", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.code))
		})
	}
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "client error keeps message",
			err:        models.NewScrapeError(models.ErrCodeInvalidInput, "query is required and must not be empty", nil),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"success":false,"error":"query is required and must not be empty"}`,
		},
		{
			name:       "wrapped timeout",
			err:        errors.Join(errors.New("outer"), models.NewScrapeError(models.ErrCodeTimeout, "navigation timed out after 3 attempts", nil)),
			wantStatus: http.StatusGatewayTimeout,
			wantBody:   `{"success":false,"error":"navigation timed out after 3 attempts"}`,
		},
		{
			name:       "scrape failure is generic",
			err:        models.NewScrapeError(models.ErrCodeScrape, "deal card JSON is malformed", nil),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"success":false,"error":"Scrape error"}`,
		},
		{
			name:       "unauthorized",
			err:        models.NewScrapeError(models.ErrCodeUnauthorized, "invalid API key", nil),
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"success":false,"error":"invalid API key"}`,
		},
		{
			name:       "untyped error is generic",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"success":false,"error":"Scrape error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			RespondError(c, tt.err)

			assert.True(t, c.IsAborted())
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}
