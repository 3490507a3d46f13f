package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is read from the client and echoed on the response.
	RequestIDHeader = "X-Request-ID"

	// RequestIDContextKey holds the request ID in the gin context.
	RequestIDContextKey = "request_id"
)

// RequestID tags every request with an ID, reusing the client's
// X-Request-ID when it sends a sane one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(RequestIDContextKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
