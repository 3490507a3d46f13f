package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/dealsearch/models"
)

// APIKeyContextKey holds the authenticated key in the gin context.
const APIKeyContextKey = "api_key"

var (
	errMissingKey = models.NewScrapeError(models.ErrCodeUnauthorized,
		"missing API key: provide X-API-Key header or Authorization: Bearer <key>", nil)
	errInvalidKey = models.NewScrapeError(models.ErrCodeUnauthorized, "invalid API key", nil)
)

// Auth guards /search with a static API key list. Either header works:
//
//	X-API-Key: <key>
//	Authorization: Bearer <key>
//
// An empty list leaves the route open.
func Auth(apiKeys []string) gin.HandlerFunc {
	keySet := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keySet[k] = struct{}{}
		}
	}
	if len(keySet) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key := apiKeyFrom(c)
		switch _, known := keySet[key]; {
		case key == "":
			RespondError(c, errMissingKey)
		case !known:
			RespondError(c, errInvalidKey)
		default:
			c.Set(APIKeyContextKey, key)
			c.Next()
		}
	}
}

func apiKeyFrom(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}
	if bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(bearer)
	}
	return ""
}
