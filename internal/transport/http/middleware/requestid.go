package middleware

import (
	"github.com/edumarket/storefront/internal/requestid"
	"github.com/gin-gonic/gin"
)

// RequestID keeps the caller's X-Request-ID or mints one, and echoes it on
// the response. The API client forwards it upstream from the context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestid.Header)
		if id == "" {
			id = requestid.New()
		}

		ctx := requestid.WithRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Header(requestid.Header, id)
		c.Next()
	}
}
