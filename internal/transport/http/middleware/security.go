package middleware

import "github.com/gin-gonic/gin"

// Security sets common HTTP security headers. HSTS is only sent when the
// gateway is served over TLS, which is also when cookies are marked Secure.
// Responses carry session state and are never cached.
func Security(hsts bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Cache-Control", "no-store")
		if hsts {
			c.Header("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}
		c.Next()
	}
}
