package middleware

import (
	"net/http"
	"time"

	"github.com/edumarket/storefront/internal/session"
	"github.com/gin-gonic/gin"
)

const errUnauthorized = "Unauthorized"

// Session attaches a cookie jar for this request. The API client reads and
// writes the access token through it.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		jar := session.NewJar(c.Request, c.Writer)
		c.Request = c.Request.WithContext(session.WithJar(c.Request.Context(), jar))
		c.Next()
	}
}

// RequireSession rejects requests without an access token cookie, or whose
// token has visibly expired, before anything is sent upstream. Tokens that
// are not JWTs pass through; the marketplace API stays the authority.
// The role claim, when present, is set as "role" in the gin context, and
// the token's owner is always set under session.OwnerKey.
func RequireSession(cookieName, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(cookieName)
		if err != nil || raw == "" {
			abortUnauthorized(c, loginPath)
			return
		}

		claims, err := session.ParseClaims(raw)
		if err == nil {
			if !claims.ExpiresAt.IsZero() && !time.Now().Before(claims.ExpiresAt) {
				abortUnauthorized(c, loginPath)
				return
			}
			if claims.Role != "" {
				c.Set("role", string(claims.Role))
			}
		}
		c.Set(session.OwnerKey, session.Owner(raw))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, loginPath string) {
	c.Header("Location", loginPath)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized, "redirect": loginPath})
}
